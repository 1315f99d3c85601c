// Package models defines the domain types shared across Raido components.
package models

import "time"

// Change types reported in OperationResult.Changes.
const (
	ChangeFileCreated = "file-created"
	ChangeFileDeleted = "file-deleted"
	ChangeFileMoved   = "file-moved"
	ChangeLinkUpdated = "link-updated"
)

// Change is one recorded modification: a file-level event or a single link
// rewrite inside a file.
type Change struct {
	Type     string `json:"type"`
	FilePath string `json:"filePath"`
	OldValue string `json:"oldValue,omitempty"`
	NewValue string `json:"newValue,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// OperationResult is the canonical envelope returned by every mutating
// operation. It is a terminal value: returned to the caller and never
// retained internally.
type OperationResult struct {
	Success       bool     `json:"success"`
	CreatedFiles  []string `json:"createdFiles"`
	ModifiedFiles []string `json:"modifiedFiles"`
	DeletedFiles  []string `json:"deletedFiles"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Changes       []Change `json:"changes"`
}

// NewOperationResult returns an envelope that starts successful with empty
// (non-nil) slices so JSON output renders arrays, not nulls.
func NewOperationResult() *OperationResult {
	return &OperationResult{
		Success:       true,
		CreatedFiles:  []string{},
		ModifiedFiles: []string{},
		DeletedFiles:  []string{},
		Errors:        []string{},
		Warnings:      []string{},
		Changes:       []Change{},
	}
}

// AddError records a fatal error and flips Success.
func (r *OperationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Success = false
}

// AddWarning records a non-fatal diagnostic; Success is unaffected.
func (r *OperationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// MergeConflict is a structured conflict surfaced by join/merge. Conflicts
// are always reported to the caller, even when auto-resolved.
type MergeConflict struct {
	Type         string   `json:"type"`
	Description  string   `json:"description"`
	Files        []string `json:"files"`
	AutoResolved bool     `json:"autoResolved"`
}

// Conflict types.
const (
	ConflictDuplicateHeaders   = "duplicate-headers"
	ConflictCircularDependency = "circular-dependency"
	ConflictFrontmatter        = "frontmatter"
)

// DocInfo is lightweight per-document metadata returned by vault listings.
// An entry that could not be read carries the reason in Err; its other
// fields are zero.
type DocInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
	Err       string    `json:"err,omitempty"`
}
