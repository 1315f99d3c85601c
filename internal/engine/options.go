package engine

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Split strategy names.
const (
	SplitByHeader = "header"
	SplitBySize   = "size"
	SplitByMarker = "marker"
	SplitByLines  = "lines"
)

// Join strategy names.
const (
	JoinByDependency  = "dependency"
	JoinAlphabetical  = "alphabetical"
	JoinManual        = "manual"
	JoinChronological = "chronological"
)

// MoveOptions configures a Move operation.
type MoveOptions struct {
	// From and To are vault-relative document paths.
	From string
	To   string
	// DryRun computes the full change set without touching the filesystem.
	DryRun bool
	// Strict promotes unresolved link targets from warnings to errors.
	Strict bool
	// Backup writes sibling backup copies of every file about to change.
	Backup bool
	// ContinueOnError keeps applying remaining transaction steps after a
	// failure instead of rolling everything back.
	ContinueOnError bool
}

// Validate implements validation for MoveOptions.
func (o MoveOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.From, validation.Required),
		validation.Field(&o.To, validation.Required),
	)
}

// SplitOptions configures a Split operation.
type SplitOptions struct {
	// File is the vault-relative document to split.
	File string
	// Strategy selects the partitioning scheme.
	Strategy string
	// Level is the heading level for the header strategy.
	Level int
	// MaxBytes is the per-section budget for the size strategy.
	MaxBytes int
	// Markers overrides the default marker spellings for the marker strategy.
	Markers []string
	// Lines are 1-based split points for the lines strategy.
	Lines []int
	// OutputDir receives the section files; empty means the source's
	// directory.
	OutputDir string
	// KeepFrontmatter propagates the source's frontmatter block into every
	// section file.
	KeepFrontmatter bool
	// DeleteSource removes the source document after the sections are
	// written.
	DeleteSource bool

	DryRun bool
	Backup bool
}

// Validate implements validation for SplitOptions.
func (o SplitOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.File, validation.Required),
		validation.Field(&o.Strategy, validation.Required,
			validation.In(SplitByHeader, SplitBySize, SplitByMarker, SplitByLines)),
		validation.Field(&o.Level,
			validation.When(o.Strategy == SplitByHeader, validation.Required, validation.Min(1), validation.Max(6))),
		validation.Field(&o.MaxBytes,
			validation.When(o.Strategy == SplitBySize, validation.Required, validation.Min(1))),
		validation.Field(&o.Lines,
			validation.When(o.Strategy == SplitByLines, validation.Required)),
	)
}

// JoinOptions configures a Join operation.
type JoinOptions struct {
	// Files are vault-relative paths or glob patterns naming the inputs.
	Files []string
	// Output is the vault-relative path of the combined document.
	Output string
	// Strategy selects the ordering scheme.
	Strategy string
	// Order lists file paths in the desired sequence for the manual
	// strategy; unlisted inputs are appended alphabetically.
	Order []string
	// Primary designates the section whose frontmatter wins scalar merge
	// conflicts; empty means the first ordered section.
	Primary string

	DryRun bool
	Backup bool
}

// Validate implements validation for JoinOptions.
func (o JoinOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Files, validation.Required),
		validation.Field(&o.Output, validation.Required),
		validation.Field(&o.Strategy, validation.Required,
			validation.In(JoinByDependency, JoinAlphabetical, JoinManual, JoinChronological)),
		validation.Field(&o.Order,
			validation.When(o.Strategy == JoinManual, validation.Required)),
	)
}

// MergeOptions configures a Merge operation: a join whose sources are
// deleted and whose incoming links are redirected to the output document.
type MergeOptions struct {
	JoinOptions
	// ContinueOnError keeps applying remaining transaction steps after a
	// failure instead of rolling everything back.
	ContinueOnError bool
}

// CheckOptions configures internal link validation.
type CheckOptions struct {
	// Paths restricts the check to specific documents or globs; empty means
	// the whole vault.
	Paths []string
	// Strict promotes unresolved link targets from warnings to errors.
	Strict bool
}
