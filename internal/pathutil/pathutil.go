// Package pathutil implements pure path arithmetic for link hrefs: conversion
// between absolute and relative forms, portable-separator normalization, and
// recomputation of hrefs when the source or target of a link moves.
//
// No function in this package touches the filesystem.
package pathutil

import (
	"path"
	"path/filepath"
	"strings"
)

// ToPortable converts a path to forward-slash form.
func ToPortable(p string) string {
	return filepath.ToSlash(p)
}

// Normalize cleans a workspace-relative path: forward slashes, no leading "./".
func Normalize(p string) string {
	clean := path.Clean(ToPortable(p))
	return strings.TrimPrefix(clean, "./")
}

// IsExternal reports whether href points outside the document tree: a URL
// with a scheme, a mailto address, or a protocol-relative reference.
func IsExternal(href string) bool {
	if strings.HasPrefix(href, "//") {
		return true
	}
	if strings.HasPrefix(href, "mailto:") {
		return true
	}
	// A colon before any slash means a scheme, so scheme://... is external.
	if i := strings.IndexAny(href, ":/"); i >= 0 && href[i] == ':' {
		return true
	}
	return false
}

// IsAnchor reports whether href is a bare same-document anchor.
func IsAnchor(href string) bool {
	return strings.HasPrefix(href, "#")
}

// splitFragment separates the path part of an href from its trailing
// "#fragment" (fragment includes the "#").
func splitFragment(href string) (string, string) {
	if i := strings.Index(href, "#"); i >= 0 {
		return href[:i], href[i:]
	}
	return href, ""
}

// ResolveAbsolute resolves href against the directory of sourceFile and
// returns a cleaned portable path. External URLs and bare anchors are
// returned unchanged.
func ResolveAbsolute(href, sourceFile string) string {
	if IsExternal(href) || IsAnchor(href) {
		return href
	}
	p, _ := splitFragment(href)
	if p == "" {
		return href
	}
	if path.IsAbs(p) {
		return path.Clean(ToPortable(p))
	}
	return path.Clean(path.Join(path.Dir(ToPortable(sourceFile)), ToPortable(p)))
}

// ResolveRelative computes the href that reaches target from the directory
// of sourceFile. The result uses forward slashes and carries a "./" prefix
// unless it already starts with "../"; renderers treat a leading "./" as an
// explicit relative marker.
func ResolveRelative(target, sourceFile string) string {
	rel, err := filepath.Rel(filepath.Dir(filepath.FromSlash(sourceFile)), filepath.FromSlash(target))
	if err != nil {
		return ToPortable(target)
	}
	return reprefix(ToPortable(rel))
}

// reprefix adds "./" to results that are not already explicitly relative or
// absolute.
func reprefix(href string) string {
	if strings.HasPrefix(href, "./") || strings.HasPrefix(href, "../") || strings.HasPrefix(href, "/") {
		return href
	}
	return "./" + href
}

// UpdateForSourceMove recomputes href so that a link written in oldSource
// still reaches the same target after the file moves to newSource. External
// URLs, anchors, and absolute hrefs pass through unchanged.
func UpdateForSourceMove(href, oldSource, newSource string) string {
	if IsExternal(href) || IsAnchor(href) {
		return href
	}
	p, frag := splitFragment(href)
	if p == "" || path.IsAbs(p) {
		return href
	}
	target := ResolveAbsolute(p, oldSource)
	return ResolveRelative(target, newSource) + frag
}

// UpdateForTargetMove recomputes href so that a link written in sourceFile
// and resolving to oldTarget points at newTarget instead, preserving any
// trailing fragment. Hrefs that do not resolve to oldTarget are returned
// unchanged.
func UpdateForTargetMove(href, sourceFile, oldTarget, newTarget string) string {
	if IsExternal(href) || IsAnchor(href) {
		return href
	}
	p, frag := splitFragment(href)
	if p == "" {
		return href
	}
	if ResolveAbsolute(p, sourceFile) != Normalize(oldTarget) {
		return href
	}
	if path.IsAbs(p) {
		return "/" + Normalize(newTarget) + frag
	}
	return ResolveRelative(Normalize(newTarget), sourceFile) + frag
}
