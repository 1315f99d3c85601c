// Package join orders and combines document sections into one document.
//
// Ordering strategies: dependency (topological), alphabetical, manual, and
// chronological. All strategies share conflict detection for duplicate
// top-level headings, key-wise frontmatter merging, and deduplication of
// repeated reference definitions.
package join

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/pathutil"
)

// Section is one input document to a join.
type Section struct {
	FilePath     string
	Content      string
	Frontmatter  map[string]interface{}
	Title        string
	Dependencies []string
	Order        int
}

// Result is the outcome of a join. Conflicts are always surfaced, even when
// auto-resolved; only fatal errors flip Success.
type Result struct {
	Success           bool
	Content           string
	Frontmatter       map[string]interface{}
	SourceFiles       []string
	Conflicts         []models.MergeConflict
	Warnings          []string
	DeduplicatedLinks []string
}

// Strategy orders sections before they are combined.
type Strategy interface {
	Join(sections []Section) *Result
}

var (
	h1Re     = regexp.MustCompile(`(?m)^#\s+(.*?)\s*$`)
	anyHxRe  = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)
	refDefRe = regexp.MustCompile(`^\s{0,3}\[([^\]]+)\]:\s*(\S+)`)
)

// effectiveTitle resolves a section's display title: explicit Title, else
// first heading in content, else frontmatter "title", else empty.
func effectiveTitle(s Section) string {
	if s.Title != "" {
		return s.Title
	}
	for _, line := range strings.Split(s.Content, "\n") {
		if m := anyHxRe.FindStringSubmatch(line); m != nil {
			return m[2]
		}
	}
	if s.Frontmatter != nil {
		if t, ok := s.Frontmatter["title"].(string); ok {
			return t
		}
	}
	return ""
}

// assemble combines ordered sections into the final Result. primary is the
// index (within ordered) of the section whose frontmatter wins scalar
// conflicts.
func assemble(ordered []Section, primary int) *Result {
	res := &Result{Success: true}

	for _, s := range ordered {
		res.SourceFiles = append(res.SourceFiles, s.FilePath)
	}

	res.Conflicts = append(res.Conflicts, detectDuplicateHeaders(ordered)...)
	res.Frontmatter = mergeFrontmatter(ordered, primary, res)

	bodies := make([]string, 0, len(ordered))
	seenDefs := map[string]bool{}
	for _, s := range ordered {
		body, deduped := dedupeRefDefs(s.Content, seenDefs)
		res.DeduplicatedLinks = append(res.DeduplicatedLinks, deduped...)
		bodies = append(bodies, strings.TrimRight(body, "\n"))
	}

	var sb strings.Builder
	if len(res.Frontmatter) > 0 {
		out, err := yaml.Marshal(res.Frontmatter)
		if err == nil {
			sb.WriteString("---\n")
			sb.Write(out)
			sb.WriteString("---\n\n")
		}
	}
	sb.WriteString(strings.Join(bodies, "\n\n"))
	sb.WriteString("\n")
	res.Content = sb.String()
	return res
}

// detectDuplicateHeaders reports a duplicate-headers conflict for every
// top-level heading shared by two or more sections. Duplicates are reported,
// never renamed.
func detectDuplicateHeaders(ordered []Section) []models.MergeConflict {
	byHeading := map[string][]string{}
	var order []string
	for _, s := range ordered {
		seen := map[string]bool{}
		for _, m := range h1Re.FindAllStringSubmatch(s.Content, -1) {
			h := m[1]
			if seen[h] {
				continue
			}
			seen[h] = true
			if len(byHeading[h]) == 0 {
				order = append(order, h)
			}
			byHeading[h] = append(byHeading[h], s.FilePath)
		}
	}
	var out []models.MergeConflict
	for _, h := range order {
		files := byHeading[h]
		if len(files) < 2 {
			continue
		}
		out = append(out, models.MergeConflict{
			Type:         models.ConflictDuplicateHeaders,
			Description:  fmt.Sprintf("top-level heading %q appears in %d sections", h, len(files)),
			Files:        files,
			AutoResolved: false,
		})
	}
	return out
}

// mergeFrontmatter combines section frontmatter key-wise: array values are
// unioned, scalar conflicts resolve in favor of the primary section and are
// reported as auto-resolved conflicts.
func mergeFrontmatter(ordered []Section, primary int, res *Result) map[string]interface{} {
	if primary < 0 || primary >= len(ordered) {
		primary = 0
	}
	merged := map[string]interface{}{}
	conflictFiles := map[string][]string{}

	apply := func(s Section) {
		for k, v := range s.Frontmatter {
			existing, ok := merged[k]
			if !ok {
				merged[k] = cloneValue(v)
				continue
			}
			ea, eok := existing.([]interface{})
			va, vok := v.([]interface{})
			if eok && vok {
				merged[k] = unionArrays(ea, va)
				continue
			}
			if !equalValue(existing, v) {
				conflictFiles[k] = append(conflictFiles[k], s.FilePath)
			}
		}
	}

	// The primary section is applied first so its values are already in
	// place when the rest are folded in; scalar conflicts therefore always
	// resolve to the primary's value.
	if len(ordered) > 0 {
		apply(ordered[primary])
	}
	for i, s := range ordered {
		if i == primary {
			continue
		}
		apply(s)
	}

	keys := make([]string, 0, len(conflictFiles))
	for k := range conflictFiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		res.Conflicts = append(res.Conflicts, models.MergeConflict{
			Type:         models.ConflictFrontmatter,
			Description:  fmt.Sprintf("frontmatter key %q differs; primary section value kept", k),
			Files:        conflictFiles[k],
			AutoResolved: true,
		})
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

func cloneValue(v interface{}) interface{} {
	if a, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(a))
		copy(out, a)
		return out
	}
	return v
}

func equalValue(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func unionArrays(a, b []interface{}) []interface{} {
	seen := map[string]bool{}
	var out []interface{}
	for _, v := range append(append([]interface{}{}, a...), b...) {
		key := fmt.Sprintf("%v", v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// dedupeRefDefs drops reference definitions whose id+target has already been
// emitted by an earlier section, keeping the first occurrence.
func dedupeRefDefs(content string, seen map[string]bool) (string, []string) {
	lines := strings.Split(content, "\n")
	var kept []string
	var deduped []string
	for _, line := range lines {
		if m := refDefRe.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(m[1]) + "\x00" + m[2]
			if seen[key] {
				deduped = append(deduped, m[2])
				continue
			}
			seen[key] = true
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), deduped
}

// sortKey ranks a section alphabetically: by title when it has one, by file
// basename otherwise.
func sortKey(s Section) string {
	if t := effectiveTitle(s); t != "" {
		return strings.ToLower(t)
	}
	return strings.ToLower(baseName(s.FilePath))
}

func baseName(p string) string {
	p = pathutil.ToPortable(p)
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
