package split

import (
	"fmt"
	"sort"
)

// LineStrategy splits before explicit 1-based line numbers. Out-of-range
// numbers are dropped with a warning; an empty valid set after filtering is
// an error.
type LineStrategy struct {
	// Lines are the 1-based line numbers each new section starts at.
	Lines               []int
	PreserveFrontmatter bool
}

// Split implements Strategy.
func (s *LineStrategy) Split(content, filename string) *Result {
	res := &Result{}

	body := content
	offset := 0
	if s.PreserveFrontmatter {
		var fm string
		fm, body = ExtractFrontmatter(content)
		res.Remaining = fm
		offset = countLines(fm)
	}

	lines := splitLines(body)

	var valid []int
	seen := map[int]bool{}
	for _, n := range s.Lines {
		adjusted := n - offset
		// Splitting before the first line or past the end produces nothing.
		if adjusted < 2 || adjusted > len(lines) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: split line %d out of range, dropped", filename, n))
			continue
		}
		if !seen[adjusted] {
			seen[adjusted] = true
			valid = append(valid, adjusted)
		}
	}
	if len(valid) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: no valid split lines", filename))
		return res
	}
	sort.Ints(valid)

	prev := 0
	bounds := append(valid, len(lines)+1)
	for _, b := range bounds {
		block := lines[prev : b-1]
		prev = b - 1
		if len(block) == 0 {
			continue
		}
		n := len(res.Sections) + 1
		title := blockTitle(block, n)
		res.Sections = append(res.Sections, Section{
			Title:    title,
			Filename: sectionFilename(title, n),
			Content:  joinLines(block),
			Order:    n - 1,
		})
	}
	return res
}

func countLines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
