package split

import (
	"fmt"
	"strings"
)

// DefaultMarkers are the marker spellings recognized out of the box.
var DefaultMarkers = []string{"<!-- split -->", "<!--split-->"}

// MarkerStrategy splits at explicit marker comments. Marker lines are
// consumed, not copied into any section.
type MarkerStrategy struct {
	// Markers overrides DefaultMarkers when non-empty.
	Markers             []string
	PreserveFrontmatter bool
}

func (s *MarkerStrategy) markers() []string {
	if len(s.Markers) > 0 {
		return s.Markers
	}
	return DefaultMarkers
}

func (s *MarkerStrategy) isMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, m := range s.markers() {
		if trimmed == m {
			return true
		}
	}
	return false
}

// Split implements Strategy.
func (s *MarkerStrategy) Split(content, filename string) *Result {
	res := &Result{}

	body := content
	if s.PreserveFrontmatter {
		var fm string
		fm, body = ExtractFrontmatter(content)
		res.Remaining = fm
	}

	lines := splitLines(body)
	var blocks [][]string
	var current []string
	sawMarker := false
	for _, line := range lines {
		if s.isMarker(line) {
			sawMarker = true
			blocks = append(blocks, current)
			current = nil
			continue
		}
		current = append(current, line)
	}
	blocks = append(blocks, current)

	if !sawMarker {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: no split markers found", filename))
		return res
	}

	for _, block := range blocks {
		if isBlank(block) {
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
	if len(res.Sections) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: markers produced no non-empty sections", filename))
	}
	return res
}

// blockTitle titles a section from its first heading, else its first
// non-empty line truncated for display.
func blockTitle(block []string, n int) string {
	if t, ok := firstHeadingTitle(block); ok && t != "" {
		return t
	}
	for _, l := range block {
		if t := truncateTitle(l); t != "" {
			return t
		}
	}
	return fmt.Sprintf("Section %d", n)
}

func isBlank(block []string) bool {
	for _, l := range block {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}
