// Package split divides one Markdown document into ordered sections.
//
// Four strategies are provided: by heading level, by byte-size budget, by
// explicit marker comments, and by explicit line numbers. Every strategy can
// lift a leading frontmatter block out of the section bodies into
// Result.Remaining.
package split

import (
	"fmt"
	"regexp"
	"strings"
)

// Section is one partition of the source document.
type Section struct {
	Title    string
	Filename string
	Content  string
	Order    int
}

// Result is the outcome of a split. Errors are per-document and never abort
// a batch; warnings do not affect success.
type Result struct {
	Sections  []Section
	Remaining string
	Errors    []string
	Warnings  []string
}

// Strategy partitions content into sections. filename is the source
// document's name, used for fallback titling.
type Strategy interface {
	Split(content, filename string) *Result
}

var (
	headingLineRe = regexp.MustCompile(`^(#{1,6})(?:\s+(.*?))?\s*$`)
	slugStripRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// maxFallbackTitleLen bounds titles derived from body text.
const maxFallbackTitleLen = 50

// Slugify converts a section title to a filename stem.
func Slugify(title string) string {
	slug := strings.Trim(slugStripRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	return slug
}

// sectionFilename derives a section's output filename from its title, with a
// numbered fallback for unusable titles.
func sectionFilename(title string, n int) string {
	if slug := Slugify(title); slug != "" {
		return slug + ".md"
	}
	return fmt.Sprintf("section-%d.md", n)
}

// ExtractFrontmatter returns the leading frontmatter block (delimiters
// included, trailing newline kept) and the remaining body. Content without
// frontmatter is returned unchanged.
func ExtractFrontmatter(content string) (string, string) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", content
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[:i+1], "\n") + "\n", strings.Join(lines[i+1:], "\n")
		}
	}
	return "", content
}

// headingAt parses a heading line, returning its level and text.
func headingAt(line string) (int, string, bool) {
	m := headingLineRe.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}

// firstHeadingTitle returns the text of the first heading among lines.
func firstHeadingTitle(lines []string) (string, bool) {
	for _, l := range lines {
		if _, text, ok := headingAt(l); ok {
			return text, true
		}
	}
	return "", false
}

// truncateTitle shortens body-derived titles to a displayable length.
func truncateTitle(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxFallbackTitleLen {
		return s[:maxFallbackTitleLen]
	}
	return s
}
