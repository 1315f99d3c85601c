package split

import "fmt"

// SizeStrategy greedily accumulates lines until the next line would exceed a
// byte budget, then closes the section. A single line larger than the budget
// still becomes its own section.
type SizeStrategy struct {
	// MaxBytes is the per-section byte budget.
	MaxBytes            int
	PreserveFrontmatter bool
}

// Split implements Strategy.
func (s *SizeStrategy) Split(content, filename string) *Result {
	res := &Result{}
	if s.MaxBytes <= 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: invalid size budget %d", filename, s.MaxBytes))
		return res
	}

	body := content
	if s.PreserveFrontmatter {
		var fm string
		fm, body = ExtractFrontmatter(content)
		res.Remaining = fm
	}

	lines := splitLines(body)

	// Heading positions for titling: nearest preceding, else following.
	type heading struct {
		line int
		text string
	}
	var headings []heading
	for i, l := range lines {
		if _, text, ok := headingAt(l); ok && text != "" {
			headings = append(headings, heading{line: i, text: text})
		}
	}
	titleFor := func(startLine, n int) string {
		best := ""
		for _, h := range headings {
			if h.line <= startLine {
				best = h.text
			}
		}
		if best != "" {
			return best
		}
		for _, h := range headings {
			if h.line > startLine {
				return h.text
			}
		}
		return fmt.Sprintf("Part %d", n)
	}

	var current []string
	size := 0
	start := 0
	flush := func(next int) {
		if len(current) == 0 {
			return
		}
		n := len(res.Sections) + 1
		title := titleFor(start, n)
		res.Sections = append(res.Sections, Section{
			Title:    title,
			Filename: sectionFilename(title, n),
			Content:  joinLines(current),
			Order:    n - 1,
		})
		current = nil
		size = 0
		start = next
	}

	for i, line := range lines {
		if size > 0 && size+len(line) > s.MaxBytes {
			flush(i)
		}
		current = append(current, line)
		size += len(line)
	}
	flush(len(lines))

	if len(res.Sections) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: document is empty", filename))
	}
	return res
}
