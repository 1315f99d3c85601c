package split

import "fmt"

// HeaderStrategy splits at every heading at the configured level. A section
// spans from its heading to just before the next heading at the same or a
// higher (more prominent) level. Content preceding the first section heading
// joins Result.Remaining.
type HeaderStrategy struct {
	// Level is the heading level sections open at (1–6).
	Level int
	// PreserveFrontmatter lifts a leading frontmatter block into Remaining
	// instead of leaving it inside the first section.
	PreserveFrontmatter bool
}

// Split implements Strategy.
func (s *HeaderStrategy) Split(content, filename string) *Result {
	res := &Result{}
	level := s.Level
	if level < 1 || level > 6 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: invalid heading level %d", filename, level))
		return res
	}

	body := content
	if s.PreserveFrontmatter {
		var fm string
		fm, body = ExtractFrontmatter(content)
		res.Remaining = fm
	}

	lines := splitLines(body)
	var preamble []string
	var current []string
	var currentTitle string
	open := false

	flush := func() {
		if !open {
			return
		}
		n := len(res.Sections) + 1
		title := currentTitle
		if title == "" {
			title = fmt.Sprintf("Section %d", n)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: empty heading for section %d", filename, n))
		}
		res.Sections = append(res.Sections, Section{
			Title:    title,
			Filename: sectionFilename(title, n),
			Content:  joinLines(current),
			Order:    n - 1,
		})
		current = nil
	}

	for _, line := range lines {
		if lv, text, ok := headingAt(line); ok && lv <= level {
			if lv == level {
				flush()
				open = true
				currentTitle = text
				current = append(current, line)
				continue
			}
			// A more prominent heading closes the current section and joins
			// the preamble/interstitial remainder.
			flush()
			open = false
		}
		if open {
			current = append(current, line)
		} else {
			preamble = append(preamble, line)
		}
	}
	flush()

	if len(res.Sections) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: no level-%d headings found", filename, level))
		return res
	}
	res.Remaining += joinLines(preamble)
	return res
}

// splitLines splits content into lines that each retain their trailing
// newline, so concatenating sections reconstructs the source byte-for-byte.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			out = append(out, content[start:i+1])
			start = i + 1
		}
	}
	if start < len(content) {
		out = append(out, content[start:])
	}
	return out
}

func joinLines(lines []string) string {
	var b []byte
	for _, l := range lines {
		b = append(b, l...)
	}
	return string(b)
}
