package join

import (
	"regexp"
	"sort"
	"time"
)

// ChronologicalStrategy orders sections by a date taken from frontmatter,
// else from a filename date pattern. Undated sections sort last, preserving
// their relative input order.
type ChronologicalStrategy struct {
	Primary string
}

var filenameDateRe = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// dateFormats accepted in frontmatter "date" values, most specific first.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Join implements Strategy.
func (s *ChronologicalStrategy) Join(sections []Section) *Result {
	type dated struct {
		sec  Section
		when time.Time
		ok   bool
	}
	items := make([]dated, len(sections))
	for i, sec := range sections {
		when, ok := sectionDate(sec)
		items[i] = dated{sec: sec, when: when, ok: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok // dated entries precede undated ones
		}
		if !items[i].ok {
			return false // undated: keep input order
		}
		return items[i].when.Before(items[j].when)
	})
	ordered := make([]Section, len(items))
	for i, it := range items {
		ordered[i] = it.sec
	}
	return assemble(ordered, primaryIndex(ordered, s.Primary))
}

// sectionDate extracts a section's date: frontmatter first, filename pattern
// second.
func sectionDate(s Section) (time.Time, bool) {
	if s.Frontmatter != nil {
		switch v := s.Frontmatter["date"].(type) {
		case time.Time:
			return v, true
		case string:
			for _, f := range dateFormats {
				if t, err := time.Parse(f, v); err == nil {
					return t, true
				}
			}
		}
	}
	if m := filenameDateRe.FindString(baseName(s.FilePath)); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
