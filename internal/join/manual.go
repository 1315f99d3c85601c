package join

import (
	"fmt"
	"sort"

	"github.com/starford/raido/internal/pathutil"
)

// ManualStrategy orders sections by an explicit file list. Input files absent
// from the list are appended afterward in alphabetical order; listed files
// absent from the input only produce a warning.
type ManualStrategy struct {
	// Order lists file paths in the desired output order.
	Order   []string
	Primary string
}

// Join implements Strategy.
func (s *ManualStrategy) Join(sections []Section) *Result {
	byPath := map[string]int{}
	for i, sec := range sections {
		byPath[pathutil.Normalize(sec.FilePath)] = i
	}

	var warnings []string
	used := make([]bool, len(sections))
	var ordered []Section
	for _, p := range s.Order {
		i, ok := byPath[pathutil.Normalize(p)]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("ordered file not among inputs: %s", p))
			continue
		}
		if used[i] {
			continue
		}
		used[i] = true
		ordered = append(ordered, sections[i])
	}

	var rest []Section
	for i, sec := range sections {
		if !used[i] {
			rest = append(rest, sec)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return sortKey(rest[i]) < sortKey(rest[j])
	})
	ordered = append(ordered, rest...)

	res := assemble(ordered, primaryIndex(ordered, s.Primary))
	res.Warnings = append(res.Warnings, warnings...)
	return res
}
