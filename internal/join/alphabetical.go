package join

import "sort"

// AlphabeticalStrategy orders sections by extracted title, case-insensitive.
// Titleless sections rank by their file basename.
type AlphabeticalStrategy struct {
	Primary string
}

// Join implements Strategy.
func (s *AlphabeticalStrategy) Join(sections []Section) *Result {
	ordered := make([]Section, len(sections))
	copy(ordered, sections)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sortKey(ordered[i]) < sortKey(ordered[j])
	})
	return assemble(ordered, primaryIndex(ordered, s.Primary))
}
