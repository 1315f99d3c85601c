package join

import (
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/pathutil"
)

// DependencyStrategy topologically sorts sections so every section appears
// after the sections it declares as dependencies. A dependency cycle emits
// exactly one warning and falls back to the declared input order instead of
// failing.
type DependencyStrategy struct {
	// Primary designates the section (by file path) whose frontmatter wins
	// scalar merge conflicts; empty means the first ordered section.
	Primary string
}

// Join implements Strategy.
func (s *DependencyStrategy) Join(sections []Section) *Result {
	ordered, cyclic := topoSort(sections)
	if cyclic {
		ordered = sections
	}
	res := assemble(ordered, primaryIndex(ordered, s.Primary))
	if cyclic {
		res.Warnings = append(res.Warnings, "circular dependency between sections; falling back to declared order")
		res.Conflicts = append(res.Conflicts, models.MergeConflict{
			Type:         models.ConflictCircularDependency,
			Description:  "dependency graph contains a cycle; declared order used",
			Files:        filePaths(sections),
			AutoResolved: true,
		})
	}
	return res
}

// topoSort orders sections dependencies-first using Kahn's algorithm with the
// declared order as tie-break, so acyclic inputs always order
// deterministically. Dependencies naming files outside the section set are
// ignored.
func topoSort(sections []Section) ([]Section, bool) {
	index := map[string]int{}
	for i, s := range sections {
		index[pathutil.Normalize(s.FilePath)] = i
	}

	// dependents[i] lists sections that must come after i.
	dependents := make([][]int, len(sections))
	indegree := make([]int, len(sections))
	for i, s := range sections {
		for _, dep := range s.Dependencies {
			j, ok := index[pathutil.Normalize(dep)]
			if !ok || j == i {
				continue
			}
			dependents[j] = append(dependents[j], i)
			indegree[i]++
		}
	}

	var ready []int
	for i := range sections {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	var order []int
	for len(ready) > 0 {
		// Lowest declared index first keeps the result deterministic.
		min := 0
		for k := range ready {
			if ready[k] < ready[min] {
				min = k
			}
		}
		n := ready[min]
		ready = append(ready[:min], ready[min+1:]...)
		order = append(order, n)
		for _, d := range dependents[n] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	if len(order) != len(sections) {
		return nil, true
	}

	out := make([]Section, len(order))
	for i, n := range order {
		out[i] = sections[n]
	}
	return out, false
}

func primaryIndex(ordered []Section, primary string) int {
	if primary == "" {
		return 0
	}
	want := pathutil.Normalize(primary)
	for i, s := range ordered {
		if pathutil.Normalize(s.FilePath) == want {
			return i
		}
	}
	return 0
}

func filePaths(sections []Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.FilePath
	}
	return out
}
