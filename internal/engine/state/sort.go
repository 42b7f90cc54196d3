package state

import (
	"sort"

	"github.com/sahilm/fuzzy"
)

func sortMatches(matches fuzzy.Matches, exact func(i int) bool) {
	sort.SliceStable(matches, func(i, j int) bool {
		ei, ej := exact(matches[i].Index), exact(matches[j].Index)
		if ei != ej {
			return ei
		}
		return matches[i].Score > matches[j].Score
	})
}
