package verifier

import (
	"maps"
	"slices"
	"sort"
)

func setOf(items []string) map[string]bool {
	set := map[string]bool{}
	for _, item := range items {
		set[item] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	return slices.Sorted(maps.Keys(set))
}

func sortedCopy(items []string) []string {
	sorted := slices.Clone(items)
	sort.Strings(sorted)
	return sorted
}

// difference returns the distinct items not in set, sorted.
func difference(items []string, set map[string]bool) []string {
	missing := map[string]bool{}
	for _, item := range items {
		if !set[item] {
			missing[item] = true
		}
	}
	return sortedKeys(missing)
}

// multisetDifference returns the items of a that are not matched by an item of b, counting duplicates.
func multisetDifference(a, b []string) []string {
	counts := map[string]int{}
	for _, item := range b {
		counts[item]++
	}

	var missing []string
	for _, item := range sortedCopy(a) {
		if counts[item] > 0 {
			counts[item]--
			continue
		}
		missing = append(missing, item)
	}
	return missing
}

func equalSets(a, b map[string]bool) bool {
	return maps.Equal(a, b)
}

func equalMultisets(a, b []string) bool {
	return slices.Equal(sortedCopy(a), sortedCopy(b))
}
