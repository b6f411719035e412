package confstore

import (
	"slices"
	"strings"
)

// sortedPaths orders paths segment by segment, comparing index segments
// numerically so that items.2 precedes items.10.
func sortedPaths[V any](m map[string]V) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, comparePaths)
	return paths
}

func comparePaths(a, b string) int {
	as, bs := strings.Split(a, Separator), strings.Split(b, Separator)
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aok := asIndex(as[i])
		bi, bok := asIndex(bs[i])
		switch {
		case aok && bok:
			if ai != bi {
				return ai - bi
			}
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return len(as) - len(bs)
}

// SortedPaths returns the keys of a flat projection in path order.
func SortedPaths(flat map[string]string) []string {
	return sortedPaths(flat)
}
