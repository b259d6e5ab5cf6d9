package bills

import (
	"cmp"
	"slices"
)

// ByDateDesc compares bills latest first by their ISO date.
func ByDateDesc(a, b Bill) int {
	return cmp.Compare(b.Date, a.Date)
}

// SortByDateDesc orders bills from latest to earliest by their ISO date.
// Equal dates keep their original order. The input slice is not modified.
func SortByDateDesc(list []Bill) []Bill {
	sorted := slices.Clone(list)
	slices.SortStableFunc(sorted, ByDateDesc)
	return sorted
}
