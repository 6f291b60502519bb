package tornado

import "slices"

// FindCombinations returns the cartesian product of the selection lists, the
// last list varying fastest. No lists give a single empty combination; any
// empty list gives none.
func FindCombinations(selections [][]string) [][]string {
	out := [][]string{{}}
	for _, sel := range selections {
		next := make([][]string, 0, len(out)*len(sel))
		for _, prefix := range out {
			for _, v := range sel {
				next = append(next, append(slices.Clone(prefix), v))
			}
		}
		out = next
	}
	return out
}
