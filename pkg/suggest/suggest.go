// Package suggest picks the closest known name for a misspelled one, for
// "did you mean" hints in error messages.
package suggest

// Distance returns the Levenshtein edit distance between a and b in runes:
// the minimum number of single-rune insertions, deletions or substitutions
// turning one into the other. It uses a single row of O(len(a)) space.
func Distance(a, b string) int {
	s1 := []rune(a)
	s2 := []rune(b)

	if len(s2) == 0 {
		return len(s1)
	}

	column := make([]int, len(s1)+1)
	for i := 1; i <= len(s1); i++ {
		column[i] = i
	}

	for col, r2 := range s2 {
		column[0] = col + 1
		lastdiag := col

		for row, r1 := range s1 {
			olddiag := column[row+1]

			cost := 0
			if r1 != r2 {
				cost = 1
			}

			column[row+1] = min(column[row+1]+1, column[row]+1, lastdiag+cost)
			lastdiag = olddiag
		}
	}

	return column[len(s1)]
}

// Closest returns the candidate nearest to name. A candidate qualifies when
// it is at most a third of name's length away (rounded up) and does not
// replace name entirely. Ties go to the earlier candidate.
func Closest(name string, candidates []string) (string, bool) {
	n := len([]rune(name))
	limit := (n + 2) / 3

	best, bestDist := "", limit+1

	for _, c := range candidates {
		if c == name {
			continue
		}

		d := Distance(name, c)
		if d < bestDist && d < n {
			best, bestDist = c, d
		}
	}

	return best, best != ""
}
