package similarity

// Ratio is a character-level similarity measure in [0,1]: twice the
// number of matched characters over the total length, where matches are
// found by recursively locating the longest common substring and
// matching the pieces on each side of it.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	ra, rb := []rune(a), []rune(b)
	matched := matchCount(ra, rb)
	return 2.0 * float64(matched) / float64(len(ra)+len(rb))
}

func matchCount(a, b []rune) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchCount(a[:ai], b[:bi])
	total += matchCount(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonBlock(a, b []rune) (bestA, bestB, bestSize int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// lengths[j] holds the common-suffix length ending at a[i-1], b[j-1]
	// for the current row.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestSize {
					bestSize = curr[j]
					bestA = i - bestSize
					bestB = j - bestSize
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestA, bestB, bestSize
}
