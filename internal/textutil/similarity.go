package textutil

import "strings"

// SimilarityRatio computes the Ratcliff/Obershelp similarity of two strings
// after lowercasing and trimming. The result is in [0, 1], where 1 means the
// normalized strings are identical. Two empty strings score 1; one empty
// string against a non-empty one scores 0.
func SimilarityRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	ra := []rune(a)
	rb := []rune(b)
	matched := matchingRunes(ra, rb)
	return 2 * float64(matched) / float64(len(ra)+len(rb))
}

// matchingRunes counts the total length of aligned matching blocks: the
// longest common substring is found, then the regions to its left and right
// are matched recursively.
func matchingRunes(a, b []rune) int {
	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingRunes(a[:aStart], b[:bStart])
	total += matchingRunes(a[aStart+size:], b[bStart+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (aStart, bStart, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// lengths[j] holds the match length ending at a[i-1], b[j-1] for the
	// previous row of the DP table.
	lengths := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prevDiag := 0
		for j := 1; j <= len(b); j++ {
			tmp := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = prevDiag + 1
				if lengths[j] > size {
					size = lengths[j]
					aStart = i - size
					bStart = j - size
				}
			} else {
				lengths[j] = 0
			}
			prevDiag = tmp
		}
	}
	return aStart, bStart, size
}
