package textutil

import (
	"strings"
	"unicode"
)

// similarityCap bounds the compared prefix so one pathological description
// cannot stall the O(n*m) matcher.
const similarityCap = 1200

// NormalizeForCompare lowercases, replaces everything that is not a letter,
// digit or space with a space, and collapses whitespace. Shared by the
// similarity ratio and the title+month dedup key.
func NormalizeForCompare(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity returns a ratio in [0,1] between two texts after
// NormalizeForCompare, computed as 2*M/(len(a)+len(b)) where M is the number
// of matching runes in the longest common subsequence. This mirrors the
// SequenceMatcher ratio the dedup thresholds were tuned against.
func Similarity(a, b string) float64 {
	na := []rune(NormalizeForCompare(a))
	nb := []rune(NormalizeForCompare(b))
	if len(na) == 0 || len(nb) == 0 {
		return 0
	}
	if len(na) > similarityCap {
		na = na[:similarityCap]
	}
	if len(nb) > similarityCap {
		nb = nb[:similarityCap]
	}

	m := lcsLength(na, nb)
	return 2 * float64(m) / float64(len(na)+len(nb))
}

// lcsLength computes the longest common subsequence length with two rolling
// rows.
func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
