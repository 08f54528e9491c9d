package matching

import "strings"

// MatchThreshold is the minimum similarity score accepted by fuzzy matching.
const MatchThreshold = 0.8

// Normalize lowercases a channel name, drops punctuation (keeping letters,
// digits and underscores) and collapses whitespace runs to a single space,
// so "Rai  Uno HD!" normalizes to "rai uno hd". Word boundaries survive:
// "A B" and "AB" stay distinct.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	space := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			space = true
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity scores two channel names in [0, 1] using Levenshtein distance
// over their normalized forms. Names that are identical after normalization
// score 1.0 before anything else is checked, so two empty names also score
// 1.0. The score is symmetric in its arguments.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	longer := len(na)
	if len(nb) > longer {
		longer = len(nb)
	}
	if longer == 0 {
		return 1.0
	}
	return float64(longer-levenshtein(na, nb)) / float64(longer)
}

// levenshtein computes the edit distance between two strings using the
// classic two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
