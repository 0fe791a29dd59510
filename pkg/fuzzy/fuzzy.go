// Package fuzzy scores free text against a short query with typo tolerance.
package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LevenshteinDistance calculates the edit distance between two strings after
// normalization
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(Normalize(s1))
	r2 := []rune(Normalize(s2))
	return distance(r1, r2)
}

func distance(r1, r2 []rune) int {
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rows are enough
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// Threshold is the edit distance tolerated for a query word of n runes
func Threshold(n int) int {
	switch {
	case n <= 3:
		return 0
	case n <= 5:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// Score rates how well text matches query. Zero means no match. A phrase
// found verbatim scores highest; otherwise every query word adds the score
// of its best matching text word, and a query word with no acceptable match
// makes the whole score zero.
func Score(query, text string) float64 {
	q := Normalize(query)
	t := Normalize(text)
	if q == "" || t == "" {
		return 0
	}

	if strings.Contains(t, q) {
		score := 100.0
		if containsPhrase(t, q) {
			score += 50
		}
		return score
	}

	words := strings.Fields(t)
	total := 0.0
	for _, qw := range strings.Fields(q) {
		best := wordScore([]rune(qw), words)
		if best == 0 {
			return 0
		}
		total += best
	}
	return total / float64(len(strings.Fields(q)))
}

func wordScore(qw []rune, words []string) float64 {
	limit := Threshold(len(qw))
	best := 0.0
	for _, w := range words {
		wr := []rune(w)
		var s float64
		switch {
		case string(wr) == string(qw):
			s = 80
		case len(wr) > len(qw) && string(wr[:len(qw)]) == string(qw):
			s = 60
		default:
			if d := distance(qw, wr); d <= limit {
				s = 50 - float64(d)*15
			}
		}
		if s > best {
			best = s
		}
	}
	return best
}

// Match reports whether text matches query at all
func Match(query, text string) bool {
	return Score(query, text) > 0
}

// Normalize lowercases s, strips diacritics and punctuation and collapses
// whitespace
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "đ", "d")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '@' || r == '.' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// containsPhrase checks that q occurs in t on word boundaries
func containsPhrase(t, q string) bool {
	return strings.Contains(" "+t+" ", " "+q+" ")
}
