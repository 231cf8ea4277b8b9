package service

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMatchThreshold is the minimum length ratio for a containment match.
const DefaultMatchThreshold = 0.8

// WinnerMultiplier is applied once per round to the first correct guess.
const WinnerMultiplier = 1.5

var (
	punctuation = regexp.MustCompile(`[^\w\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]`)
)

// leading articles dropped before the containment test
var articles = []string{"the ", "a ", "an "}

// Normalize lowercases s, strips punctuation, collapses whitespace and trims.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctuation.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func stripArticle(s string) string {
	for _, a := range articles {
		if strings.HasPrefix(s, a) {
			return strings.TrimSpace(s[len(a):])
		}
	}
	return s
}

// FuzzyMatch reports whether guess should be credited as answer. Equal normalized
// strings match; otherwise one must contain the other and the shorter must be at
// least threshold of the longer's length.
func FuzzyMatch(guess, answer string, threshold float64) bool {
	g, a := Normalize(guess), Normalize(answer)
	if g == "" || a == "" {
		return false
	}
	if g == a || stripArticle(g) == stripArticle(a) {
		return true
	}
	if !strings.Contains(g, a) && !strings.Contains(a, g) {
		return false
	}
	lg, la := utf8.RuneCountInString(g), utf8.RuneCountInString(a)
	ratio := float64(min(lg, la)) / float64(max(lg, la))
	return ratio >= threshold
}

// IsCloseMatch reports whether guess is within two edits of answer, comparing
// only ASCII letters and digits. It drives the "you're close" hint and never
// awards credit.
func IsCloseMatch(guess, answer string) bool {
	g := nonAlnum.ReplaceAllString(strings.ToLower(guess), "")
	a := nonAlnum.ReplaceAllString(strings.ToLower(answer), "")
	if g == "" || a == "" {
		return false
	}
	return levenshtein(g, a) <= 2
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Score decays linearly from 100 at the round start to 50 at its end.
// Callers must pass totalMs > 0 and elapsedMs >= 0.
func Score(elapsedMs, totalMs int64) int {
	speed := 1 - math.Min(float64(elapsedMs)/float64(totalMs), 1)
	return 50 + int(math.Round(speed*50))
}

// AwardedScore is Score with the winner bonus applied when first is true.
func AwardedScore(elapsedMs, totalMs int64, first bool) float64 {
	s := float64(Score(elapsedMs, totalMs))
	if first {
		return s * WinnerMultiplier
	}
	return s
}
