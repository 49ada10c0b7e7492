package seo

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceRe = regexp.MustCompile(`[.!?]+`)

// Readability scores plain text from 0 to 100. Long sentences (over 20
// words) and long words (over 6 characters on average) cost points; each
// heading earns 2 points, at most 10. Empty text scores 0.
func Readability(plain string, headings int) int {
	var sentences int
	for _, s := range sentenceRe.Split(plain, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	words := strings.Fields(plain)
	if sentences == 0 || len(words) == 0 {
		return 0
	}

	chars := 0
	for _, w := range words {
		chars += utf8.RuneCountInString(w)
	}
	avgSentence := float64(len(words)) / float64(sentences)
	avgWord := float64(chars) / float64(len(words))

	score := 100.0
	if avgSentence > 20 {
		score -= (avgSentence - 20) * 2
	}
	if avgWord > 6 {
		score -= (avgWord - 6) * 5
	}
	score += math.Min(10, float64(headings)*2)
	return int(math.Max(0, math.Min(100, math.Round(score))))
}
