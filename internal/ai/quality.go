package ai

import (
	"math"
	"regexp"
	"strings"

	"github.com/parisxmas/oxisite/internal/seo"
)

type price struct{ input, output float64 }

// per 1K tokens
var prices = map[string]price{
	"gpt-4":               {0.03, 0.06},
	"gpt-4-turbo-preview": {0.01, 0.03},
	"gpt-3.5-turbo":       {0.0015, 0.002},
}

// EstimateCost prices a token total assuming a 75/25 input/output split.
// Models outside the table cost 0.
func EstimateCost(model string, tokens int) float64 {
	p, ok := prices[model]
	if !ok {
		return 0
	}
	in := math.Floor(float64(tokens) * 0.75)
	out := math.Floor(float64(tokens) * 0.25)
	return (in*p.input + out*p.output) / 1000
}

var (
	htmlHeading     = regexp.MustCompile(`<h[1-6]`)
	markdownHeading = regexp.MustCompile(`(?m)^#+\s`)
)

// QualityScore grades generated content against the request that produced it.
func QualityScore(content string, r GenerationRequest) int {
	score := 100.0
	if r.WordCount > 0 {
		actual := len(strings.Fields(content))
		deviation := math.Abs(float64(actual-r.WordCount)) / float64(r.WordCount)
		if deviation > 0.2 {
			score -= 10
		}
	}
	if len(r.Keywords) > 0 {
		lower := strings.ToLower(content)
		included := 0
		for _, kw := range r.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				included++
			}
		}
		score = score - 20 + float64(included)/float64(len(r.Keywords))*20
	}
	if !htmlHeading.MatchString(content) && !markdownHeading.MatchString(content) {
		score -= 5
	}
	if !strings.Contains(content, "\n\n") {
		score -= 5
	}
	return int(math.Max(0, math.Min(100, math.Round(score))))
}

// ReadabilityScore is the SEO readability formula without heading credit.
func ReadabilityScore(content string) int {
	return seo.Readability(content, 0)
}
