// Package spam scores submissions for bot and junk signals.
package spam

import (
	"fmt"
	"sort"
	"strings"

	"github.com/parisxmas/oxisite/internal/models"
)

const (
	// Threshold is the score at which a submission is treated as spam.
	Threshold = 50

	honeypotPoints = 100
	tooFastPoints  = 50
	keywordPoints  = 25
	patternPoints  = 30

	// MinSubmitSeconds is the fastest plausible human fill-in time.
	MinSubmitSeconds = 3.0
)

// Keywords are matched case-insensitively against all submitted values.
var Keywords = []string{"viagra", "casino", "lottery", "winner", "congratulations", "click here"}

// HoneypotFields are hidden inputs humans never fill in.
var HoneypotFields = []string{"honeypot", "_honeypot"}

// Meta carries request facts that are not part of the submitted data.
type Meta struct {
	// SubmitSeconds is the time between render and submit; nil when unknown.
	SubmitSeconds *float64
}

// Detect runs every signal and sums their points. The reported score is
// capped at 100.
func Detect(data map[string]any, meta Meta) models.SpamCheck {
	var (
		score   int
		reasons []models.SpamFinding
	)

	for _, f := range HoneypotFields {
		if s := text(data[f]); s != "" {
			score += honeypotPoints
			reasons = append(reasons, models.SpamFinding{Reason: models.SpamHoneypot, Details: "honeypot field filled"})
			break
		}
	}

	if meta.SubmitSeconds != nil && *meta.SubmitSeconds < MinSubmitSeconds {
		score += tooFastPoints
		reasons = append(reasons, models.SpamFinding{
			Reason:  models.SpamTooFast,
			Details: fmt.Sprintf("submitted in %.1fs", *meta.SubmitSeconds),
		})
	}

	joined := strings.ToLower(joinValues(data))
	for _, kw := range Keywords {
		if strings.Contains(joined, kw) {
			score += keywordPoints
			reasons = append(reasons, models.SpamFinding{Reason: models.SpamKeywords, Details: "contains: " + kw})
		}
	}

	email := text(data["email"])
	if email != "" && text(data["name"]) == email {
		score += patternPoints
		reasons = append(reasons, models.SpamFinding{Reason: models.SpamSuspiciousPattern, Details: "name matches email"})
	}

	if score > 100 {
		score = 100
	}
	return models.SpamCheck{IsSpam: score >= Threshold, SpamScore: score, Reasons: reasons}
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// joinValues concatenates values in key order so results are stable.
func joinValues(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, text(data[k]))
	}
	return strings.Join(parts, " ")
}
