// Package scoring evaluates lead-scoring rules against submitted form data.
//
// Evaluation is additive: every rule whose condition holds contributes its
// points, the sum is clamped to [0, 100], and rule order never matters.
package scoring

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/parisxmas/oxisite/internal/models"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Evaluate returns the clamped score of data under rules.
func Evaluate(data map[string]any, rules []models.ScoringRule) int {
	score, _ := Explain(data, rules)
	return score
}

// Explain returns the clamped score and one detail per matching rule, in
// rule order.
func Explain(data map[string]any, rules []models.ScoringRule) (int, []models.ScoreDetail) {
	total := 0
	var details []models.ScoreDetail
	for _, r := range rules {
		v, present := data[r.Field]
		if !Matches(r, v, present) {
			continue
		}
		total += r.Score
		details = append(details, models.ScoreDetail{
			Field:     r.Field,
			Condition: r.Condition,
			Value:     v,
			Points:    r.Score,
		})
	}
	return Clamp(total), details
}

// Matches reports whether a single rule holds for a field value.
func Matches(r models.ScoringRule, v any, present bool) bool {
	switch r.Condition {
	case models.ConditionIsFilled:
		return present && IsFilled(v)
	case models.ConditionEquals:
		s, ok := stringOf(v)
		want, wok := stringOf(r.Value)
		return present && ok && wok && s == want
	case models.ConditionContains:
		s, ok := v.(string)
		want, wok := stringOf(r.Value)
		return present && ok && wok && strings.Contains(strings.ToLower(s), strings.ToLower(want))
	case models.ConditionGreaterThan, models.ConditionLessThan:
		n, ok := Number(v)
		want, wok := Number(r.Value)
		if !present || !ok || !wok {
			return false
		}
		if r.Condition == models.ConditionGreaterThan {
			return n > want
		}
		return n < want
	}
	return false
}

// IsFilled reports whether v is a non-nil, non-empty value.
func IsFilled(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	}
	return true
}

// Number coerces v to a float. Strings are parsed after trimming; empty
// strings, booleans and other types are not numeric.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func stringOf(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	}
	if f, ok := Number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// Clamp limits a raw score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
