package lead

import (
	"fmt"
	"time"

	"github.com/parisxmas/oxisite/internal/models"
)

// Merge folds the lead fields of one submission into existing (nil for a new
// lead) and returns the lead to store. Every call appends exactly one
// scoring-history entry and one note activity. Fields the submission does
// not carry keep their stored values; the newest score replaces the old one.
func Merge(existing, incoming *models.Lead, formName string) *models.Lead {
	ts := now()
	score := incoming.Scoring.Score

	if existing == nil {
		l := *incoming
		l.Status = models.LeadNew
		l.CreatedAt = ts
		l.UpdatedAt = ts
		l.Scoring.History = []models.ScoreChange{historyEntry(ts, 0, score, formName)}
		l.Activities = []models.Activity{{
			Type:        "note",
			Subject:     "Initial form submission: " + formName,
			Description: fmt.Sprintf("Lead created from form submission with score: %d", score),
			Date:        ts,
		}}
		return &l
	}

	l := *existing
	setIf(&l.Name, incoming.Name)
	setIf(&l.FirstName, incoming.FirstName)
	setIf(&l.LastName, incoming.LastName)
	setIf(&l.Phone, incoming.Phone)
	setIf(&l.JobTitle, incoming.JobTitle)
	setIf(&l.Company.Name, incoming.Company.Name)
	setIf(&l.Company.Website, incoming.Company.Website)
	setIf(&l.Company.Industry, incoming.Company.Industry)
	setIf(&l.Company.Size, incoming.Company.Size)
	q := &l.Scoring.Qualification
	setIf(&q.Budget, incoming.Scoring.Qualification.Budget)
	setIf(&q.Authority, incoming.Scoring.Qualification.Authority)
	setIf(&q.Need, incoming.Scoring.Qualification.Need)
	setIf(&q.Timeline, incoming.Scoring.Qualification.Timeline)

	l.CustomFields = mergeCustomFields(existing.CustomFields, incoming.CustomFields)
	l.Tags = mergeTags(existing.Tags, incoming.Tags)

	prev := existing.Scoring.Score
	l.Scoring.Score = score
	l.Scoring.Grade = incoming.Scoring.Grade
	l.Scoring.History = append(append([]models.ScoreChange(nil), existing.Scoring.History...),
		historyEntry(ts, prev, score, formName))
	l.Activities = append(append([]models.Activity(nil), existing.Activities...), models.Activity{
		Type:        "note",
		Subject:     "Form submission: " + formName,
		Description: fmt.Sprintf("New form submission received with score: %d", score),
		Date:        ts,
	})
	if l.Status == "" {
		l.Status = models.LeadNew
	}
	l.UpdatedAt = ts
	return &l
}

func historyEntry(ts time.Time, prev, next int, formName string) models.ScoreChange {
	return models.ScoreChange{
		Date:          ts,
		PreviousScore: prev,
		NewScore:      next,
		Reason:        "Form submission",
		Action:        "Form: " + formName,
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeCustomFields(old, fresh []models.CustomField) []models.CustomField {
	out := append([]models.CustomField(nil), old...)
	for _, f := range fresh {
		replaced := false
		for i := range out {
			if out[i].Name == f.Name {
				out[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, f)
		}
	}
	return out
}

func mergeTags(old, fresh []string) []string {
	seen := make(map[string]bool, len(old)+len(fresh))
	var out []string
	for _, t := range append(append([]string(nil), old...), fresh...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
