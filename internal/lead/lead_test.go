package lead

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/oxisite/internal/models"
)

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orig := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = orig })
	return ts
}

var demoForm = &models.Form{
	ID:   "12",
	Name: "Demo request",
	Fields: []models.FieldDefinition{
		{Name: "seats", Label: "Number of seats"},
	},
}

func TestExtract(t *testing.T) {
	data := map[string]any{
		"Email":        "  Ada@Example.COM ",
		"first_name":   "Ada",
		"lastName":     "Lovelace",
		"companyName":  "Analytical Engines",
		"position":     "CTO",
		"budget":       "50k",
		"utm_campaign": "spring",
		"utm_source":   "newsletter",
		"seats":        25.0,
		"homepage":     "https://ada.example.com",
		"newsletter":   true,
		"tags":         "enterprise, demo ,",
	}
	l := Extract(demoForm, data, 65)

	assert.Equal(t, "ada@example.com", l.Email)
	assert.Equal(t, "Ada Lovelace", l.Name)
	assert.Equal(t, "Ada", l.FirstName)
	assert.Equal(t, "Analytical Engines", l.Company.Name)
	assert.Equal(t, "CTO", l.JobTitle)
	assert.Equal(t, "50k", l.Scoring.Qualification.Budget)
	assert.Equal(t, "warm", l.Scoring.Grade)
	assert.Equal(t, "contact_form", l.Source.Type)
	assert.Equal(t, "spring", l.Source.Campaign)
	assert.Equal(t, map[string]string{"campaign": "spring", "source": "newsletter"}, l.Source.UTM)
	assert.Equal(t, []string{"enterprise", "demo"}, l.Tags)
	assert.Equal(t, []models.CustomField{
		{Name: "Number of seats", Value: 25.0, Type: "number"},
		{Name: "homepage", Value: "https://ada.example.com", Type: "url"},
		{Name: "newsletter", Value: true, Type: "boolean"},
	}, l.CustomFields)
}

func TestNormalizeEmailFoldsWidthAndCase(t *testing.T) {
	// fullwidth letters normalize to ASCII under NFKC
	assert.Equal(t, "ada@example.com", NormalizeEmail("ＡＤＡ@example.com"))
}

func TestMergeNewLead(t *testing.T) {
	ts := fixedNow(t)
	l := Merge(nil, Extract(demoForm, map[string]any{"email": "a@b.com"}, 40), "Demo request")

	assert.Equal(t, models.LeadNew, l.Status)
	assert.Equal(t, ts, l.CreatedAt)
	require.Len(t, l.Scoring.History, 1)
	assert.Equal(t, models.ScoreChange{Date: ts, PreviousScore: 0, NewScore: 40, Reason: "Form submission", Action: "Form: Demo request"}, l.Scoring.History[0])
	require.Len(t, l.Activities, 1)
	assert.Equal(t, "Initial form submission: Demo request", l.Activities[0].Subject)
	assert.Equal(t, "Lead created from form submission with score: 40", l.Activities[0].Description)
}

func TestMergeExistingLeadKeepsUnsentFields(t *testing.T) {
	fixedNow(t)
	first := Merge(nil, Extract(demoForm, map[string]any{"email": "a@b.com", "phone": "123", "tags": "a"}, 30), "Demo request")
	first.Status = models.LeadContacted

	second := Merge(first, Extract(demoForm, map[string]any{"email": "a@b.com", "company": "Acme", "tags": "a,b"}, 70), "Pricing")

	assert.Equal(t, "123", second.Phone)
	assert.Equal(t, "Acme", second.Company.Name)
	assert.Equal(t, models.LeadContacted, second.Status)
	assert.Equal(t, 70, second.Scoring.Score)
	assert.Equal(t, "warm", second.Scoring.Grade)
	assert.Equal(t, []string{"a", "b"}, second.Tags)
	require.Len(t, second.Scoring.History, 2)
	assert.Equal(t, 30, second.Scoring.History[1].PreviousScore)
	assert.Equal(t, 70, second.Scoring.History[1].NewScore)
	require.Len(t, second.Activities, 2)
	assert.Equal(t, "Form submission: Pricing", second.Activities[1].Subject)
	// the stored lead is not mutated
	assert.Len(t, first.Scoring.History, 1)
}
