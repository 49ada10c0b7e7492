// Package lead turns form submissions into lead records and folds repeat
// submissions into an existing lead.
package lead

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/scoring"
)

// standardFields are mapped onto typed lead fields and never become custom
// fields.
var standardFields = map[string]bool{
	"email": true, "Email": true, "emailAddress": true,
	"name": true, "Name": true,
	"firstName": true, "first_name": true,
	"lastName": true, "last_name": true,
	"phone": true, "Phone": true,
	"company": true, "companyName": true,
	"website": true, "companyWebsite": true,
	"industry": true, "companySize": true,
	"jobTitle": true, "position": true,
	"budget": true, "authority": true, "need": true, "timeline": true,
	"tags": true, "honeypot": true, "_honeypot": true,
}

// NormalizeEmail returns the deduplication key of an address: NFKC
// normalized, trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(email)))
}

// Email returns the submitted address from the first populated alias.
func Email(data map[string]any) string {
	return first(data, "email", "Email", "emailAddress")
}

// Submitter derives the display identity of whoever sent the data.
func Submitter(data map[string]any) models.Submitter {
	return models.Submitter{Email: Email(data), Name: fullName(data)}
}

// Extract builds the lead fields carried by one submission. It does not set
// status, activities or history; Merge does that.
func Extract(form *models.Form, data map[string]any, score int) *models.Lead {
	l := &models.Lead{
		Email:     NormalizeEmail(Email(data)),
		Name:      fullName(data),
		FirstName: first(data, "firstName", "first_name"),
		LastName:  first(data, "lastName", "last_name"),
		Phone:     first(data, "phone", "Phone"),
		JobTitle:  first(data, "jobTitle", "position"),
		Company: models.Company{
			Name:     first(data, "company", "companyName"),
			Website:  first(data, "website", "companyWebsite"),
			Industry: first(data, "industry"),
			Size:     first(data, "companySize"),
		},
		Source: models.LeadSource{
			Type:     "contact_form",
			Form:     form.ID,
			Campaign: first(data, "utm_campaign"),
			Medium:   first(data, "utm_medium"),
			UTM:      UTM(data),
		},
		Scoring: models.LeadScoringState{
			Score: score,
			Grade: string(scoring.GradeOf(score)),
			Qualification: models.Qualification{
				Budget:    first(data, "budget"),
				Authority: first(data, "authority"),
				Need:      first(data, "need"),
				Timeline:  first(data, "timeline"),
			},
		},
		Tags: splitTags(first(data, "tags")),
	}

	for k, v := range data {
		if standardFields[k] || strings.HasPrefix(k, "utm_") {
			continue
		}
		l.CustomFields = append(l.CustomFields, models.CustomField{
			Name:  form.Label(k),
			Value: v,
			Type:  fieldType(v),
		})
	}
	sort.Slice(l.CustomFields, func(i, j int) bool { return l.CustomFields[i].Name < l.CustomFields[j].Name })
	return l
}

// UTM collects utm_* parameters keyed without their prefix.
func UTM(data map[string]any) map[string]string {
	out := map[string]string{}
	for _, k := range []string{"source", "medium", "campaign", "term", "content"} {
		if v := first(data, "utm_"+k); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fullName(data map[string]any) string {
	if n := first(data, "name", "Name"); n != "" {
		return n
	}
	return strings.TrimSpace(first(data, "firstName", "first_name") + " " + first(data, "lastName", "last_name"))
}

func first(data map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := data[k].(type) {
		case nil:
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func fieldType(v any) string {
	switch x := v.(type) {
	case float64, float32, int, int64:
		return "number"
	case bool:
		return "boolean"
	case string:
		if strings.HasPrefix(x, "http://") || strings.HasPrefix(x, "https://") {
			return "url"
		}
	}
	return "text"
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }
