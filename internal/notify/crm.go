package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/scoring"
)

const (
	hubspotBaseURL   = "https://api.hubapi.com"
	pipedriveBaseURL = "https://api.pipedrive.com/v1"
	salesforceAPI    = "/services/data/v59.0/sobjects/Lead/"
)

// MapFields applies a form's field mapping. Fields that are not filled in
// are skipped.
func MapFields(mapping []models.FieldMapping, data map[string]any) map[string]any {
	out := map[string]any{}
	for _, m := range mapping {
		if v, ok := data[m.FormField]; ok && scoring.IsFilled(v) {
			out[m.CRMField] = v
		}
	}
	return out
}

// SyncCRM pushes a lead to the form's CRM.
func (n *Notifier) SyncCRM(ctx context.Context, crm models.CRMIntegration, data map[string]any, leadID string) error {
	mapped := MapFields(crm.FieldMapping, data)
	var (
		endpoint string
		payload  any
		headers  = map[string]string{}
	)

	switch crm.Provider {
	case models.CRMCustom:
		if crm.APIURL == "" {
			return fmt.Errorf("custom CRM has no API URL")
		}
		endpoint = crm.APIURL
		headers["Authorization"] = "Bearer " + crm.APIKey
		payload = map[string]any{"leadId": leadID, "data": mapped, "originalData": data}

	case models.CRMHubSpot:
		endpoint = baseOr(crm.APIURL, hubspotBaseURL) + "/crm/v3/objects/contacts"
		headers["Authorization"] = "Bearer " + crm.APIKey
		props := map[string]any{
			"email":     lead.Email(data),
			"firstname": str(data, "firstName", "first_name"),
			"lastname":  str(data, "lastName", "last_name"),
			"phone":     str(data, "phone", "Phone"),
			"company":   str(data, "company", "companyName"),
		}
		payload = map[string]any{"properties": overlay(props, mapped)}

	case models.CRMPipedrive:
		endpoint = baseOr(crm.APIURL, pipedriveBaseURL) + "/persons?api_token=" + url.QueryEscape(crm.APIKey)
		person := map[string]any{"name": personName(data)}
		if e := lead.Email(data); e != "" {
			person["email"] = []string{e}
		}
		if p := str(data, "phone", "Phone"); p != "" {
			person["phone"] = []string{p}
		}
		payload = overlay(person, mapped)

	case models.CRMSalesforce:
		if crm.APIURL == "" {
			return fmt.Errorf("salesforce CRM needs the instance URL")
		}
		endpoint = strings.TrimRight(crm.APIURL, "/") + salesforceAPI
		headers["Authorization"] = "Bearer " + crm.APIKey
		rec := map[string]any{
			"FirstName":  str(data, "firstName", "first_name"),
			"LastName":   orUnknown(str(data, "lastName", "last_name")),
			"Email":      lead.Email(data),
			"Company":    orUnknown(str(data, "company", "companyName")),
			"Phone":      str(data, "phone", "Phone"),
			"LeadSource": "Web",
		}
		payload = overlay(rec, mapped)

	default:
		return fmt.Errorf("unsupported CRM provider: %s", crm.Provider)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal CRM payload: %w", err)
	}
	status, err := n.post(ctx, endpoint, body, headers)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%s sync failed with status %d", crm.Provider, status)
	}
	return nil
}

func baseOr(v, def string) string {
	if v == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}

func str(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func personName(data map[string]any) string {
	if name := str(data, "name", "Name"); name != "" {
		return name
	}
	if name := strings.TrimSpace(str(data, "firstName", "first_name") + " " + str(data, "lastName", "last_name")); name != "" {
		return name
	}
	return lead.Email(data)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// overlay drops empty defaults and lets mapped fields win.
func overlay(base, mapped map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(mapped))
	for k, v := range base {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	for k, v := range mapped {
		out[k] = v
	}
	return out
}
