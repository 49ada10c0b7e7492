package models

import "time"

type FormType string

const (
	FormContact           FormType = "contact"
	FormLeadGeneration    FormType = "lead_generation"
	FormNewsletter        FormType = "newsletter"
	FormSurvey            FormType = "survey"
	FormEventRegistration FormType = "event_registration"
	FormJobApplication    FormType = "job_application"
	FormOrder             FormType = "order_form"
	FormFeedback          FormType = "feedback"
	FormContest           FormType = "contest"
	FormCallback          FormType = "callback"
	FormQuote             FormType = "quote"
	FormSupport           FormType = "support"
	FormCustom            FormType = "custom"
)

type FormStatus string

const (
	FormDraft    FormStatus = "draft"
	FormActive   FormStatus = "active"
	FormPaused   FormStatus = "paused"
	FormArchived FormStatus = "archived"
)

// FieldDefinition describes one input of a form.
type FieldDefinition struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Required    bool     `json:"required,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	// Indexed asks for a submissions index on this field.
	Indexed bool `json:"indexed,omitempty"`
}

type Condition string

const (
	ConditionEquals      Condition = "equals"
	ConditionContains    Condition = "contains"
	ConditionGreaterThan Condition = "greater_than"
	ConditionLessThan    Condition = "less_than"
	ConditionIsFilled    Condition = "is_filled"
)

// ScoringRule adds Score points when Field satisfies Condition against Value.
// Score may be negative.
type ScoringRule struct {
	Field     string    `json:"field"`
	Condition Condition `json:"condition"`
	Value     any       `json:"value,omitempty"`
	Score     int       `json:"score"`
}

type LeadScoring struct {
	Enabled                bool          `json:"enabled"`
	Rules                  []ScoringRule `json:"scoringRules,omitempty"`
	QualificationThreshold *int          `json:"qualificationThreshold,omitempty"`
}

// Threshold returns the qualification threshold, 50 when unset.
func (l LeadScoring) Threshold() int {
	if l.QualificationThreshold == nil {
		return 50
	}
	return *l.QualificationThreshold
}

type FormSettings struct {
	Honeypot                 bool   `json:"honeypot"`
	AllowMultipleSubmissions bool   `json:"allowMultipleSubmissions"`
	SuccessMessage           string `json:"successMessage,omitempty"`
	RedirectURL              string `json:"redirectUrl,omitempty"`
}

type NotificationEmail struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type AutoResponder struct {
	Enabled bool   `json:"enabled"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
}

type FormNotifications struct {
	EmailNotifications bool                `json:"emailNotifications"`
	NotificationEmails []NotificationEmail `json:"notificationEmails,omitempty"`
	AutoResponder      AutoResponder       `json:"autoResponder"`
	WebhookURL         string              `json:"webhookUrl,omitempty"`
	WebhookSecret      string              `json:"webhookSecret,omitempty"`
}

type CRMProvider string

const (
	CRMSalesforce CRMProvider = "salesforce"
	CRMHubSpot    CRMProvider = "hubspot"
	CRMPipedrive  CRMProvider = "pipedrive"
	CRMZoho       CRMProvider = "zoho"
	CRMCustom     CRMProvider = "custom"
)

type FieldMapping struct {
	FormField string `json:"formField"`
	CRMField  string `json:"crmField"`
}

type CRMIntegration struct {
	Enabled      bool           `json:"enabled"`
	Provider     CRMProvider    `json:"provider,omitempty"`
	APIKey       string         `json:"apiKey,omitempty"`
	APIURL       string         `json:"apiUrl,omitempty"`
	FieldMapping []FieldMapping `json:"fieldMapping,omitempty"`
}

type FormIntegrations struct {
	CRM CRMIntegration `json:"crm"`
}

// FormAnalytics holds the per-form counters. ConversionRate is
// submissions/views and 0 while there are no views.
type FormAnalytics struct {
	Submissions    int64      `json:"submissions"`
	Views          int64      `json:"views"`
	ConversionRate float64    `json:"conversionRate"`
	LastSubmission *time.Time `json:"lastSubmission,omitempty"`
}

type Form struct {
	ID            string            `json:"_id,omitempty"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Description   string            `json:"description,omitempty"`
	Type          FormType          `json:"type"`
	Status        FormStatus        `json:"status"`
	Fields        []FieldDefinition `json:"fields"`
	Schema        string            `json:"schema,omitempty"` // JSON Schema for submitted data
	Settings      FormSettings      `json:"settings"`
	Notifications FormNotifications `json:"notifications"`
	LeadScoring   LeadScoring       `json:"leadScoring"`
	Integrations  FormIntegrations  `json:"integrations"`
	Analytics     FormAnalytics     `json:"analytics"`
	CreatedBy     string            `json:"createdBy,omitempty"`
	CreatedAt     string            `json:"createdAt"`
	UpdatedAt     string            `json:"updatedAt"`
}

// Label returns the display label of a field, or the field name itself.
func (f *Form) Label(name string) string {
	for _, fd := range f.Fields {
		if fd.Name == name && fd.Label != "" {
			return fd.Label
		}
	}
	return name
}
