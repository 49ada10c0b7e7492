package models

import "time"

type SubmissionStatus string

const (
	SubmissionNew       SubmissionStatus = "new"
	SubmissionReviewed  SubmissionStatus = "reviewed"
	SubmissionProcessed SubmissionStatus = "processed"
	SubmissionConverted SubmissionStatus = "converted"
	SubmissionSpam      SubmissionStatus = "spam"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// Stage is the pipeline position of a submission.
type Stage string

const (
	StageReceived         Stage = "received"
	StageSpamChecked      Stage = "spam-checked"
	StageScored           Stage = "scored"
	StageLeadUpserted     Stage = "lead-upserted"
	StageNotified         Stage = "notified"
	StageAnalyticsUpdated Stage = "analytics-updated"
	StageComplete         Stage = "complete"
)

type ErrorType string

const (
	ErrorEmail      ErrorType = "email"
	ErrorWebhook    ErrorType = "webhook"
	ErrorCRM        ErrorType = "crm"
	ErrorLead       ErrorType = "lead"
	ErrorValidation ErrorType = "validation"
	ErrorAnalytics  ErrorType = "analytics"
)

// ProcessingError is a non-fatal failure of one pipeline stage.
type ProcessingError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

type SpamReason string

const (
	SpamHoneypot          SpamReason = "honeypot"
	SpamSuspiciousIP      SpamReason = "suspicious_ip"
	SpamDuplicate         SpamReason = "duplicate"
	SpamInvalidEmail      SpamReason = "invalid_email"
	SpamKeywords          SpamReason = "spam_keywords"
	SpamTooFast           SpamReason = "too_fast"
	SpamBotDetected       SpamReason = "bot_detected"
	SpamSuspiciousPattern SpamReason = "suspicious_pattern"
)

type SpamFinding struct {
	Reason  SpamReason `json:"reason"`
	Details string     `json:"details,omitempty"`
}

type SpamCheck struct {
	IsSpam    bool          `json:"isSpam"`
	SpamScore int           `json:"spamScore"`
	Reasons   []SpamFinding `json:"spamReasons,omitempty"`
}

type ScoreDetail struct {
	Field     string    `json:"field"`
	Condition Condition `json:"condition"`
	Value     any       `json:"value,omitempty"`
	Points    int       `json:"points"`
}

type SubmissionScoring struct {
	Score     int           `json:"score"`
	Grade     string        `json:"grade,omitempty"`
	Qualified bool          `json:"qualified"`
	Details   []ScoreDetail `json:"scoringDetails,omitempty"`
}

type NotificationState struct {
	EmailSent     bool       `json:"emailSent"`
	EmailSentAt   *time.Time `json:"emailSentAt,omitempty"`
	WebhookSent   bool       `json:"webhookSent"`
	WebhookSentAt *time.Time `json:"webhookSentAt,omitempty"`
	CRMSynced     bool       `json:"crmSynced"`
	CRMSyncedAt   *time.Time `json:"crmSyncedAt,omitempty"`
}

type Processing struct {
	Stage         Stage             `json:"stage"`
	Processed     bool              `json:"processed"`
	ProcessedAt   *time.Time        `json:"processedAt,omitempty"`
	Notifications NotificationState `json:"notifications"`
	Errors        []ProcessingError `json:"errors,omitempty"`
}

type Submitter struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

type SubmissionMeta struct {
	// SubmissionTime is the seconds between form render and submit, when known.
	SubmissionTime *float64          `json:"submissionTime,omitempty"`
	PageURL        string            `json:"pageUrl,omitempty"`
	UTM            map[string]string `json:"utmParameters,omitempty"`
}

// Submission is a received form payload plus its processing state. Data is
// never modified after receipt.
type Submission struct {
	ID         string            `json:"_id,omitempty"`
	Reference  string            `json:"reference"`
	FormID     string            `json:"formId"`
	Data       map[string]any    `json:"data"`
	Submitter  Submitter         `json:"submitter"`
	Status     SubmissionStatus  `json:"status"`
	Spam       SpamCheck         `json:"spam"`
	Scoring    SubmissionScoring `json:"scoring"`
	Processing Processing        `json:"processing"`
	LeadID     string            `json:"lead,omitempty"`
	Metadata   SubmissionMeta    `json:"metadata"`
	Tags       []string          `json:"tags,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}
