package models

import "time"

type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadQualified   LeadStatus = "qualified"
	LeadOpportunity LeadStatus = "opportunity"
	LeadCustomer    LeadStatus = "customer"
	LeadLost        LeadStatus = "lost"
	LeadUnqualified LeadStatus = "unqualified"
	LeadCallback    LeadStatus = "callback"
	LeadNurture     LeadStatus = "nurture"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadQualified, LeadOpportunity, LeadCustomer,
		LeadLost, LeadUnqualified, LeadCallback, LeadNurture:
		return true
	}
	return false
}

type Company struct {
	Name     string `json:"name,omitempty"`
	Website  string `json:"website,omitempty"`
	Industry string `json:"industry,omitempty"`
	Size     string `json:"size,omitempty"`
}

type LeadSource struct {
	Type     string            `json:"type"`
	Form     string            `json:"form,omitempty"`
	Campaign string            `json:"campaign,omitempty"`
	Medium   string            `json:"medium,omitempty"`
	UTM      map[string]string `json:"utmParameters,omitempty"`
}

type Qualification struct {
	Budget    string `json:"budget,omitempty"`
	Authority string `json:"authority,omitempty"`
	Need      string `json:"need,omitempty"`
	Timeline  string `json:"timeline,omitempty"`
}

// ScoreChange is one append-only entry of a lead's scoring history.
type ScoreChange struct {
	Date          time.Time `json:"date"`
	PreviousScore int       `json:"previousScore"`
	NewScore      int       `json:"newScore"`
	Reason        string    `json:"reason"`
	Action        string    `json:"action"`
}

type LeadScoringState struct {
	Score         int           `json:"score"`
	Grade         string        `json:"grade"`
	Qualification Qualification `json:"qualification"`
	History       []ScoreChange `json:"scoringHistory"`
}

type CustomField struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Type  string `json:"type"`
}

type Activity struct {
	Type        string    `json:"type"`
	Subject     string    `json:"subject"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Outcome     string    `json:"outcome,omitempty"`
}

// Lead is a prospective customer, unique by normalized Email.
type Lead struct {
	ID           string           `json:"_id,omitempty"`
	Email        string           `json:"email"`
	Name         string           `json:"name,omitempty"`
	FirstName    string           `json:"firstName,omitempty"`
	LastName     string           `json:"lastName,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Company      Company          `json:"company"`
	JobTitle     string           `json:"jobTitle,omitempty"`
	Source       LeadSource       `json:"source"`
	Scoring      LeadScoringState `json:"scoring"`
	CustomFields []CustomField    `json:"customFields,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	Status       LeadStatus       `json:"status"`
	Activities   []Activity       `json:"activities,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
