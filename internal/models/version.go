package models

import "time"

type VersionType string

const (
	VersionMajor VersionType = "major"
	VersionMinor VersionType = "minor"
	VersionPatch VersionType = "patch"
	VersionDraft VersionType = "draft"
)

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

type FieldChange struct {
	Field      string     `json:"field"`
	ChangeType ChangeType `json:"changeType"`
	OldValue   string     `json:"oldValue,omitempty"`
	NewValue   string     `json:"newValue,omitempty"`
}

type VersionMetrics struct {
	WordCount      int `json:"wordCount"`
	CharacterCount int `json:"characterCount"`
	ImageCount     int `json:"imageCount"`
	LinkCount      int `json:"linkCount"`
}

type Rollback struct {
	Reason       string     `json:"reason,omitempty"`
	RolledBackBy string     `json:"rolledBackBy,omitempty"`
	RolledBackAt *time.Time `json:"rolledBackAt,omitempty"`
}

// ContentVersion is an immutable snapshot of a content item.
type ContentVersion struct {
	ID               string         `json:"_id,omitempty"`
	Title            string         `json:"title"`
	ContentType      ContentKind    `json:"contentType"`
	ContentID        string         `json:"contentId"`
	Version          string         `json:"version"`
	VersionType      VersionType    `json:"versionType"`
	Author           string         `json:"author,omitempty"`
	ParentVersion    string         `json:"parentVersion,omitempty"`
	Snapshot         ContentItem    `json:"contentSnapshot"`
	Changes          []FieldChange  `json:"changes,omitempty"`
	ChangeLog        string         `json:"changeLog"`
	Status           ContentStatus  `json:"status"`
	IsCurrentVersion bool           `json:"isCurrentVersion"`
	Metrics          VersionMetrics `json:"metrics"`
	Rollback         Rollback       `json:"rollbackData"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// Workflow mirrors the editorial status of one content item.
type Workflow struct {
	ID          string        `json:"_id,omitempty"`
	Title       string        `json:"title"`
	ContentType ContentKind   `json:"contentType"`
	ContentID   string        `json:"contentId"`
	Status      ContentStatus `json:"status"`
	Author      string        `json:"author,omitempty"`
	AssignedTo  string        `json:"assignedTo,omitempty"`
	IsActive    bool          `json:"isActive"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
