package models

import "time"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type IssueCategory string

const (
	CategoryTitle       IssueCategory = "title"
	CategoryDescription IssueCategory = "description"
	CategoryContent     IssueCategory = "content"
	CategoryKeywords    IssueCategory = "keywords"
	CategoryImages      IssueCategory = "images"
	CategoryLinks       IssueCategory = "links"
	CategoryTechnical   IssueCategory = "technical"
)

type SEOIssue struct {
	Severity   Severity      `json:"type"`
	Category   IssueCategory `json:"category"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
}

type BasicSEO struct {
	MetaTitle       string   `json:"metaTitle,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	FocusKeyword    string   `json:"focusKeyword,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	CanonicalURL    string   `json:"canonicalUrl,omitempty"`
}

// TechnicalSEO carries crawler directives. A nil Sitemap means "include".
type TechnicalSEO struct {
	Robots          string   `json:"robots,omitempty"`
	Sitemap         *bool    `json:"sitemap,omitempty"`
	Priority        *float64 `json:"priority,omitempty"`
	ChangeFrequency string   `json:"changeFrequency,omitempty"`
}

// InSitemap reports whether the item may be listed in sitemap.xml.
func (t TechnicalSEO) InSitemap() bool {
	return t.Sitemap == nil || *t.Sitemap
}

type SEOAnalysis struct {
	SEOScore         int        `json:"seoScore"`
	ReadabilityScore int        `json:"readabilityScore"`
	Issues           []SEOIssue `json:"issues"`
	LastAnalyzed     *time.Time `json:"lastAnalyzed,omitempty"`
}

type StructuredDataSettings struct {
	SchemaType string `json:"schemaType,omitempty"`
}

// SEORecord is the per-content SEO metadata and the latest analysis.
type SEORecord struct {
	ID             string                 `json:"_id,omitempty"`
	Title          string                 `json:"title,omitempty"`
	ContentType    ContentKind            `json:"contentType"`
	ContentID      string                 `json:"contentId"`
	URL            string                 `json:"url,omitempty"`
	BasicSEO       BasicSEO               `json:"basicSeo"`
	TechnicalSEO   TechnicalSEO           `json:"technicalSeo"`
	StructuredData StructuredDataSettings `json:"structuredData"`
	Analysis       SEOAnalysis            `json:"analysis"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}
