package models

import "time"

type AIContentType string

const (
	AIBlogPost           AIContentType = "blog_post"
	AILandingPage        AIContentType = "landing_page"
	AIProductDescription AIContentType = "product_description"
	AIEmail              AIContentType = "email"
	AISocialMedia        AIContentType = "social_media"
	AIAdCopy             AIContentType = "ad_copy"
	AISEOContent         AIContentType = "seo_content"
	AIMetaDescription    AIContentType = "meta_description"
	AIContentImprovement AIContentType = "content_improvement"
	AITranslation        AIContentType = "translation"
)

type AIPrompt struct {
	UserPrompt     string   `json:"userPrompt"`
	SystemPrompt   string   `json:"systemPrompt,omitempty"`
	Tone           string   `json:"tone,omitempty"`
	TargetAudience string   `json:"targetAudience,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	WordCount      int      `json:"wordCount,omitempty"`
	Language       string   `json:"language,omitempty"`
}

type AISettings struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
}

type SEOSuggestion struct {
	Type       string `json:"type"`
	Suggestion string `json:"suggestion"`
	Priority   string `json:"priority"`
}

type AISEO struct {
	Enabled         bool            `json:"enabled"`
	FocusKeyword    string          `json:"focusKeyword,omitempty"`
	MetaTitle       string          `json:"metaTitle,omitempty"`
	MetaDescription string          `json:"metaDescription,omitempty"`
	Suggestions     []SEOSuggestion `json:"suggestions,omitempty"`
}

type AIQuality struct {
	Score            int `json:"score"`
	ReadabilityScore int `json:"readabilityScore"`
}

type AICosts struct {
	TokensUsed    int     `json:"tokensUsed"`
	EstimatedCost float64 `json:"estimatedCost"`
	RequestCount  int     `json:"requestCount"`
}

type AIUsage struct {
	Status            string   `json:"status"`
	RegenerationCount int      `json:"regenerationCount"`
	AppliedTo         []string `json:"appliedTo,omitempty"`
}

// AIContent records one generation or rewrite produced by the AI gateway.
type AIContent struct {
	ID               string        `json:"_id,omitempty"`
	Title            string        `json:"title"`
	Type             AIContentType `json:"type"`
	Prompt           AIPrompt      `json:"prompt"`
	Settings         AISettings    `json:"aiSettings"`
	GeneratedContent string        `json:"generatedContent"`
	SEO              AISEO         `json:"seoOptimization"`
	Quality          AIQuality     `json:"quality"`
	Costs            AICosts       `json:"costs"`
	Usage            AIUsage       `json:"usage"`
	Author           string        `json:"author,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
