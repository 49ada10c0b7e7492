package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/parisxmas/oxisite/internal/models"
)

const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultTopP        = 1.0
	DefaultTimeout     = 60 * time.Second
)

// Options configures a Gateway.
type Options struct {
	DefaultModel string
	// Timeout bounds each call whose context carries no deadline.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
	// Limiter paces outgoing requests. Nil means unpaced.
	Limiter *rate.Limiter
	Logger  *zap.Logger
}

// Gateway is the entry point for all AI features. Construct one per
// provider and pass it to whoever needs it.
type Gateway struct {
	provider Provider
	opts     Options
	log      *zap.Logger
	tokens   metric.Int64Counter
	cost     metric.Float64Counter
}

// NewGateway wraps provider with defaults and limits.
func NewGateway(provider Provider, opts Options) *Gateway {
	if opts.DefaultModel == "" {
		opts.DefaultModel = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	g := &Gateway{provider: provider, opts: opts, log: opts.Logger.Named("ai")}

	meter := otel.Meter("github.com/parisxmas/oxisite/internal/ai")
	g.tokens, _ = meter.Int64Counter("oxisite.ai.tokens",
		metric.WithDescription("Tokens consumed by AI requests"),
		metric.WithUnit("{token}"),
	)
	g.cost, _ = meter.Float64Counter("oxisite.ai.cost",
		metric.WithDescription("Estimated AI spend"),
		metric.WithUnit("USD"),
	)
	return g
}

// DefaultModelName is the model used when a request names none.
func (g *Gateway) DefaultModelName() string { return g.opts.DefaultModel }

// complete runs one provider call under the timeout, pacing and retry policy.
func (g *Gateway) complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.opts.Backoff << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if g.opts.Limiter != nil {
			if err := g.opts.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("ai: rate limit wait: %w", err)
			}
		}

		start := time.Now()
		c, err := g.provider.Complete(ctx, req)
		if err == nil {
			g.log.Debug("completion",
				zap.String("model", req.Model),
				zap.Int("tokens", c.TotalTokens),
				zap.Duration("took", time.Since(start)))
			attrs := metric.WithAttributes(attribute.String("model", req.Model))
			g.tokens.Add(ctx, int64(c.TotalTokens), attrs)
			g.cost.Add(ctx, EstimateCost(req.Model, c.TotalTokens), attrs)
			return c, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		g.log.Warn("completion failed, retrying",
			zap.String("model", req.Model), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, lastErr
}

// GenerationRequest carries the structured generation parameters.
type GenerationRequest struct {
	Type           models.AIContentType `json:"type"`
	UserPrompt     string               `json:"userPrompt"`
	SystemPrompt   string               `json:"systemPrompt,omitempty"`
	Keywords       []string             `json:"keywords,omitempty"`
	Tone           string               `json:"tone,omitempty"`
	TargetAudience string               `json:"targetAudience,omitempty"`
	WordCount      int                  `json:"wordCount,omitempty"`
	Language       string               `json:"language,omitempty"`
	FocusKeyword   string               `json:"focusKeyword,omitempty"`
	Model          string               `json:"model,omitempty"`
	// Temperature is nil when unset; zero is a valid deterministic setting.
	Temperature    *float64             `json:"temperature,omitempty"`
	MaxTokens      int                  `json:"maxTokens,omitempty"`
	TopP           float64              `json:"topP,omitempty"`
}

// GenerationResponse is what Generate returns to callers.
type GenerationResponse struct {
	Content          string                 `json:"content"`
	MetaTitle        string                 `json:"metaTitle,omitempty"`
	MetaDescription  string                 `json:"metaDescription,omitempty"`
	SEOSuggestions   []models.SEOSuggestion `json:"seoSuggestions,omitempty"`
	QualityScore     int                    `json:"qualityScore"`
	ReadabilityScore int                    `json:"readabilityScore"`
	TokensUsed       int                    `json:"tokensUsed"`
	EstimatedCost    float64                `json:"estimatedCost"`
}

// Settings resolves the model parameters a request will run with.
func (g *Gateway) Settings(r GenerationRequest) models.AISettings {
	s := models.AISettings{
		Model:       r.Model,
		Temperature: DefaultTemperature,
		MaxTokens:   r.MaxTokens,
		TopP:        r.TopP,
	}
	if r.Temperature != nil {
		s.Temperature = *r.Temperature
	}
	if s.Model == "" {
		s.Model = g.opts.DefaultModel
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	if s.TopP == 0 {
		s.TopP = DefaultTopP
	}
	return s
}

// Generate produces new content. Any provider failure is reported as
// ErrGenerationFailed. SEO metadata is requested only when a focus keyword
// is set and degrades to empty values on failure.
func (g *Gateway) Generate(ctx context.Context, r GenerationRequest) (*GenerationResponse, error) {
	s := g.Settings(r)
	c, err := g.complete(ctx, CompletionRequest{
		Model:       s.Model,
		System:      SystemPrompt(r),
		User:        r.UserPrompt,
		Temperature: s.Temperature,
		TopP:        s.TopP,
		MaxTokens:   s.MaxTokens,
	})
	if err != nil {
		g.log.Error("generate content", zap.String("type", string(r.Type)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	resp := &GenerationResponse{
		Content:          c.Content,
		TokensUsed:       c.TotalTokens,
		EstimatedCost:    EstimateCost(s.Model, c.TotalTokens),
		QualityScore:     QualityScore(c.Content, r),
		ReadabilityScore: ReadabilityScore(c.Content),
	}
	if r.FocusKeyword != "" {
		meta := g.metadata(ctx, c.Content, r.FocusKeyword, r.Language)
		resp.MetaTitle = meta.MetaTitle
		resp.MetaDescription = meta.MetaDescription
		resp.SEOSuggestions = meta.Suggestions
	}
	return resp, nil
}

type seoMetadata struct {
	MetaTitle       string                 `json:"metaTitle"`
	MetaDescription string                 `json:"metaDescription"`
	Suggestions     []models.SEOSuggestion `json:"suggestions"`
}

func (g *Gateway) metadata(ctx context.Context, content, focusKeyword, lang string) seoMetadata {
	system, user := metadataPrompts(content, focusKeyword, lang)
	c, err := g.complete(ctx, CompletionRequest{
		Model:       g.opts.DefaultModel,
		System:      system,
		User:        user,
		Temperature: 0.3,
		MaxTokens:   500,
	})
	var out seoMetadata
	if err != nil {
		g.log.Warn("seo metadata", zap.Error(err))
		return out
	}
	if err := json.Unmarshal([]byte(jsonBody(c.Content)), &out); err != nil {
		g.log.Warn("seo metadata: unparsable response", zap.Error(err))
		return seoMetadata{}
	}
	return out
}

// Improve rewrites content for the given goal. On failure the original
// content comes back unchanged.
func (g *Gateway) Improve(ctx context.Context, content string, t ImprovementType, focusKeyword string) string {
	c, err := g.complete(ctx, CompletionRequest{
		Model:       g.opts.DefaultModel,
		System:      improvementPrompt(t, focusKeyword),
		User:        "Improve this content:\n\n" + content,
		Temperature: 0.3,
		MaxTokens:   3000,
	})
	if err != nil || c.Content == "" {
		if err != nil {
			g.log.Warn("improve content", zap.String("type", string(t)), zap.Error(err))
		}
		return content
	}
	return c.Content
}

// Translate translates content into lang. On failure the original content
// comes back unchanged.
func (g *Gateway) Translate(ctx context.Context, content, lang string, preserveFormatting bool) string {
	c, err := g.complete(ctx, CompletionRequest{
		Model:       g.opts.DefaultModel,
		System:      translationPrompt(lang, preserveFormatting),
		User:        content,
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil || c.Content == "" {
		if err != nil {
			g.log.Warn("translate content", zap.String("lang", lang), zap.Error(err))
		}
		return content
	}
	return c.Content
}

// SEOSuggestions asks for actionable suggestions around focusKeyword.
// Failure or unparsable output yields an empty list.
func (g *Gateway) SEOSuggestions(ctx context.Context, content, focusKeyword, title, description string) []models.SEOSuggestion {
	system, user := suggestionPrompts(content, focusKeyword, title, description)
	c, err := g.complete(ctx, CompletionRequest{
		Model:       g.opts.DefaultModel,
		System:      system,
		User:        user,
		Temperature: 0.2,
		MaxTokens:   1000,
	})
	if err != nil {
		g.log.Warn("seo suggestions", zap.Error(err))
		return []models.SEOSuggestion{}
	}
	var out []models.SEOSuggestion
	if err := json.Unmarshal([]byte(jsonBody(c.Content)), &out); err != nil || out == nil {
		return []models.SEOSuggestion{}
	}
	return out
}

// MetaDescription writes a 150-160 character description for a page.
func (g *Gateway) MetaDescription(ctx context.Context, title, content string) (string, error) {
	c, err := g.complete(ctx, CompletionRequest{
		Model:       g.opts.DefaultModel,
		System:      "Generate only a meta description between 150-160 characters that accurately describes the content and encourages clicks.",
		User:        fmt.Sprintf("Generate a compelling meta description for this content: %s\n\nContent: %s...", title, truncate(content, 500)),
		Temperature: 0.3,
		MaxTokens:   100,
	})
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(c.Content), `"`), nil
}

// jsonBody strips a Markdown code fence around a JSON answer.
func jsonBody(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Record builds the AIContent entry that logs a generation.
func Record(r GenerationRequest, s models.AISettings, resp *GenerationResponse, author string, now time.Time) models.AIContent {
	return models.AIContent{
		Title: fmt.Sprintf("AI Generated %s - %s", strings.Replace(string(r.Type), "_", " ", 1), now.Format("1/2/2006")),
		Type:  r.Type,
		Prompt: models.AIPrompt{
			UserPrompt:     r.UserPrompt,
			SystemPrompt:   r.SystemPrompt,
			Tone:           r.Tone,
			TargetAudience: r.TargetAudience,
			Keywords:       r.Keywords,
			WordCount:      r.WordCount,
			Language:       r.Language,
		},
		Settings:         s,
		GeneratedContent: resp.Content,
		SEO: models.AISEO{
			Enabled:         r.FocusKeyword != "",
			FocusKeyword:    r.FocusKeyword,
			MetaTitle:       resp.MetaTitle,
			MetaDescription: resp.MetaDescription,
			Suggestions:     resp.SEOSuggestions,
		},
		Quality:   models.AIQuality{Score: resp.QualityScore, ReadabilityScore: resp.ReadabilityScore},
		Costs:     models.AICosts{TokensUsed: resp.TokensUsed, EstimatedCost: resp.EstimatedCost, RequestCount: 1},
		Usage:     models.AIUsage{Status: "draft"},
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
