package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/oxisite/internal/models"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   []CompletionRequest
	replies []string
	errs    []error
	tokens  int
}

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &Completion{Content: reply, TotalTokens: f.tokens}, nil
}

func newGateway(p Provider, retries int) *Gateway {
	return NewGateway(p, Options{MaxRetries: retries, Backoff: time.Millisecond})
}

func TestSystemPrompt(t *testing.T) {
	got := SystemPrompt(GenerationRequest{
		Type:           models.AIBlogPost,
		Tone:           "friendly",
		TargetAudience: "CTOs",
		Language:       "de",
		Keywords:       []string{"crm", "sales"},
		FocusKeyword:   "lead scoring",
		WordCount:      800,
		SystemPrompt:   "No emojis.",
	})
	want := "You are a professional content writer specializing in blog post. " +
		"Write in a friendly tone. " +
		"Target audience: CTOs. " +
		"Write in German. " +
		"Include these keywords naturally: crm, sales. " +
		`Focus keyword for SEO: "lead scoring". Use it naturally throughout the content. ` +
		"Target word count: approximately 800 words. " +
		"Create high-quality, engaging, and original content. Use proper formatting with headings, paragraphs, and lists where appropriate." +
		"\n\nAdditional instructions: No emojis."
	assert.Equal(t, want, got)
}

func TestSystemPromptMinimal(t *testing.T) {
	got := SystemPrompt(GenerationRequest{Type: models.AIProductDescription, Language: "en"})
	assert.Equal(t, "You are a professional content writer specializing in product description. "+
		"Create high-quality, engaging, and original content. Use proper formatting with headings, paragraphs, and lists where appropriate.", got)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Japanese", LanguageName("ja"))
	assert.Equal(t, "Spanish", LanguageName("es"))
	assert.Equal(t, "English", LanguageName("not a language"))
}

func TestEstimateCost(t *testing.T) {
	// 1000 tokens: 750 in, 250 out
	assert.InDelta(t, (750*0.03+250*0.06)/1000, EstimateCost("gpt-4", 1000), 1e-9)
	assert.InDelta(t, (7*0.0015+2*0.002)/1000, EstimateCost("gpt-3.5-turbo", 10), 1e-12)
	assert.Equal(t, 0.0, EstimateCost("gemini-2.5-flash", 1000))
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name    string
		content string
		req     GenerationRequest
		want    int
	}{
		{"structured", "# Title\n\nBody text.", GenerationRequest{}, 100},
		{"html heading", "<h2>Title</h2>\n\nBody", GenerationRequest{}, 100},
		{"no structure", "just one line", GenerationRequest{}, 90},
		{"word count off", "# T\n\none two three", GenerationRequest{WordCount: 100}, 90},
		{"word count within 20%", "# T\n\none two three four", GenerationRequest{WordCount: 5}, 100},
		{"half the keywords", "# T\n\nCRM tips", GenerationRequest{Keywords: []string{"crm", "pipeline"}}, 90},
		{"heading not at line start", "text # not a heading\n\nmore", GenerationRequest{}, 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QualityScore(tt.content, tt.req))
		})
	}
}

func TestGenerate(t *testing.T) {
	p := &fakeProvider{
		tokens: 1000,
		replies: []string{
			"# Lead scoring\n\nLead scoring ranks contacts.",
			"```json\n{\"metaTitle\":\"Lead scoring guide\",\"metaDescription\":\"Learn lead scoring.\",\"suggestions\":[{\"type\":\"meta\",\"suggestion\":\"Shorten\",\"priority\":\"low\"}]}\n```",
		},
	}
	g := newGateway(p, 0)

	resp, err := g.Generate(context.Background(), GenerationRequest{
		Type:         models.AIBlogPost,
		UserPrompt:   "Write about lead scoring",
		FocusKeyword: "lead scoring",
	})
	require.NoError(t, err)
	assert.Equal(t, "# Lead scoring\n\nLead scoring ranks contacts.", resp.Content)
	assert.Equal(t, 1000, resp.TokensUsed)
	assert.InDelta(t, 0.0375, resp.EstimatedCost, 1e-9)
	assert.Equal(t, 100, resp.QualityScore)
	assert.Equal(t, "Lead scoring guide", resp.MetaTitle)
	assert.Equal(t, "Learn lead scoring.", resp.MetaDescription)
	require.Len(t, resp.SEOSuggestions, 1)

	require.Len(t, p.calls, 2)
	assert.Equal(t, "gpt-4", p.calls[0].Model)
	assert.Equal(t, 0.7, p.calls[0].Temperature)
	assert.Equal(t, 2000, p.calls[0].MaxTokens)
	assert.Equal(t, 1.0, p.calls[0].TopP)
	assert.Equal(t, "Write about lead scoring", p.calls[0].User)
	assert.Equal(t, 0.3, p.calls[1].Temperature)
	assert.Equal(t, 500, p.calls[1].MaxTokens)
}

func TestGenerateZeroTemperature(t *testing.T) {
	p := &fakeProvider{replies: []string{"body"}}
	g := newGateway(p, 0)
	zero := 0.0
	_, err := g.Generate(context.Background(), GenerationRequest{Type: models.AIEmail, UserPrompt: "x", Temperature: &zero})
	require.NoError(t, err)
	require.Len(t, p.calls, 1)
	assert.Equal(t, 0.0, p.calls[0].Temperature)
}

func TestSettingsTemperatureFromJSON(t *testing.T) {
	g := newGateway(&fakeProvider{}, 0)
	tests := []struct {
		body string
		want float64
	}{
		{`{"type":"email"}`, DefaultTemperature},
		{`{"type":"email","temperature":0}`, 0},
		{`{"type":"email","temperature":1.2}`, 1.2},
	}
	for _, tt := range tests {
		var req GenerationRequest
		require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
		assert.Equal(t, tt.want, g.Settings(req).Temperature, tt.body)
	}
}

func TestGenerateMetadataFailureDegrades(t *testing.T) {
	p := &fakeProvider{replies: []string{"body", "not json"}}
	resp, err := newGateway(p, 0).Generate(context.Background(), GenerationRequest{
		Type: models.AIBlogPost, UserPrompt: "x", FocusKeyword: "k",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.MetaTitle)
	assert.Empty(t, resp.SEOSuggestions)
}

func TestGenerateFailure(t *testing.T) {
	p := &fakeProvider{errs: []error{&StatusError{Code: 401, Body: "bad key"}}}
	_, err := newGateway(p, 3).Generate(context.Background(), GenerationRequest{Type: models.AIEmail, UserPrompt: "x"})
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Len(t, p.calls, 1, "401 is not retried")
}

func TestRetryOnServerErrors(t *testing.T) {
	p := &fakeProvider{
		errs:    []error{&StatusError{Code: 503}, &StatusError{Code: 429}},
		replies: []string{"", "", "third time"},
	}
	got := newGateway(p, 2).Translate(context.Background(), "hallo", "English", true)
	assert.Equal(t, "third time", got)
	assert.Len(t, p.calls, 3)
}

func TestRetriesExhausted(t *testing.T) {
	p := &fakeProvider{errs: []error{&StatusError{Code: 500}, &StatusError{Code: 500}, &StatusError{Code: 500}}}
	got := newGateway(p, 1).Improve(context.Background(), "original", ImproveGrammar, "")
	assert.Equal(t, "original", got)
	assert.Len(t, p.calls, 2)
}

func TestImprovePrompts(t *testing.T) {
	p := &fakeProvider{replies: []string{"better"}}
	got := newGateway(p, 0).Improve(context.Background(), "draft", ImproveSEO, "crm")
	assert.Equal(t, "better", got)
	require.Len(t, p.calls, 1)
	assert.Contains(t, p.calls[0].System, `Focus on the keyword "crm".`)
	assert.Equal(t, "Improve this content:\n\ndraft", p.calls[0].User)
	assert.Equal(t, 3000, p.calls[0].MaxTokens)
}

func TestTranslatePrompt(t *testing.T) {
	assert.Equal(t,
		"You are a professional translator. Translate the following content to French. Focus on natural, fluent translation. Maintain the original tone and style.",
		translationPrompt("French", false))
}

func TestSEOSuggestionsBadOutput(t *testing.T) {
	p := &fakeProvider{replies: []string{"I think you should..."}}
	got := newGateway(p, 0).SEOSuggestions(context.Background(), "c", "k", "", "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Contains(t, p.calls[0].User, "Current Title: Not provided")
}

func TestTimeoutAppliedWithoutDeadline(t *testing.T) {
	var deadline time.Time
	p := providerFunc(func(ctx context.Context, _ CompletionRequest) (*Completion, error) {
		deadline, _ = ctx.Deadline()
		return &Completion{Content: "ok"}, nil
	})
	g := NewGateway(p, Options{Timeout: time.Minute})
	_, err := g.MetaDescription(context.Background(), "t", "c")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

type providerFunc func(context.Context, CompletionRequest) (*Completion, error)

func (f providerFunc) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	return f(ctx, req)
}

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	p := NewOpenAI("sk-test", srv.URL+"/v1/", srv.Client())
	c, err := p.Complete(context.Background(), CompletionRequest{Model: "gpt-4", System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "hi", c.Content)
	assert.Equal(t, 42, c.TotalTokens)
}

func TestOpenAIProviderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAI("k", srv.URL, nil).Complete(context.Background(), CompletionRequest{Model: "gpt-4"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 429, se.Code)
	assert.True(t, retryable(err))
}

func TestOpenAIProviderNoKey(t *testing.T) {
	_, err := NewOpenAI("", "", nil).Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.False(t, retryable(err))
}

func TestRecord(t *testing.T) {
	now := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	g := newGateway(&fakeProvider{}, 0)
	req := GenerationRequest{Type: models.AISocialMedia, UserPrompt: "p", FocusKeyword: "k"}
	rec := Record(req, g.Settings(req), &GenerationResponse{Content: "c", TokensUsed: 10}, "7", now)
	assert.Equal(t, "AI Generated social media - 3/7/2026", rec.Title)
	assert.Equal(t, "gpt-4", rec.Settings.Model)
	assert.True(t, rec.SEO.Enabled)
	assert.Equal(t, 1, rec.Costs.RequestCount)
	assert.Equal(t, "draft", rec.Usage.Status)
	assert.True(t, strings.HasPrefix(rec.GeneratedContent, "c"))
}
