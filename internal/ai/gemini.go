package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini serves completions through the Google GenAI SDK. The model in each
// request is passed through, so callers should configure a gemini-* default.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ai: GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create GenAI client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(req.TopP))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &StatusError{Code: apiErr.Code, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("ai: GenAI generate failed: %w", err)
	}

	out := &Completion{Content: result.Text()}
	if result.UsageMetadata != nil {
		out.TotalTokens = int(result.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}
