// Package ai wraps a text-completion provider with prompt templating,
// cost estimation and quality heuristics.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrGenerationFailed is the single error Generate reports for any provider
// failure. The underlying cause is wrapped.
var ErrGenerationFailed = errors.New("failed to generate content")

// CompletionRequest is one system+user exchange.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Completion is the provider's answer.
type Completion struct {
	Content     string
	TotalTokens int
}

// Provider is a chat-style completion backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// StatusError is an HTTP-level rejection from a provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai: provider returned status %d: %s", e.Code, e.Body)
}

// retryable reports whether err is worth another attempt: transport
// failures, 429 and 5xx. Context expiry never is.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
