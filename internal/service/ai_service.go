package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/ai"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/repository"
)

// AIService fronts the gateway for the editor API and logs results as
// AIContent records.
type AIService struct {
	gw      *ai.Gateway
	records *repository.AIContentRepo
	log     *zap.Logger
	now     func() time.Time
}

// NewAIService builds the service. gw may be nil, in which case every
// call returns ErrAIDisabled.
func NewAIService(gw *ai.Gateway, records *repository.AIContentRepo, log *zap.Logger) *AIService {
	return &AIService{gw: gw, records: records, log: log.Named("ai"), now: func() time.Time { return time.Now().UTC() }}
}

func (s *AIService) Enabled() bool { return s.gw != nil }

type GenerateResult struct {
	*ai.GenerationResponse
	ID string `json:"id,omitempty"`
}

// Generate produces content and, when save is set, stores it as an
// AIContent record. A failed save is logged; the content is still returned.
func (s *AIService) Generate(ctx context.Context, req ai.GenerationRequest, save bool, author string) (*GenerateResult, error) {
	if s.gw == nil {
		return nil, ErrAIDisabled
	}
	if req.Type == "" || req.UserPrompt == "" {
		return nil, invalid("type and userPrompt are required")
	}
	resp, err := s.gw.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &GenerateResult{GenerationResponse: resp}
	if !save {
		return out, nil
	}
	rec := ai.Record(req, s.gw.Settings(req), resp, author, s.now())
	id, err := s.records.Create(ctx, &rec)
	if err != nil {
		s.log.Error("save generated content", zap.Error(err))
		return out, nil
	}
	out.ID = id
	return out, nil
}

// Improve rewrites content. With a record id the record's content is
// replaced and its regeneration count bumped.
func (s *AIService) Improve(ctx context.Context, text string, t ai.ImprovementType, focusKeyword, recordID string) (string, error) {
	if s.gw == nil {
		return "", ErrAIDisabled
	}
	if text == "" || t == "" {
		return "", invalid("content and improvementType are required")
	}
	switch t {
	case ai.ImproveSEO, ai.ImproveReadability, ai.ImproveEngagement, ai.ImproveGrammar:
	default:
		return "", invalid("unknown improvementType %q", t)
	}
	improved := s.gw.Improve(ctx, text, t, focusKeyword)
	if recordID == "" {
		return improved, nil
	}
	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return improved, err
	}
	if rec == nil {
		return improved, notFound("ai content")
	}
	rec.GeneratedContent = improved
	rec.Usage.RegenerationCount++
	rec.Costs.RequestCount++
	rec.UpdatedAt = s.now()
	if err := s.records.Update(ctx, rec); err != nil {
		return improved, fmt.Errorf("update ai content: %w", err)
	}
	return improved, nil
}

func (s *AIService) Translate(ctx context.Context, text, lang string, preserveFormatting bool) (string, error) {
	if s.gw == nil {
		return "", ErrAIDisabled
	}
	if text == "" || lang == "" {
		return "", invalid("content and targetLanguage are required")
	}
	return s.gw.Translate(ctx, text, lang, preserveFormatting), nil
}

func (s *AIService) SEOSuggestions(ctx context.Context, text, focusKeyword, title, description string) ([]models.SEOSuggestion, error) {
	if s.gw == nil {
		return nil, ErrAIDisabled
	}
	if text == "" || focusKeyword == "" {
		return nil, invalid("content and focusKeyword are required")
	}
	return s.gw.SEOSuggestions(ctx, text, focusKeyword, title, description), nil
}

func (s *AIService) List(ctx context.Context, typ models.AIContentType, skip, limit int) ([]models.AIContent, int, error) {
	return s.records.List(ctx, typ, skip, limit)
}
