package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/ai"
	"github.com/parisxmas/oxisite/internal/content"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/repository"
	"github.com/parisxmas/oxisite/internal/seo"
)

// SEOService analyzes content, keeps SEO records current and feeds the
// sitemap generator.
type SEOService struct {
	items   *repository.ContentRepo
	records *repository.SEORepo
	ai      *ai.Gateway
	siteURL string
	org     seo.Organization
	// autoOptimize adds AI suggestions to the analysis of published items.
	autoOptimize bool
	log          *zap.Logger
	now          func() time.Time
}

type SEOOptions struct {
	SiteURL      string
	Organization seo.Organization
	AutoOptimize bool
}

// NewSEOService builds the service. gw may be nil when AI is disabled.
func NewSEOService(items *repository.ContentRepo, records *repository.SEORepo, gw *ai.Gateway, opts SEOOptions, log *zap.Logger) *SEOService {
	if opts.Organization.URL == "" {
		opts.Organization.URL = opts.SiteURL
	}
	return &SEOService{
		items:        items,
		records:      records,
		ai:           gw,
		siteURL:      strings.TrimRight(opts.SiteURL, "/"),
		org:          opts.Organization,
		autoOptimize: opts.AutoOptimize,
		log:          log.Named("seo"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Analyze scores free-form content.
func (s *SEOService) Analyze(data seo.ContentData) seo.Result {
	return seo.Analyze(data)
}

// AnalyzePage scores a rendered HTML page.
func (s *SEOService) AnalyzePage(html, pageURL, focusKeyword, lang string) (seo.Result, error) {
	if strings.TrimSpace(html) == "" {
		return seo.Result{}, invalid("html is required")
	}
	if pageURL == "" {
		pageURL = s.siteURL + "/"
	}
	res, err := seo.AnalyzePage([]byte(html), pageURL, focusKeyword, lang)
	if err != nil {
		return seo.Result{}, invalid("%v", err)
	}
	return res, nil
}

// AnalyzeItem runs the analyzer over a stored item and replaces the issue
// set of its SEO record, creating the record on first analysis.
func (s *SEOService) AnalyzeItem(ctx context.Context, item *models.ContentItem) (*models.SEORecord, error) {
	rec, err := s.records.FindFor(ctx, item.Kind, item.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &models.SEORecord{ContentType: item.Kind, ContentID: item.ID}
	}
	pageURL := s.siteURL + content.Path(item.Kind, item.Slug)
	data := content.Analysis(item, rec, pageURL, s.siteURL)
	res := seo.Analyze(data)

	issues := res.Issues
	if s.ai != nil && s.autoOptimize && item.Status == models.StatusPublished && data.FocusKeyword != "" {
		suggestions := s.ai.SEOSuggestions(ctx, content.Text(item), data.FocusKeyword, data.MetaTitle, data.MetaDescription)
		issues = append(issues, content.SuggestionIssues(suggestions)...)
	}

	now := s.now()
	rec.Title = item.Title
	rec.URL = pageURL
	if rec.BasicSEO.FocusKeyword == "" {
		rec.BasicSEO.FocusKeyword = item.Meta.FocusKeyword
	}
	rec.Analysis = models.SEOAnalysis{
		SEOScore:         res.Score,
		ReadabilityScore: res.ReadabilityScore,
		Issues:           issues,
		LastAnalyzed:     &now,
	}
	rec.UpdatedAt = now
	return s.records.Upsert(ctx, rec)
}

// AnalyzeContent loads and analyzes one item.
func (s *SEOService) AnalyzeContent(ctx context.Context, kind models.ContentKind, id string) (*models.SEORecord, error) {
	item, err := s.item(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeItem(ctx, item)
}

func (s *SEOService) item(ctx context.Context, kind models.ContentKind, id string) (*models.ContentItem, error) {
	if !kind.Valid() {
		return nil, invalid("unknown content kind %q", kind)
	}
	item, err := s.items.FindByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound(string(kind))
	}
	return item, nil
}

// Score is the public summary of an item's last analysis.
type Score struct {
	SEOScore         int        `json:"seoScore"`
	ReadabilityScore int        `json:"readabilityScore"`
	Issues           int        `json:"issues"`
	LastAnalyzed     *time.Time `json:"lastAnalyzed,omitempty"`
}

func (s *SEOService) Score(ctx context.Context, kind models.ContentKind, id string) (*Score, error) {
	if !kind.Valid() {
		return nil, invalid("unknown content kind %q", kind)
	}
	rec, err := s.records.FindFor(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound("seo record")
	}
	return &Score{
		SEOScore:         rec.Analysis.SEOScore,
		ReadabilityScore: rec.Analysis.ReadabilityScore,
		Issues:           len(rec.Analysis.Issues),
		LastAnalyzed:     rec.Analysis.LastAnalyzed,
	}, nil
}

// StructuredData renders JSON-LD for an item.
func (s *SEOService) StructuredData(ctx context.Context, kind models.ContentKind, id string) (map[string]any, error) {
	item, err := s.item(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.FindFor(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return seo.StructuredData(item, rec, s.siteURL+content.Path(kind, item.Slug), s.org), nil
}

// Published and SEOFor make the service a sitemap.Source.
func (s *SEOService) Published(ctx context.Context, kind models.ContentKind) ([]models.ContentItem, error) {
	return s.items.Published(ctx, kind)
}

func (s *SEOService) SEOFor(ctx context.Context, kind models.ContentKind, ids []string) (map[string]models.SEORecord, error) {
	return s.records.ForKind(ctx, kind, ids)
}
