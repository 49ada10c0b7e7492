package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/ai"
	"github.com/parisxmas/oxisite/internal/content"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/repository"
)

// Stage names, in the order a save runs them.
const (
	StageAIMeta      = "ai-meta"
	StageAIImprove   = "ai-improvement"
	StageSave        = "save"
	StageVersion     = "version"
	StageWorkflow    = "workflow"
	StageSchedule    = "schedule"
	StageSEO         = "seo"
	StageTranslation = "translation"
)

type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageSkipped StageStatus = "skipped"
	StageFailed  StageStatus = "failed"
)

type StageReport struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// SaveResult is the item as stored plus what each stage did.
type SaveResult struct {
	Item         *models.ContentItem    `json:"item"`
	Version      *models.ContentVersion `json:"version,omitempty"`
	SEO          *models.SEORecord      `json:"seo,omitempty"`
	Translations []string               `json:"translations,omitempty"`
	Stages       []StageReport          `json:"stages"`
}

// Actor is whoever triggers a save.
type Actor struct {
	ID   string
	Role string
}

// ContentService saves pages, posts and products. Every save runs the
// same ordered stages; only the save itself can fail the call.
type ContentService struct {
	items     *repository.ContentRepo
	versions  *repository.VersionRepo
	workflows *repository.WorkflowRepo
	aiRecords *repository.AIContentRepo
	seo       *SEOService
	ai        *ai.Gateway
	log       *zap.Logger
	now       func() time.Time
}

// NewContentService wires the stages. gw may be nil; the AI stages are
// then skipped and translations are plain copies.
func NewContentService(
	items *repository.ContentRepo,
	versions *repository.VersionRepo,
	workflows *repository.WorkflowRepo,
	aiRecords *repository.AIContentRepo,
	seoSvc *SEOService,
	gw *ai.Gateway,
	log *zap.Logger,
) *ContentService {
	return &ContentService{
		items:     items,
		versions:  versions,
		workflows: workflows,
		aiRecords: aiRecords,
		seo:       seoSvc,
		ai:        gw,
		log:       log.Named("content"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ContentService) Get(ctx context.Context, kind models.ContentKind, id string) (*models.ContentItem, error) {
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

func (s *ContentService) List(ctx context.Context, kind models.ContentKind, status models.ContentStatus, skip, limit int) ([]models.ContentItem, int, error) {
	if !kind.Valid() {
		return nil, 0, invalid("unknown content kind %q", kind)
	}
	return s.items.List(ctx, kind, status, skip, limit)
}

func (s *ContentService) Count(ctx context.Context, kind models.ContentKind) (int, error) {
	return s.items.Count(ctx, kind)
}

func (s *ContentService) Create(ctx context.Context, actor Actor, kind models.ContentKind, item *models.ContentItem) (*SaveResult, error) {
	item.Kind = kind
	item.ID = ""
	return s.save(ctx, actor, nil, item)
}

func (s *ContentService) Update(ctx context.Context, actor Actor, kind models.ContentKind, id string, item *models.ContentItem) (*SaveResult, error) {
	prev, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	item.Kind = kind
	item.ID = id
	item.CreatedAt = prev.CreatedAt
	if item.Author == "" {
		item.Author = prev.Author
	}
	if item.Slug == "" {
		item.Slug = prev.Slug
	}
	return s.save(ctx, actor, prev, item)
}

// Delete removes an item and retires its workflow.
func (s *ContentService) Delete(ctx context.Context, actor Actor, kind models.ContentKind, id string) error {
	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.items.Delete(ctx, kind, id); err != nil {
		return err
	}
	w := content.Workflow(item, actor.ID, s.now())
	w.Status = models.StatusArchived
	w.IsActive = false
	if err := s.workflows.Sync(ctx, w); err != nil {
		s.log.Warn("retire workflow", zap.String("id", id), zap.Error(err))
	}
	return nil
}

func (s *ContentService) Versions(ctx context.Context, kind models.ContentKind, id string) ([]models.ContentVersion, error) {
	if _, err := s.Get(ctx, kind, id); err != nil {
		return nil, err
	}
	return s.versions.ListFor(ctx, kind, id)
}

// Rollback saves a version's snapshot over its item, which records a new
// version, and notes the rollback on the restored version.
func (s *ContentService) Rollback(ctx context.Context, actor Actor, versionID, reason string) (*SaveResult, error) {
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, notFound("version")
	}
	current, err := s.Get(ctx, v.ContentType, v.ContentID)
	if err != nil {
		return nil, err
	}
	res, err := s.save(ctx, actor, current, content.Restore(v, current, s.now()))
	if err != nil {
		return nil, err
	}
	at := s.now()
	if err := s.versions.SetRollback(ctx, v.ID, models.Rollback{Reason: reason, RolledBackBy: actor.ID, RolledBackAt: &at}); err != nil {
		s.log.Warn("record rollback", zap.String("version", v.ID), zap.Error(err))
	}
	return res, nil
}

// PublishDue publishes every scheduled item whose date has passed. It
// makes the service a content.Publisher for the sweeper.
func (s *ContentService) PublishDue(ctx context.Context, now time.Time) (int, error) {
	published := 0
	var errs []error
	for _, kind := range []models.ContentKind{models.KindPage, models.KindPost, models.KindProduct} {
		due, err := s.items.DueScheduled(ctx, kind, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		for i := range due {
			item := &due[i]
			content.Publish(item, now)
			if err := s.items.Update(ctx, item); err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", kind, item.ID, err))
				continue
			}
			published++
			if err := s.workflows.Sync(ctx, content.Workflow(item, item.Author, now)); err != nil {
				s.log.Warn("sync workflow", zap.String("id", item.ID), zap.Error(err))
			}
		}
	}
	return published, errors.Join(errs...)
}

func (s *ContentService) validate(ctx context.Context, item *models.ContentItem) error {
	if !item.Kind.Valid() {
		return invalid("unknown content kind %q", item.Kind)
	}
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return invalid("title is required")
	}
	if item.Slug == "" {
		item.Slug = generateSlug(item.Title)
	} else {
		item.Slug = generateSlug(item.Slug)
	}
	if item.Status == "" {
		item.Status = models.StatusDraft
	}
	if item.Status == models.StatusScheduled && item.PublishDate == nil {
		return invalid("scheduled content needs a publishDate")
	}
	other, err := s.items.FindBySlug(ctx, item.Kind, item.Slug)
	if err != nil {
		return err
	}
	if other != nil && other.ID != item.ID {
		return fmt.Errorf("slug %q %w", item.Slug, ErrConflict)
	}
	return nil
}

func (s *ContentService) save(ctx context.Context, actor Actor, prev *models.ContentItem, item *models.ContentItem) (*SaveResult, error) {
	creating := prev == nil
	if err := content.CheckTransition(actor.Role, creating, item.Status); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, item); err != nil {
		return nil, err
	}
	now := s.now()
	if creating {
		item.CreatedAt = now
		if item.Author == "" {
			item.Author = actor.ID
		}
	}
	item.UpdatedAt = now
	if item.Status == models.StatusPublished && item.PublishedAt == nil {
		item.PublishedAt = &now
	}

	res := &SaveResult{Item: item}
	aiOn := s.ai != nil

	s.stage(ctx, res, StageAIMeta, creating && aiOn && item.Meta.Description == "", func(ctx context.Context) error {
		desc, err := s.ai.MetaDescription(ctx, item.Title, content.Text(item))
		if err != nil {
			return err
		}
		item.Meta.Description = desc
		return nil
	})

	s.stage(ctx, res, StageAIImprove, !creating && aiOn && item.AIImprovement.Enabled, func(ctx context.Context) error {
		return s.improve(ctx, actor, item)
	})

	// the save itself is the only stage that fails the call
	if creating {
		id, err := s.items.Create(ctx, item)
		if err != nil {
			return nil, err
		}
		item.ID = id
	} else if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	res.Stages = append(res.Stages, StageReport{Stage: StageSave, Status: StageOK})

	s.stage(ctx, res, StageVersion, !creating, func(ctx context.Context) error {
		existing, err := s.versions.ListFor(ctx, item.Kind, item.ID)
		if err != nil {
			return err
		}
		numbers := make([]string, len(existing))
		for i, v := range existing {
			numbers[i] = v.Version
		}
		v, err := content.NewVersion(prev, item, numbers, actor.ID, now)
		if err != nil {
			return err
		}
		if v.ID, err = s.versions.Append(ctx, v); err != nil {
			return err
		}
		res.Version = v
		return nil
	})

	s.stage(ctx, res, StageWorkflow, true, func(ctx context.Context) error {
		return s.workflows.Sync(ctx, content.Workflow(item, actor.ID, now))
	})

	s.stage(ctx, res, StageSchedule, content.Due(item, now), func(ctx context.Context) error {
		content.Publish(item, now)
		if err := s.items.Update(ctx, item); err != nil {
			return err
		}
		return s.workflows.Sync(ctx, content.Workflow(item, actor.ID, now))
	})

	s.stage(ctx, res, StageSEO, s.seo != nil, func(ctx context.Context) error {
		rec, err := s.seo.AnalyzeItem(ctx, item)
		res.SEO = rec
		return err
	})

	s.stage(ctx, res, StageTranslation, !creating && item.Translation.Enabled && len(item.Translation.Languages) > 0, func(ctx context.Context) error {
		ids, err := s.translate(ctx, item)
		res.Translations = ids
		return err
	})

	return res, nil
}

// stage runs fn when enabled and records the outcome. Failures are logged
// and reported, never returned.
func (s *ContentService) stage(ctx context.Context, res *SaveResult, name string, enabled bool, fn func(context.Context) error) {
	if !enabled {
		res.Stages = append(res.Stages, StageReport{Stage: name, Status: StageSkipped})
		return
	}
	if err := fn(ctx); err != nil {
		s.log.Warn("content stage failed",
			zap.String("stage", name),
			zap.String("kind", string(res.Item.Kind)),
			zap.String("id", res.Item.ID),
			zap.Error(err))
		res.Stages = append(res.Stages, StageReport{Stage: name, Status: StageFailed, Error: err.Error()})
		return
	}
	res.Stages = append(res.Stages, StageReport{Stage: name, Status: StageOK})
}

// improve rewrites the text blocks and clears the request flag so the
// rewrite happens once.
func (s *ContentService) improve(ctx context.Context, actor Actor, item *models.ContentItem) error {
	t := ai.ImprovementType(item.AIImprovement.Type)
	if t == "" {
		t = ai.ImproveReadability
	}
	before := content.Text(item)
	changed := content.RewriteBlocks(item, func(html string) string {
		return s.ai.Improve(ctx, html, t, item.Meta.FocusKeyword)
	})
	item.AIImprovement = models.AIImprovement{}
	if changed == 0 {
		return errors.New("no content was improved")
	}

	now := s.now()
	rec := &models.AIContent{
		Title:            fmt.Sprintf("Content improvement - %s", item.Title),
		Type:             models.AIContentImprovement,
		Prompt:           models.AIPrompt{UserPrompt: before},
		Settings:         models.AISettings{Model: s.ai.DefaultModelName(), Temperature: 0.3},
		GeneratedContent: content.Text(item),
		Costs:            models.AICosts{RequestCount: changed},
		Usage:            models.AIUsage{Status: "applied", AppliedTo: []string{string(item.Kind) + ":" + item.ID}},
		Author:           actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.aiRecords.Create(ctx, rec); err != nil {
		s.log.Warn("log content improvement", zap.Error(err))
	}
	return nil
}

// translate creates one draft per target language. Languages whose copy
// already exists are left alone.
func (s *ContentService) translate(ctx context.Context, item *models.ContentItem) ([]string, error) {
	var (
		ids  []string
		errs []error
	)
	for _, lang := range item.Translation.Languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" || lang == item.Language {
			continue
		}
		existing, err := s.items.FindBySlug(ctx, item.Kind, item.Slug+"-"+lang)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if existing != nil {
			continue
		}
		var fn func(string) string
		if s.ai != nil {
			fn = func(text string) string { return s.ai.Translate(ctx, text, lang, true) }
		}
		cp := content.TranslationCopy(item, lang, fn, s.now())
		id, err := s.items.Create(ctx, cp)
		if err != nil {
			errs = append(errs, fmt.Errorf("translation %s: %w", lang, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...)
}
