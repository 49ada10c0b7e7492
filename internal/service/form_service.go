package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/analytics"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/pipeline"
	"github.com/parisxmas/oxisite/internal/repository"
)

type FormService struct {
	forms   *repository.FormRepo
	subs    *repository.SubmissionRepo
	counter analytics.Counter
	log     *zap.Logger
}

func NewFormService(forms *repository.FormRepo, subs *repository.SubmissionRepo, counter analytics.Counter, log *zap.Logger) *FormService {
	return &FormService{forms: forms, subs: subs, counter: counter, log: log.Named("forms")}
}

func validFormType(t models.FormType) bool {
	switch t {
	case models.FormContact, models.FormLeadGeneration, models.FormNewsletter, models.FormSurvey,
		models.FormEventRegistration, models.FormJobApplication, models.FormOrder, models.FormFeedback,
		models.FormContest, models.FormCallback, models.FormQuote, models.FormSupport, models.FormCustom:
		return true
	}
	return false
}

func validFormStatus(s models.FormStatus) bool {
	switch s {
	case models.FormDraft, models.FormActive, models.FormPaused, models.FormArchived:
		return true
	}
	return false
}

// check normalizes defaults and rejects forms that cannot accept input.
func check(form *models.Form) error {
	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		return invalid("form name is required")
	}
	if len(form.Fields) == 0 {
		return invalid("at least one field is required")
	}
	seen := map[string]bool{}
	for _, f := range form.Fields {
		if f.Name == "" {
			return invalid("every field needs a name")
		}
		if seen[f.Name] {
			return invalid("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				return invalid("field %s: invalid pattern: %v", f.Name, err)
			}
		}
	}
	if form.Type == "" {
		form.Type = models.FormCustom
	}
	if !validFormType(form.Type) {
		return invalid("unknown form type %q", form.Type)
	}
	if form.Status == "" {
		form.Status = models.FormDraft
	}
	if !validFormStatus(form.Status) {
		return invalid("unknown form status %q", form.Status)
	}
	if form.Schema != "" {
		if _, err := pipeline.CompileSchema("check", form.Schema); err != nil {
			return invalid("invalid schema: %v", err)
		}
	}
	return nil
}

func (s *FormService) Create(ctx context.Context, form *models.Form, createdBy string) (*models.Form, error) {
	if err := check(form); err != nil {
		return nil, err
	}

	slug := generateSlug(form.Slug)
	if form.Slug == "" {
		slug = generateSlug(form.Name)
	}
	existing, err := s.forms.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slug = slug + "-" + time.Now().Format("20060102150405")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	form.ID = ""
	form.Slug = slug
	form.Analytics = models.FormAnalytics{}
	form.CreatedBy = createdBy
	form.CreatedAt = now
	form.UpdatedAt = now

	id, err := s.forms.Create(ctx, form)
	if err != nil {
		return nil, err
	}
	form.ID = id
	s.indexFields(ctx, form)
	return form, nil
}

// indexFields creates submission indexes for fields marked indexed. A
// failure only costs search speed.
func (s *FormService) indexFields(ctx context.Context, form *models.Form) {
	for _, f := range form.Fields {
		if !f.Indexed {
			continue
		}
		if err := s.subs.IndexDataField(ctx, f.Name); err != nil {
			s.log.Warn("index submission field", zap.String("form", form.ID), zap.String("field", f.Name), zap.Error(err))
		}
	}
}

func (s *FormService) List(ctx context.Context, status models.FormStatus) ([]models.Form, error) {
	return s.forms.FindAll(ctx, status)
}

// Get loads a form by id or slug with its live counters.
func (s *FormService) Get(ctx context.Context, ref string) (*models.Form, error) {
	form, err := s.forms.FindByIDOrSlug(ctx, ref)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, notFound("form")
	}
	if a, err := s.counter.Get(ctx, form.ID); err == nil {
		form.Analytics = a
	}
	return form, nil
}

// Public is the form as served to site visitors. Only active forms are
// visible and secrets are stripped.
func (s *FormService) Public(ctx context.Context, ref string) (*models.Form, error) {
	form, err := s.forms.FindByIDOrSlug(ctx, ref)
	if err != nil {
		return nil, err
	}
	if form == nil || form.Status != models.FormActive {
		return nil, notFound("form")
	}
	form.Notifications = models.FormNotifications{}
	form.Integrations = models.FormIntegrations{}
	form.LeadScoring = models.LeadScoring{}
	form.Analytics = models.FormAnalytics{}
	form.CreatedBy = ""
	return form, nil
}

// Update replaces the editable parts of a form. Counters, creator and
// creation time are kept.
func (s *FormService) Update(ctx context.Context, id string, in *models.Form) (*models.Form, error) {
	form, err := s.forms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, notFound("form")
	}
	if err := check(in); err != nil {
		return nil, err
	}
	if in.Slug != "" && in.Slug != form.Slug {
		slug := generateSlug(in.Slug)
		other, err := s.forms.FindBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != form.ID {
			return nil, invalid("slug %q is taken", slug)
		}
		form.Slug = slug
	}
	form.Name = in.Name
	form.Description = in.Description
	form.Type = in.Type
	form.Status = in.Status
	form.Fields = in.Fields
	form.Schema = in.Schema
	form.Settings = in.Settings
	form.Notifications = in.Notifications
	form.LeadScoring = in.LeadScoring
	form.Integrations = in.Integrations
	form.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := s.forms.Update(ctx, id, form); err != nil {
		return nil, err
	}
	s.indexFields(ctx, form)
	return form, nil
}

func (s *FormService) Delete(ctx context.Context, id string) error {
	form, err := s.forms.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if form == nil {
		return notFound("form")
	}
	return s.forms.Delete(ctx, id)
}

func (s *FormService) Analytics(ctx context.Context, id string) (models.FormAnalytics, error) {
	form, err := s.forms.FindByID(ctx, id)
	if err != nil {
		return models.FormAnalytics{}, err
	}
	if form == nil {
		return models.FormAnalytics{}, notFound("form")
	}
	return s.counter.Get(ctx, form.ID)
}

// RecordView counts one render of an active form.
func (s *FormService) RecordView(ctx context.Context, ref string) error {
	form, err := s.Public(ctx, ref)
	if err != nil {
		return err
	}
	_, err = s.counter.RecordView(ctx, form.ID)
	return err
}

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonAlphaNum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "form"
	}
	return slug
}
