// Package pipeline runs a form submission through its stages:
// received, spam-checked, scored, lead-upserted, notified,
// analytics-updated and complete. Only validation rejects a submission;
// a failing stage after that is recorded on the submission and the
// remaining stages still run.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/oxisite/internal/analytics"
	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/scoring"
	"github.com/parisxmas/oxisite/internal/spam"
)

const instrumentation = "github.com/parisxmas/oxisite/internal/pipeline"

// FormLookup resolves the form a submission targets by id or slug.
type FormLookup interface {
	FindByIDOrSlug(ctx context.Context, ref string) (*models.Form, error)
}

type SubmissionStore interface {
	Create(ctx context.Context, sub *models.Submission) (string, error)
	Update(ctx context.Context, id string, sub *models.Submission) error
}

// Notifier delivers the three outbound channels.
type Notifier interface {
	Email(ctx context.Context, form *models.Form, data map[string]any, submissionID string) error
	Webhook(ctx context.Context, form *models.Form, data map[string]any) error
	SyncCRM(ctx context.Context, crm models.CRMIntegration, data map[string]any, leadID string) error
}

type Options struct {
	Forms       FormLookup
	Submissions SubmissionStore
	Leads       lead.Store
	Counter     analytics.Counter
	Notifier    Notifier
	Logger      *zap.Logger
}

// Input is one received submission.
type Input struct {
	FormRef string
	Data    map[string]any
	// SubmitSeconds is the render-to-submit time reported by the client.
	SubmitSeconds *float64
	PageURL       string
	IPAddress     string
	UserAgent     string
	Referrer      string
}

// Result is what the submitter gets back.
type Result struct {
	SubmissionID  string                   `json:"submissionId"`
	Reference     string                   `json:"reference"`
	LeadScore     int                      `json:"leadScore"`
	Grade         string                   `json:"grade,omitempty"`
	Qualified     bool                     `json:"qualified"`
	LeadID        string                   `json:"leadId,omitempty"`
	Spam          bool                     `json:"spam"`
	Notifications models.NotificationState `json:"notifications"`
	Errors        []models.ProcessingError `json:"errors"`
	Message       string                   `json:"message"`
	RedirectURL   string                   `json:"redirectUrl,omitempty"`
}

const defaultSuccessMessage = "Thank you for your submission!"

type Processor struct {
	forms       FormLookup
	submissions SubmissionStore
	leads       lead.Store
	counter     analytics.Counter
	notifier    Notifier
	log         *zap.Logger
	schemas     schemaCache
	now         func() time.Time

	tracer      trace.Tracer
	outcomes    metric.Int64Counter
	stageErrors metric.Int64Counter
}

func New(opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Processor{
		forms:       opts.Forms,
		submissions: opts.Submissions,
		leads:       opts.Leads,
		counter:     opts.Counter,
		notifier:    opts.Notifier,
		log:         opts.Logger.Named("pipeline"),
		now:         func() time.Time { return time.Now().UTC() },
		tracer:      otel.Tracer(instrumentation),
	}
	meter := otel.Meter(instrumentation)
	p.outcomes, _ = meter.Int64Counter("oxisite.submissions",
		metric.WithDescription("Processed form submissions by outcome"),
		metric.WithUnit("{submission}"),
	)
	p.stageErrors, _ = meter.Int64Counter("oxisite.submission.stage_errors",
		metric.WithDescription("Non-fatal pipeline stage failures by type"),
		metric.WithUnit("{error}"),
	)
	return p
}

// run tracks one submission while it moves through the stages.
type run struct {
	form *models.Form
	sub  *models.Submission
}

func (r *run) fail(t models.ErrorType, msg string, ts time.Time) {
	r.sub.Processing.Errors = append(r.sub.Processing.Errors, models.ProcessingError{
		Type:      t,
		Message:   msg,
		Timestamp: ts,
	})
}

// Submit validates in, stores it and runs every stage. The returned error
// is non-nil only when the submission was rejected or could not be stored.
func (p *Processor) Submit(ctx context.Context, in Input) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Submit")
	defer span.End()

	form, err := p.forms.FindByIDOrSlug(ctx, in.FormRef)
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}
	if form == nil {
		return nil, ErrFormNotFound
	}
	if form.Status != models.FormActive {
		return nil, ErrFormInactive
	}
	if in.Data == nil {
		in.Data = map[string]any{}
	}
	if err := p.validate(form, in.Data); err != nil {
		span.SetStatus(codes.Error, "validation")
		return nil, err
	}
	span.SetAttributes(attribute.String("form.id", form.ID), attribute.String("form.type", string(form.Type)))

	ts := p.now()
	submitter := lead.Submitter(in.Data)
	submitter.IPAddress = in.IPAddress
	submitter.UserAgent = in.UserAgent
	submitter.Referrer = in.Referrer
	r := &run{form: form, sub: &models.Submission{
		Reference: uuid.NewString(),
		FormID:    form.ID,
		Data:      in.Data,
		Submitter: submitter,
		Status:    models.SubmissionNew,
		Processing: models.Processing{
			Stage: models.StageReceived,
		},
		Metadata: models.SubmissionMeta{
			SubmissionTime: in.SubmitSeconds,
			PageURL:        in.PageURL,
			UTM:            lead.UTM(in.Data),
		},
		CreatedAt: ts,
		UpdatedAt: ts,
	}}

	id, err := p.submissions.Create(ctx, r.sub)
	if err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}
	r.sub.ID = id

	p.stage(ctx, r, models.StageSpamChecked, p.checkSpam(in))
	if !r.sub.Spam.IsSpam {
		p.stage(ctx, r, models.StageScored, p.score)
		p.stage(ctx, r, models.StageLeadUpserted, p.upsertLead)
		p.stage(ctx, r, models.StageNotified, p.notify)
		p.stage(ctx, r, models.StageAnalyticsUpdated, p.updateAnalytics)
		p.complete(r)
	}

	r.sub.UpdatedAt = p.now()
	if err := p.submissions.Update(ctx, id, r.sub); err != nil {
		// side effects already happened; keep the response and leave the
		// record at its stored stage
		p.log.Error("persist processed submission", zap.String("submission", id), zap.Error(err))
	}

	outcome := string(r.sub.Status)
	p.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	for _, e := range r.sub.Processing.Errors {
		p.stageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(e.Type))))
	}
	p.log.Info("submission processed",
		zap.String("submission", id),
		zap.String("form", form.ID),
		zap.String("outcome", outcome),
		zap.Int("score", r.sub.Scoring.Score),
		zap.Int("errors", len(r.sub.Processing.Errors)))

	return p.result(r), nil
}

// stage runs fn under its own span and advances the stage marker.
func (p *Processor) stage(ctx context.Context, r *run, s models.Stage, fn func(context.Context, *run)) {
	ctx, span := p.tracer.Start(ctx, "pipeline."+string(s))
	defer span.End()
	before := len(r.sub.Processing.Errors)
	fn(ctx, r)
	if n := len(r.sub.Processing.Errors); n > before {
		span.SetStatus(codes.Error, r.sub.Processing.Errors[n-1].Message)
	}
	r.sub.Processing.Stage = s
}

func (p *Processor) checkSpam(in Input) func(context.Context, *run) {
	return func(_ context.Context, r *run) {
		r.sub.Spam = spam.Detect(in.Data, spam.Meta{SubmitSeconds: in.SubmitSeconds})
		if r.sub.Spam.IsSpam {
			r.sub.Status = models.SubmissionSpam
		}
	}
}

func (p *Processor) score(_ context.Context, r *run) {
	ls := r.form.LeadScoring
	if !ls.Enabled {
		return
	}
	score, details := scoring.Explain(r.sub.Data, ls.Rules)
	r.sub.Scoring = models.SubmissionScoring{
		Score:     score,
		Grade:     string(scoring.GradeOf(score)),
		Qualified: score >= ls.Threshold(),
		Details:   details,
	}
}

func (p *Processor) upsertLead(ctx context.Context, r *run) {
	if !r.sub.Scoring.Qualified && r.form.Type != models.FormLeadGeneration {
		return
	}
	incoming := lead.Extract(r.form, r.sub.Data, r.sub.Scoring.Score)
	if incoming.Email == "" {
		r.fail(models.ErrorLead, "Failed to create lead: submission has no email address", p.now())
		return
	}
	l, err := p.leads.Upsert(ctx, incoming, r.form.Name)
	if err != nil {
		r.fail(models.ErrorLead, "Failed to create lead: "+err.Error(), p.now())
		return
	}
	r.sub.LeadID = l.ID
}

// notify fans out to the enabled channels. Each channel records its own
// outcome; none cancels the others.
func (p *Processor) notify(ctx context.Context, r *run) {
	var (
		g     errgroup.Group
		mu    sync.Mutex
		state = &r.sub.Processing.Notifications
		errs  [3]*models.ProcessingError
	)
	send := func(slot int, t models.ErrorType, label string, fn func() error, done func(time.Time)) {
		g.Go(func() error {
			err := fn()
			ts := p.now()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[slot] = &models.ProcessingError{Type: t, Message: "Failed to " + label + ": " + err.Error(), Timestamp: ts}
				p.log.Warn("notification failed", zap.String("channel", string(t)), zap.Error(err))
				return nil
			}
			done(ts)
			return nil
		})
	}

	form, data := r.form, r.sub.Data
	if form.Notifications.EmailNotifications {
		send(0, models.ErrorEmail, "send email", func() error {
			return p.notifier.Email(ctx, form, data, r.sub.ID)
		}, func(ts time.Time) { state.EmailSent, state.EmailSentAt = true, &ts })
	}
	if form.Notifications.WebhookURL != "" {
		send(1, models.ErrorWebhook, "send webhook", func() error {
			return p.notifier.Webhook(ctx, form, data)
		}, func(ts time.Time) { state.WebhookSent, state.WebhookSentAt = true, &ts })
	}
	if crm := form.Integrations.CRM; crm.Enabled && r.sub.LeadID != "" {
		leadID := r.sub.LeadID
		send(2, models.ErrorCRM, "sync with CRM", func() error {
			return p.notifier.SyncCRM(ctx, crm, data, leadID)
		}, func(ts time.Time) { state.CRMSynced, state.CRMSyncedAt = true, &ts })
	}
	_ = g.Wait()

	for _, e := range errs {
		if e != nil {
			r.sub.Processing.Errors = append(r.sub.Processing.Errors, *e)
		}
	}
}

func (p *Processor) updateAnalytics(ctx context.Context, r *run) {
	if p.counter == nil {
		return
	}
	if _, err := p.counter.RecordSubmission(ctx, r.form.ID, r.sub.CreatedAt); err != nil {
		r.fail(models.ErrorAnalytics, "Failed to update analytics: "+err.Error(), p.now())
	}
}

func (p *Processor) complete(r *run) {
	ts := p.now()
	r.sub.Processing.Stage = models.StageComplete
	r.sub.Processing.Processed = true
	r.sub.Processing.ProcessedAt = &ts
	r.sub.Status = models.SubmissionProcessed
	if r.sub.LeadID != "" {
		r.sub.Status = models.SubmissionConverted
	}
}

func (p *Processor) result(r *run) *Result {
	msg := r.form.Settings.SuccessMessage
	if msg == "" {
		msg = defaultSuccessMessage
	}
	errs := r.sub.Processing.Errors
	if errs == nil {
		errs = []models.ProcessingError{}
	}
	return &Result{
		SubmissionID:  r.sub.ID,
		Reference:     r.sub.Reference,
		LeadScore:     r.sub.Scoring.Score,
		Grade:         r.sub.Scoring.Grade,
		Qualified:     r.sub.Scoring.Qualified,
		LeadID:        r.sub.LeadID,
		Spam:          r.sub.Spam.IsSpam,
		Notifications: r.sub.Processing.Notifications,
		Errors:        errs,
		Message:       msg,
		RedirectURL:   r.form.Settings.RedirectURL,
	}
}
