package pipeline

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/parisxmas/oxisite/internal/analytics"
	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memForms map[string]*models.Form

func (f memForms) FindByIDOrSlug(_ context.Context, ref string) (*models.Form, error) {
	if form, ok := f[ref]; ok {
		return form, nil
	}
	for _, form := range f {
		if form.Slug == ref {
			return form, nil
		}
	}
	return nil, nil
}

type memSubmissions struct {
	mu   sync.Mutex
	next int
	rows map[string]models.Submission
}

func (s *memSubmissions) Create(_ context.Context, sub *models.Submission) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := strconv.Itoa(s.next)
	if s.rows == nil {
		s.rows = map[string]models.Submission{}
	}
	s.rows[id] = *sub
	return id, nil
}

func (s *memSubmissions) Update(_ context.Context, id string, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = *sub
	return nil
}

func (s *memSubmissions) get(id string) models.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

// memLeads serializes upserts behind a mutex.
type memLeads struct {
	mu    sync.Mutex
	byKey map[string]*models.Lead
	err   error
}

func (m *memLeads) Upsert(_ context.Context, in *models.Lead, formName string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.byKey == nil {
		m.byKey = map[string]*models.Lead{}
	}
	merged := lead.Merge(m.byKey[in.Email], in, formName)
	merged.ID = "lead-" + in.Email
	m.byKey[in.Email] = merged
	return merged, nil
}

func (m *memLeads) FindByID(context.Context, string) (*models.Lead, error) { return nil, lead.ErrNotFound }

func (m *memLeads) FindByEmail(_ context.Context, email string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.byKey[email]; ok {
		return l, nil
	}
	return nil, lead.ErrNotFound
}

func (m *memLeads) List(context.Context, lead.ListOptions) ([]models.Lead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return nil, len(m.byKey), nil
}

func (m *memLeads) Update(context.Context, string, lead.Patch) (*models.Lead, error) {
	return nil, lead.ErrNotFound
}

func (m *memLeads) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byKey), nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	emails    int
	hooks     int
	crms      int
	emailErr  error
	hookErr   error
	crmErr    error
	delay     time.Duration
	crmLeadID string
}

func (f *fakeNotifier) wait(ctx context.Context) {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
	}
}

func (f *fakeNotifier) Email(ctx context.Context, _ *models.Form, _ map[string]any, _ string) error {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails++
	return f.emailErr
}

func (f *fakeNotifier) Webhook(ctx context.Context, _ *models.Form, _ map[string]any) error {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks++
	return f.hookErr
}

func (f *fakeNotifier) SyncCRM(ctx context.Context, _ models.CRMIntegration, _ map[string]any, leadID string) error {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crms++
	f.crmLeadID = leadID
	return f.crmErr
}

type fixture struct {
	p       *Processor
	form    *models.Form
	subs    *memSubmissions
	leads   *memLeads
	counter *analytics.Memory
	notify  *fakeNotifier
}

func newFixture() *fixture {
	form := &models.Form{
		ID:     "f1",
		Name:   "Demo request",
		Slug:   "demo",
		Type:   models.FormContact,
		Status: models.FormActive,
		Fields: []models.FieldDefinition{{Name: "email", Label: "Email", Required: true}},
		LeadScoring: models.LeadScoring{
			Enabled: true,
			Rules: []models.ScoringRule{
				{Field: "budget", Condition: models.ConditionGreaterThan, Value: 1000, Score: 30},
				{Field: "email", Condition: models.ConditionIsFilled, Score: 20},
			},
		},
		Notifications: models.FormNotifications{
			EmailNotifications: true,
			NotificationEmails: []models.NotificationEmail{{Email: "sales@example.com"}},
			WebhookURL:         "https://hooks.example.com/x",
		},
		Integrations: models.FormIntegrations{CRM: models.CRMIntegration{Enabled: true, Provider: models.CRMCustom}},
		Settings:     models.FormSettings{RedirectURL: "/thanks"},
	}
	f := &fixture{
		form:    form,
		subs:    &memSubmissions{},
		leads:   &memLeads{},
		counter: analytics.NewMemory(),
		notify:  &fakeNotifier{},
	}
	f.p = New(Options{
		Forms:       memForms{"f1": form},
		Submissions: f.subs,
		Leads:       f.leads,
		Counter:     f.counter,
		Notifier:    f.notify,
	})
	return f
}

func TestSubmitQualifiedLead(t *testing.T) {
	f := newFixture()
	res, err := f.p.Submit(context.Background(), Input{
		FormRef:   "demo",
		Data:      map[string]any{"budget": 5000.0, "email": "x@y.com", "name": "Xavier", "utm_source": "ads"},
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, 50, res.LeadScore)
	assert.Equal(t, "cold", res.Grade)
	assert.True(t, res.Qualified)
	assert.Equal(t, "lead-x@y.com", res.LeadID)
	assert.False(t, res.Spam)
	assert.Empty(t, res.Errors)
	assert.True(t, res.Notifications.EmailSent)
	assert.True(t, res.Notifications.WebhookSent)
	assert.True(t, res.Notifications.CRMSynced)
	assert.Equal(t, "lead-x@y.com", f.notify.crmLeadID)
	assert.Equal(t, "/thanks", res.RedirectURL)
	assert.Equal(t, defaultSuccessMessage, res.Message)
	assert.Len(t, res.Reference, 36)

	sub := f.subs.get(res.SubmissionID)
	assert.Equal(t, models.SubmissionConverted, sub.Status)
	assert.Equal(t, models.StageComplete, sub.Processing.Stage)
	assert.True(t, sub.Processing.Processed)
	assert.Equal(t, "x@y.com", sub.Submitter.Email)
	assert.Equal(t, "10.0.0.1", sub.Submitter.IPAddress)
	assert.Equal(t, map[string]string{"source": "ads"}, sub.Metadata.UTM)
	assert.Len(t, sub.Scoring.Details, 2)

	a, _ := f.counter.Get(context.Background(), "f1")
	assert.Equal(t, int64(1), a.Submissions)
}

func TestSubmitBelowThresholdSkipsLeadAndCRM(t *testing.T) {
	f := newFixture()
	res, err := f.p.Submit(context.Background(), Input{FormRef: "f1", Data: map[string]any{"email": "x@y.com"}})
	require.NoError(t, err)
	assert.Equal(t, 20, res.LeadScore)
	assert.False(t, res.Qualified)
	assert.Empty(t, res.LeadID)
	assert.False(t, res.Notifications.CRMSynced)
	assert.Equal(t, 0, f.notify.crms)
	assert.Equal(t, models.SubmissionProcessed, f.subs.get(res.SubmissionID).Status)
}

func TestSubmitSpamStopsAfterSpamCheck(t *testing.T) {
	f := newFixture()
	res, err := f.p.Submit(context.Background(), Input{FormRef: "f1", Data: map[string]any{"email": "x@y.com", "honeypot": "x"}})
	require.NoError(t, err)
	assert.True(t, res.Spam)

	sub := f.subs.get(res.SubmissionID)
	assert.Equal(t, models.SubmissionSpam, sub.Status)
	assert.Equal(t, models.StageSpamChecked, sub.Processing.Stage)
	assert.False(t, sub.Processing.Processed)
	assert.Equal(t, 0, f.notify.emails)
	a, _ := f.counter.Get(context.Background(), "f1")
	assert.Zero(t, a.Submissions)
}

func TestSubmitNameEqualsEmailIsNotSpam(t *testing.T) {
	f := newFixture()
	res, err := f.p.Submit(context.Background(), Input{FormRef: "f1", Data: map[string]any{"email": "a@b.com", "name": "a@b.com"}})
	require.NoError(t, err)
	assert.False(t, res.Spam)
	assert.Equal(t, 30, f.subs.get(res.SubmissionID).Spam.SpamScore)
}

func TestSubmitChannelFailuresAreIsolated(t *testing.T) {
	f := newFixture()
	f.notify.emailErr = errors.New("smtp down")
	f.notify.crmErr = errors.New("401")
	f.notify.delay = 5 * time.Millisecond

	res, err := f.p.Submit(context.Background(), Input{FormRef: "f1", Data: map[string]any{"budget": 5000.0, "email": "x@y.com"}})
	require.NoError(t, err)

	assert.False(t, res.Notifications.EmailSent)
	assert.True(t, res.Notifications.WebhookSent)
	assert.False(t, res.Notifications.CRMSynced)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, models.ErrorEmail, res.Errors[0].Type)
	assert.Equal(t, "Failed to send email: smtp down", res.Errors[0].Message)
	assert.Equal(t, models.ErrorCRM, res.Errors[1].Type)

	sub := f.subs.get(res.SubmissionID)
	assert.Equal(t, models.StageComplete, sub.Processing.Stage)
	a, _ := f.counter.Get(context.Background(), "f1")
	assert.Equal(t, int64(1), a.Submissions)
}

func TestSubmitLeadFailureDoesNotHalt(t *testing.T) {
	f := newFixture()
	f.leads.err = errors.New("store offline")
	res, err := f.p.Submit(context.Background(), Input{FormRef: "f1", Data: map[string]any{"budget": 5000.0, "email": "x@y.com"}})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.ErrorLead, res.Errors[0].Type)
	assert.True(t, res.Notifications.EmailSent)
	assert.False(t, res.Notifications.CRMSynced)
	assert.Equal(t, models.SubmissionProcessed, f.subs.get(res.SubmissionID).Status)
}

func TestSubmitLeadGenerationWithoutEmail(t *testing.T) {
	f := newFixture()
	f.form.Type = models.FormLeadGeneration
	f.form.Fields = nil
	f.form.LeadScoring.Enabled = false
	res, err := f.p.Submit(context.Background(), Input{FormRef: "f1", Data: map[string]any{"phone": "555"}})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.ErrorLead, res.Errors[0].Type)
}

func TestSubmitTwiceOneLead(t *testing.T) {
	f := newFixture()
	data := map[string]any{"budget": 5000.0, "email": "x@y.com"}
	for i := 0; i < 2; i++ {
		_, err := f.p.Submit(context.Background(), Input{FormRef: "f1", Data: data})
		require.NoError(t, err)
	}
	n, _ := f.leads.Count(context.Background())
	assert.Equal(t, 1, n)
	l, err := f.leads.FindByEmail(context.Background(), "x@y.com")
	require.NoError(t, err)
	assert.Len(t, l.Scoring.History, 2)
}

func TestSubmitRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.p.Submit(ctx, Input{FormRef: "nope"})
	assert.ErrorIs(t, err, ErrFormNotFound)

	_, err = f.p.Submit(ctx, Input{FormRef: "f1", Data: map[string]any{"email": ""}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	f.form.Status = models.FormPaused
	_, err = f.p.Submit(ctx, Input{FormRef: "f1", Data: map[string]any{"email": "x@y.com"}})
	assert.ErrorIs(t, err, ErrFormInactive)
	assert.Empty(t, f.subs.rows)
}

func TestSubmitSchemaValidation(t *testing.T) {
	f := newFixture()
	f.form.Schema = `{
		"type": "object",
		"properties": {"seats": {"type": "integer", "minimum": 1}},
		"required": ["seats"]
	}`
	ctx := context.Background()

	_, err := f.p.Submit(ctx, Input{FormRef: "f1", Data: map[string]any{"email": "x@y.com", "seats": 0}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "seats", ve.Field)

	_, err = f.p.Submit(ctx, Input{FormRef: "f1", Data: map[string]any{"email": "x@y.com", "seats": 3}})
	assert.NoError(t, err)
}

func TestFieldLengthAndPattern(t *testing.T) {
	f := newFixture()
	minLen := 3
	f.form.Fields = append(f.form.Fields,
		models.FieldDefinition{Name: "code", MinLength: &minLen},
		models.FieldDefinition{Name: "zip", Pattern: `^\d{5}$`},
	)
	ctx := context.Background()

	_, err := f.p.Submit(ctx, Input{FormRef: "f1", Data: map[string]any{"email": "x@y.com", "code": "ab"}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "code", ve.Field)

	_, err = f.p.Submit(ctx, Input{FormRef: "f1", Data: map[string]any{"email": "x@y.com", "zip": "1234a"}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "zip", ve.Field)

	_, err = f.p.Submit(ctx, Input{FormRef: "f1", Data: map[string]any{"email": "x@y.com", "code": "abc", "zip": "12345"}})
	assert.NoError(t, err)
}
