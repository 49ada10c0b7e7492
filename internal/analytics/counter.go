// Package analytics keeps the per-form submission and view counters.
// Every backend applies an increment and the matching conversion rate as a
// single atomic step per form.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/parisxmas/oxisite/internal/models"
)

// Counter records form traffic and returns the counters after the change.
type Counter interface {
	RecordSubmission(ctx context.Context, formID string, at time.Time) (models.FormAnalytics, error)
	RecordView(ctx context.Context, formID string) (models.FormAnalytics, error)
	Get(ctx context.Context, formID string) (models.FormAnalytics, error)
}

// Rate is submissions per view, 0 while there are no views.
func Rate(submissions, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(submissions) / float64(views)
}

func submission(at time.Time) func(*models.FormAnalytics) {
	return func(a *models.FormAnalytics) {
		a.Submissions++
		t := at.UTC()
		a.LastSubmission = &t
		a.ConversionRate = Rate(a.Submissions, a.Views)
	}
}

func view(a *models.FormAnalytics) {
	a.Views++
	a.ConversionRate = Rate(a.Submissions, a.Views)
}

// Memory is an in-process Counter for tests and single-node runs.
type Memory struct {
	mu    sync.Mutex
	forms map[string]models.FormAnalytics
}

func NewMemory() *Memory {
	return &Memory{forms: map[string]models.FormAnalytics{}}
}

func (m *Memory) apply(formID string, fn func(*models.FormAnalytics)) models.FormAnalytics {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.forms[formID]
	fn(&a)
	m.forms[formID] = a
	return a
}

func (m *Memory) RecordSubmission(_ context.Context, formID string, at time.Time) (models.FormAnalytics, error) {
	return m.apply(formID, submission(at)), nil
}

func (m *Memory) RecordView(_ context.Context, formID string) (models.FormAnalytics, error) {
	return m.apply(formID, view), nil
}

func (m *Memory) Get(_ context.Context, formID string) (models.FormAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forms[formID], nil
}
