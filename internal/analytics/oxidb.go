package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/parisxmas/oxisite/internal/models"
)

// FormStore is the slice of the form repository the OxiDB counter needs.
// UpdateAnalytics must apply fn inside a transaction.
type FormStore interface {
	FindByID(ctx context.Context, id string) (*models.Form, error)
	UpdateAnalytics(ctx context.Context, id string, fn func(*models.FormAnalytics)) (models.FormAnalytics, error)
}

// OxiDB keeps counters on the form document itself.
type OxiDB struct {
	forms FormStore
}

func NewOxiDB(forms FormStore) *OxiDB {
	return &OxiDB{forms: forms}
}

func (o *OxiDB) RecordSubmission(ctx context.Context, formID string, at time.Time) (models.FormAnalytics, error) {
	return o.forms.UpdateAnalytics(ctx, formID, submission(at))
}

func (o *OxiDB) RecordView(ctx context.Context, formID string) (models.FormAnalytics, error) {
	return o.forms.UpdateAnalytics(ctx, formID, view)
}

func (o *OxiDB) Get(ctx context.Context, formID string) (models.FormAnalytics, error) {
	f, err := o.forms.FindByID(ctx, formID)
	if err != nil {
		return models.FormAnalytics{}, err
	}
	if f == nil {
		return models.FormAnalytics{}, fmt.Errorf("form %s not found", formID)
	}
	return f.Analytics, nil
}
