package lead

import (
	"context"
	"errors"

	"github.com/parisxmas/oxisite/internal/models"
)

// ErrNotFound is returned by stores for unknown lead ids.
var ErrNotFound = errors.New("lead not found")

// ListOptions filters and pages lead listings.
type ListOptions struct {
	Status models.LeadStatus
	Skip   int
	Limit  int
}

// Patch is a partial update from the admin API. Nil fields are left alone.
type Patch struct {
	Status *models.LeadStatus `json:"status,omitempty"`
	Tags   []string           `json:"tags,omitempty"`
	Note   string             `json:"note,omitempty"`
}

// Store persists leads. Upsert must be atomic per email: two concurrent
// upserts for one address produce one lead with both history entries.
type Store interface {
	Upsert(ctx context.Context, incoming *models.Lead, formName string) (*models.Lead, error)
	FindByID(ctx context.Context, id string) (*models.Lead, error)
	FindByEmail(ctx context.Context, email string) (*models.Lead, error)
	List(ctx context.Context, opts ListOptions) ([]models.Lead, int, error)
	Update(ctx context.Context, id string, p Patch) (*models.Lead, error)
	Count(ctx context.Context) (int, error)
}

// Apply folds a patch into l, recording a note activity when one is given.
func Apply(l *models.Lead, p Patch) {
	ts := now()
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.Tags != nil {
		l.Tags = mergeTags(nil, p.Tags)
	}
	if p.Note != "" {
		l.Activities = append(l.Activities, models.Activity{
			Type:    "note",
			Subject: p.Note,
			Date:    ts,
			Outcome: "successful",
		})
	}
	l.UpdatedAt = ts
}
