package repository

import (
	"context"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

const WorkflowsCollection = "_site_workflows"

type WorkflowRepo struct {
	pool     *db.Pool
	attempts int
}

func NewWorkflowRepo(pool *db.Pool, attempts int) *WorkflowRepo {
	return &WorkflowRepo{pool: pool, attempts: attempts}
}

func (r *WorkflowRepo) FindFor(ctx context.Context, kind models.ContentKind, id string) (*models.Workflow, error) {
	return one[models.Workflow](r.pool.Get().FindOne(ctx, WorkflowsCollection, target(kind, id)))
}

// Sync creates the item's workflow or updates its status and title.
// Author and assignee of an existing workflow are kept.
func (r *WorkflowRepo) Sync(ctx context.Context, w *models.Workflow) error {
	w.ID = ""
	err := r.pool.Tx(ctx, r.attempts, func(ctx context.Context, c *oxidb.Client) error {
		existing, err := one[models.Workflow](c.FindOne(ctx, WorkflowsCollection, target(w.ContentType, w.ContentID)))
		if err != nil {
			return err
		}
		if existing == nil {
			doc, err := toDoc(w)
			if err != nil {
				return err
			}
			w.ID, err = c.Insert(ctx, WorkflowsCollection, doc)
			return err
		}
		w.ID = existing.ID
		return c.UpdateOne(ctx, WorkflowsCollection, byID(existing.ID), map[string]any{"$set": map[string]any{
			"status":    w.Status,
			"title":     w.Title,
			"isActive":  w.IsActive,
			"updatedAt": w.UpdatedAt,
		}})
	})
	if err != nil || w.ID != "" {
		return err
	}
	w.ID, err = committedID(ctx, r.pool.Get(), WorkflowsCollection, target(w.ContentType, w.ContentID))
	return err
}

func (r *WorkflowRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateIndex(ctx, WorkflowsCollection, oxidb.IndexSpec{Fields: []string{"contentType", "contentId"}})
}
