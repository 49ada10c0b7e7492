package repository

import (
	"context"
	"fmt"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

const FormsCollection = "_site_forms"

type FormRepo struct {
	pool     *db.Pool
	attempts int
}

// NewFormRepo returns a form repository. attempts bounds transaction retries
// for analytics updates.
func NewFormRepo(pool *db.Pool, attempts int) *FormRepo {
	return &FormRepo{pool: pool, attempts: attempts}
}

func (r *FormRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateIndex(ctx, FormsCollection, oxidb.IndexSpec{Fields: []string{"slug"}, Unique: true}); err != nil {
		return err
	}
	return c.CreateIndex(ctx, FormsCollection, oxidb.IndexSpec{Fields: []string{"status"}})
}

func (r *FormRepo) Create(ctx context.Context, form *models.Form) (string, error) {
	doc, err := toDoc(form)
	if err != nil {
		return "", err
	}
	return r.pool.Get().Insert(ctx, FormsCollection, doc)
}

// FindAll lists forms, newest first. An empty status lists every form.
func (r *FormRepo) FindAll(ctx context.Context, status models.FormStatus) ([]models.Form, error) {
	query := map[string]any{}
	if status != "" {
		query["status"] = status
	}
	docs, err := r.pool.Get().Find(ctx, FormsCollection, query, page(0, 0))
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Form](docs), nil
}

func (r *FormRepo) FindByID(ctx context.Context, id string) (*models.Form, error) {
	return one[models.Form](r.pool.Get().FindOne(ctx, FormsCollection, byID(id)))
}

func (r *FormRepo) FindBySlug(ctx context.Context, slug string) (*models.Form, error) {
	return one[models.Form](r.pool.Get().FindOne(ctx, FormsCollection, map[string]any{"slug": slug}))
}

// FindByIDOrSlug resolves the public form reference, which may be either.
func (r *FormRepo) FindByIDOrSlug(ctx context.Context, ref string) (*models.Form, error) {
	f, err := r.FindByID(ctx, ref)
	if err != nil || f != nil {
		return f, err
	}
	return r.FindBySlug(ctx, ref)
}

// Update replaces the editable fields of a form. Analytics are owned by
// UpdateAnalytics and are never overwritten here.
func (r *FormRepo) Update(ctx context.Context, id string, form *models.Form) error {
	doc, err := toDoc(form)
	if err != nil {
		return err
	}
	delete(doc, "analytics")
	return r.pool.Get().UpdateOne(ctx, FormsCollection, byID(id), map[string]any{"$set": doc})
}

func (r *FormRepo) Delete(ctx context.Context, id string) error {
	return r.pool.Get().DeleteOne(ctx, FormsCollection, byID(id))
}

func (r *FormRepo) Count(ctx context.Context) (int, error) {
	return r.pool.Get().Count(ctx, FormsCollection, map[string]any{})
}

// UpdateAnalytics applies fn to the form's counters inside a transaction so
// concurrent submissions and views do not lose increments. It returns the
// counters as written.
func (r *FormRepo) UpdateAnalytics(ctx context.Context, id string, fn func(*models.FormAnalytics)) (models.FormAnalytics, error) {
	var out models.FormAnalytics
	err := r.pool.Tx(ctx, r.attempts, func(ctx context.Context, c *oxidb.Client) error {
		f, err := one[models.Form](c.FindOne(ctx, FormsCollection, byID(id)))
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("form %s not found", id)
		}
		out = f.Analytics
		fn(&out)
		a, err := toDoc(out)
		if err != nil {
			return err
		}
		return c.UpdateOne(ctx, FormsCollection, byID(id), map[string]any{"$set": map[string]any{"analytics": a}})
	})
	return out, err
}
