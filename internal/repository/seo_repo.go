package repository

import (
	"context"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

const SEOCollection = "_site_seo"

type SEORepo struct {
	pool     *db.Pool
	attempts int
}

func NewSEORepo(pool *db.Pool, attempts int) *SEORepo {
	return &SEORepo{pool: pool, attempts: attempts}
}

func (r *SEORepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateIndex(ctx, SEOCollection, oxidb.IndexSpec{Fields: []string{"contentType", "contentId"}})
}

func target(kind models.ContentKind, id string) map[string]any {
	return map[string]any{"contentType": kind, "contentId": id}
}

func (r *SEORepo) FindFor(ctx context.Context, kind models.ContentKind, id string) (*models.SEORecord, error) {
	return one[models.SEORecord](r.pool.Get().FindOne(ctx, SEOCollection, target(kind, id)))
}

// Upsert writes the record for its content item, creating it on first use.
func (r *SEORepo) Upsert(ctx context.Context, rec *models.SEORecord) (*models.SEORecord, error) {
	rec.ID = ""
	err := r.pool.Tx(ctx, r.attempts, func(ctx context.Context, c *oxidb.Client) error {
		existing, err := one[models.SEORecord](c.FindOne(ctx, SEOCollection, target(rec.ContentType, rec.ContentID)))
		if err != nil {
			return err
		}
		doc, err := toDoc(rec)
		if err != nil {
			return err
		}
		if existing == nil {
			id, err := c.Insert(ctx, SEOCollection, doc)
			rec.ID = id
			return err
		}
		rec.ID = existing.ID
		return c.UpdateOne(ctx, SEOCollection, byID(existing.ID), map[string]any{"$set": doc})
	})
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		if rec.ID, err = committedID(ctx, r.pool.Get(), SEOCollection, target(rec.ContentType, rec.ContentID)); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// ForKind returns the SEO records of the given items keyed by content id.
func (r *SEORepo) ForKind(ctx context.Context, kind models.ContentKind, ids []string) (map[string]models.SEORecord, error) {
	out := make(map[string]models.SEORecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	in := make([]any, len(ids))
	for i, id := range ids {
		in[i] = id
	}
	docs, err := r.pool.Get().Find(ctx, SEOCollection, map[string]any{
		"contentType": kind,
		"contentId":   map[string]any{"$in": in},
	}, nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range fromDocs[models.SEORecord](docs) {
		out[rec.ContentID] = rec
	}
	return out, nil
}
