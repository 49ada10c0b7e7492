package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

// ContentCollection maps a content kind to its collection.
func ContentCollection(kind models.ContentKind) string {
	return "_site_" + string(kind) + "s"
}

// ContentRepo stores pages, posts and products, one collection per kind.
type ContentRepo struct {
	pool *db.Pool
}

func NewContentRepo(pool *db.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

func (r *ContentRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	for _, kind := range []models.ContentKind{models.KindPage, models.KindPost, models.KindProduct} {
		coll := ContentCollection(kind)
		if err := c.CreateIndex(ctx, coll, oxidb.IndexSpec{Fields: []string{"slug"}, Unique: true}); err != nil {
			return err
		}
		if err := c.CreateIndex(ctx, coll, oxidb.IndexSpec{Fields: []string{"status"}}); err != nil {
			return err
		}
		if err := c.CreateIndex(ctx, coll, oxidb.IndexSpec{Fields: []string{"title", "content"}, Text: true}); err != nil {
			return err
		}
	}
	return nil
}

func (r *ContentRepo) Create(ctx context.Context, item *models.ContentItem) (string, error) {
	if !item.Kind.Valid() {
		return "", fmt.Errorf("unknown content kind %q", item.Kind)
	}
	doc, err := toDoc(item)
	if err != nil {
		return "", err
	}
	return r.pool.Get().Insert(ctx, ContentCollection(item.Kind), doc)
}

func (r *ContentRepo) FindByID(ctx context.Context, kind models.ContentKind, id string) (*models.ContentItem, error) {
	return one[models.ContentItem](r.pool.Get().FindOne(ctx, ContentCollection(kind), byID(id)))
}

func (r *ContentRepo) FindBySlug(ctx context.Context, kind models.ContentKind, slug string) (*models.ContentItem, error) {
	return one[models.ContentItem](r.pool.Get().FindOne(ctx, ContentCollection(kind), map[string]any{"slug": slug}))
}

func (r *ContentRepo) Update(ctx context.Context, item *models.ContentItem) error {
	doc, err := toDoc(item)
	if err != nil {
		return err
	}
	return r.pool.Get().UpdateOne(ctx, ContentCollection(item.Kind), byID(item.ID), map[string]any{"$set": doc})
}

func (r *ContentRepo) Delete(ctx context.Context, kind models.ContentKind, id string) error {
	return r.pool.Get().DeleteOne(ctx, ContentCollection(kind), byID(id))
}

// List pages through one kind, newest first. An empty status lists all.
func (r *ContentRepo) List(ctx context.Context, kind models.ContentKind, status models.ContentStatus, skip, limit int) ([]models.ContentItem, int, error) {
	c := r.pool.Get()
	query := map[string]any{}
	if status != "" {
		query["status"] = status
	}
	total, err := c.Count(ctx, ContentCollection(kind), query)
	if err != nil {
		return nil, 0, err
	}
	docs, err := c.Find(ctx, ContentCollection(kind), query, page(skip, limit))
	if err != nil {
		return nil, 0, err
	}
	return fromDocs[models.ContentItem](docs), total, nil
}

func (r *ContentRepo) Published(ctx context.Context, kind models.ContentKind) ([]models.ContentItem, error) {
	docs, err := r.pool.Get().Find(ctx, ContentCollection(kind),
		map[string]any{"status": models.StatusPublished},
		&oxidb.FindOptions{Sort: map[string]any{"slug": 1}})
	if err != nil {
		return nil, err
	}
	return fromDocs[models.ContentItem](docs), nil
}

// DueScheduled returns scheduled items of kind whose publish date is not
// after now.
func (r *ContentRepo) DueScheduled(ctx context.Context, kind models.ContentKind, now time.Time) ([]models.ContentItem, error) {
	docs, err := r.pool.Get().Find(ctx, ContentCollection(kind), map[string]any{"status": models.StatusScheduled}, nil)
	if err != nil {
		return nil, err
	}
	var due []models.ContentItem
	for _, item := range fromDocs[models.ContentItem](docs) {
		if item.PublishDate != nil && !item.PublishDate.After(now) {
			due = append(due, item)
		}
	}
	return due, nil
}

func (r *ContentRepo) TextSearch(ctx context.Context, kind models.ContentKind, query string, limit int) ([]models.ContentItem, error) {
	docs, err := r.pool.Get().TextSearch(ctx, ContentCollection(kind), query, limit)
	if err != nil {
		return nil, err
	}
	return fromDocs[models.ContentItem](docs), nil
}

func (r *ContentRepo) Count(ctx context.Context, kind models.ContentKind) (int, error) {
	return r.pool.Get().Count(ctx, ContentCollection(kind), map[string]any{})
}
