package repository

import (
	"context"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

const AIContentCollection = "_site_ai_content"

type AIContentRepo struct {
	pool *db.Pool
}

func NewAIContentRepo(pool *db.Pool) *AIContentRepo {
	return &AIContentRepo{pool: pool}
}

func (r *AIContentRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateIndex(ctx, AIContentCollection, oxidb.IndexSpec{Fields: []string{"type", "createdAt"}})
}

func (r *AIContentRepo) Create(ctx context.Context, rec *models.AIContent) (string, error) {
	doc, err := toDoc(rec)
	if err != nil {
		return "", err
	}
	return r.pool.Get().Insert(ctx, AIContentCollection, doc)
}

func (r *AIContentRepo) FindByID(ctx context.Context, id string) (*models.AIContent, error) {
	return one[models.AIContent](r.pool.Get().FindOne(ctx, AIContentCollection, byID(id)))
}

func (r *AIContentRepo) Update(ctx context.Context, rec *models.AIContent) error {
	doc, err := toDoc(rec)
	if err != nil {
		return err
	}
	return r.pool.Get().UpdateOne(ctx, AIContentCollection, byID(rec.ID), map[string]any{"$set": doc})
}

func (r *AIContentRepo) List(ctx context.Context, typ models.AIContentType, skip, limit int) ([]models.AIContent, int, error) {
	c := r.pool.Get()
	query := map[string]any{}
	if typ != "" {
		query["type"] = typ
	}
	total, err := c.Count(ctx, AIContentCollection, query)
	if err != nil {
		return nil, 0, err
	}
	docs, err := c.Find(ctx, AIContentCollection, query, page(skip, limit))
	if err != nil {
		return nil, 0, err
	}
	return fromDocs[models.AIContent](docs), total, nil
}
