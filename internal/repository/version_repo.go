package repository

import (
	"context"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

const VersionsCollection = "_site_versions"

type VersionRepo struct {
	pool     *db.Pool
	attempts int
}

func NewVersionRepo(pool *db.Pool, attempts int) *VersionRepo {
	return &VersionRepo{pool: pool, attempts: attempts}
}

func (r *VersionRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateIndex(ctx, VersionsCollection, oxidb.IndexSpec{Fields: []string{"contentType", "contentId"}})
}

// ListFor returns every version of one item, newest first.
func (r *VersionRepo) ListFor(ctx context.Context, kind models.ContentKind, id string) ([]models.ContentVersion, error) {
	docs, err := r.pool.Get().Find(ctx, VersionsCollection, target(kind, id), page(0, 0))
	if err != nil {
		return nil, err
	}
	return fromDocs[models.ContentVersion](docs), nil
}

func (r *VersionRepo) FindByID(ctx context.Context, id string) (*models.ContentVersion, error) {
	return one[models.ContentVersion](r.pool.Get().FindOne(ctx, VersionsCollection, byID(id)))
}

// Append stores v as the item's current version and clears the flag on
// every other version in the same transaction.
func (r *VersionRepo) Append(ctx context.Context, v *models.ContentVersion) (string, error) {
	v.IsCurrentVersion = true
	doc, err := toDoc(v)
	if err != nil {
		return "", err
	}
	var id string
	err = r.pool.Tx(ctx, r.attempts, func(ctx context.Context, c *oxidb.Client) error {
		q := target(v.ContentType, v.ContentID)
		q["isCurrentVersion"] = true
		if err := c.Update(ctx, VersionsCollection, q, map[string]any{"$set": map[string]any{"isCurrentVersion": false}}); err != nil {
			return err
		}
		newID, err := c.Insert(ctx, VersionsCollection, doc)
		id = newID
		return err
	})
	if err != nil {
		return "", err
	}
	if id == "" {
		key := target(v.ContentType, v.ContentID)
		key["version"] = v.Version
		key["isCurrentVersion"] = true
		if id, err = committedID(ctx, r.pool.Get(), VersionsCollection, key); err != nil {
			return "", err
		}
	}
	v.ID = id
	return id, nil
}

func (r *VersionRepo) SetRollback(ctx context.Context, id string, rb models.Rollback) error {
	doc, err := toDoc(rb)
	if err != nil {
		return err
	}
	return r.pool.Get().UpdateOne(ctx, VersionsCollection, byID(id), map[string]any{"$set": map[string]any{"rollbackData": doc}})
}
