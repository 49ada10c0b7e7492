package repository

import (
	"context"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

const SubmissionsCollection = "_site_submissions"

type SubmissionRepo struct {
	pool *db.Pool
}

func NewSubmissionRepo(pool *db.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	for _, spec := range []oxidb.IndexSpec{
		{Fields: []string{"formId"}},
		{Fields: []string{"formId", "createdAt"}},
		{Fields: []string{"reference"}, Unique: true},
		{Fields: []string{"status"}},
		{Fields: []string{"submitter.email", "submitter.name"}, Text: true},
	} {
		if err := c.CreateIndex(ctx, SubmissionsCollection, spec); err != nil {
			return err
		}
	}
	return nil
}

func (r *SubmissionRepo) Create(ctx context.Context, sub *models.Submission) (string, error) {
	doc, err := toDoc(sub)
	if err != nil {
		return "", err
	}
	return r.pool.Get().Insert(ctx, SubmissionsCollection, doc)
}

func (r *SubmissionRepo) FindByFormID(ctx context.Context, formID string, skip, limit int) ([]models.Submission, int, error) {
	return r.Query(ctx, map[string]any{"formId": formID}, skip, limit)
}

// Query pages through submissions matching an OxiDB query, newest first,
// and returns the total match count.
func (r *SubmissionRepo) Query(ctx context.Context, query map[string]any, skip, limit int) ([]models.Submission, int, error) {
	c := r.pool.Get()
	total, err := c.Count(ctx, SubmissionsCollection, query)
	if err != nil {
		return nil, 0, err
	}
	docs, err := c.Find(ctx, SubmissionsCollection, query, page(skip, limit))
	if err != nil {
		return nil, 0, err
	}
	return fromDocs[models.Submission](docs), total, nil
}

// Recent returns the newest submissions across all forms.
func (r *SubmissionRepo) Recent(ctx context.Context, limit int) ([]models.Submission, error) {
	docs, err := r.pool.Get().Find(ctx, SubmissionsCollection, map[string]any{}, page(0, limit))
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Submission](docs), nil
}

func (r *SubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	return one[models.Submission](r.pool.Get().FindOne(ctx, SubmissionsCollection, byID(id)))
}

func (r *SubmissionRepo) Update(ctx context.Context, id string, sub *models.Submission) error {
	doc, err := toDoc(sub)
	if err != nil {
		return err
	}
	return r.pool.Get().UpdateOne(ctx, SubmissionsCollection, byID(id), map[string]any{"$set": doc})
}

func (r *SubmissionRepo) Delete(ctx context.Context, id string) error {
	return r.pool.Get().DeleteOne(ctx, SubmissionsCollection, byID(id))
}

func (r *SubmissionRepo) TextSearch(ctx context.Context, query string, limit int) ([]models.Submission, error) {
	docs, err := r.pool.Get().TextSearch(ctx, SubmissionsCollection, query, limit)
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Submission](docs), nil
}

func (r *SubmissionRepo) Count(ctx context.Context, status models.SubmissionStatus) (int, error) {
	query := map[string]any{}
	if status != "" {
		query["status"] = status
	}
	return r.pool.Get().Count(ctx, SubmissionsCollection, query)
}

func (r *SubmissionRepo) CountByFormID(ctx context.Context, formID string) (int, error) {
	return r.pool.Get().Count(ctx, SubmissionsCollection, map[string]any{"formId": formID})
}

// IndexDataField indexes one submitted field so structured search on it
// does not scan the collection.
func (r *SubmissionRepo) IndexDataField(ctx context.Context, field string) error {
	return r.pool.Get().CreateIndex(ctx, SubmissionsCollection, oxidb.IndexSpec{Fields: []string{"data." + field}})
}

func (r *SubmissionRepo) ListIndexes(ctx context.Context) ([]map[string]any, error) {
	return r.pool.Get().ListIndexes(ctx, SubmissionsCollection)
}

func (r *SubmissionRepo) Compact(ctx context.Context) (map[string]any, error) {
	return r.pool.Get().Compact(ctx, SubmissionsCollection)
}

// FindMatching loads submission id only when it also matches query.
func (r *SubmissionRepo) FindMatching(ctx context.Context, id string, query map[string]any) (*models.Submission, error) {
	q := make(map[string]any, len(query)+1)
	for k, v := range query {
		q[k] = v
	}
	q["_id"] = toNumericID(id)
	return one[models.Submission](r.pool.Get().FindOne(ctx, SubmissionsCollection, q))
}
