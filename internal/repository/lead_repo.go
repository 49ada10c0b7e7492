package repository

import (
	"context"
	"fmt"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

const LeadsCollection = "_site_leads"

// LeadRepo is the OxiDB lead.Store. Upserts run inside a transaction over a
// unique email index, so concurrent submissions for one address serialize
// into a single lead.
type LeadRepo struct {
	pool     *db.Pool
	attempts int
}

var _ lead.Store = (*LeadRepo)(nil)

func NewLeadRepo(pool *db.Pool, attempts int) *LeadRepo {
	return &LeadRepo{pool: pool, attempts: attempts}
}

func (r *LeadRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateIndex(ctx, LeadsCollection, oxidb.IndexSpec{Fields: []string{"email"}, Unique: true}); err != nil {
		return err
	}
	return c.CreateIndex(ctx, LeadsCollection, oxidb.IndexSpec{Fields: []string{"status"}})
}

func (r *LeadRepo) Upsert(ctx context.Context, incoming *models.Lead, formName string) (*models.Lead, error) {
	email := lead.NormalizeEmail(incoming.Email)
	if email == "" {
		return nil, fmt.Errorf("lead has no email")
	}
	incoming.Email = email

	out, err := r.upsert(ctx, email, incoming, formName)
	if oxidb.IsDuplicate(err) {
		// another connection inserted the address first; merge into it
		out, err = r.upsert(ctx, email, incoming, formName)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert lead: %w", err)
	}
	return out, nil
}

func (r *LeadRepo) upsert(ctx context.Context, email string, incoming *models.Lead, formName string) (*models.Lead, error) {
	var out *models.Lead
	key := map[string]any{"email": email}
	err := r.pool.Tx(ctx, r.attempts, func(ctx context.Context, c *oxidb.Client) error {
		existing, err := one[models.Lead](c.FindOne(ctx, LeadsCollection, key))
		if err != nil {
			return err
		}
		merged := lead.Merge(existing, incoming, formName)
		doc, err := toDoc(merged)
		if err != nil {
			return err
		}
		if existing == nil {
			id, err := c.Insert(ctx, LeadsCollection, doc)
			if err != nil {
				return err
			}
			merged.ID = id
		} else {
			if err := c.UpdateOne(ctx, LeadsCollection, byID(existing.ID), map[string]any{"$set": doc}); err != nil {
				return err
			}
			merged.ID = existing.ID
		}
		out = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		if out.ID, err = committedID(ctx, r.pool.Get(), LeadsCollection, key); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *LeadRepo) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	l, err := one[models.Lead](r.pool.Get().FindOne(ctx, LeadsCollection, byID(id)))
	if err == nil && l == nil {
		return nil, lead.ErrNotFound
	}
	return l, err
}

func (r *LeadRepo) FindByEmail(ctx context.Context, email string) (*models.Lead, error) {
	l, err := one[models.Lead](r.pool.Get().FindOne(ctx, LeadsCollection,
		map[string]any{"email": lead.NormalizeEmail(email)}))
	if err == nil && l == nil {
		return nil, lead.ErrNotFound
	}
	return l, err
}

func (r *LeadRepo) List(ctx context.Context, opts lead.ListOptions) ([]models.Lead, int, error) {
	c := r.pool.Get()
	query := map[string]any{}
	if opts.Status != "" {
		query["status"] = opts.Status
	}
	total, err := c.Count(ctx, LeadsCollection, query)
	if err != nil {
		return nil, 0, err
	}
	docs, err := c.Find(ctx, LeadsCollection, query, page(opts.Skip, opts.Limit))
	if err != nil {
		return nil, 0, err
	}
	return fromDocs[models.Lead](docs), total, nil
}

func (r *LeadRepo) Update(ctx context.Context, id string, p lead.Patch) (*models.Lead, error) {
	var out *models.Lead
	err := r.pool.Tx(ctx, r.attempts, func(ctx context.Context, c *oxidb.Client) error {
		l, err := one[models.Lead](c.FindOne(ctx, LeadsCollection, byID(id)))
		if err != nil {
			return err
		}
		if l == nil {
			return lead.ErrNotFound
		}
		lead.Apply(l, p)
		doc, err := toDoc(l)
		if err != nil {
			return err
		}
		out = l
		return c.UpdateOne(ctx, LeadsCollection, byID(id), map[string]any{"$set": doc})
	})
	return out, err
}

func (r *LeadRepo) Count(ctx context.Context) (int, error) {
	return r.pool.Get().Count(ctx, LeadsCollection, map[string]any{})
}
