package service

import (
	"context"
	"errors"

	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
)

// LeadService exposes the lead store, whichever backend it is.
type LeadService struct {
	store lead.Store
}

func NewLeadService(store lead.Store) *LeadService {
	return &LeadService{store: store}
}

func (s *LeadService) List(ctx context.Context, opts lead.ListOptions) ([]models.Lead, int, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	return s.store.List(ctx, opts)
}

func (s *LeadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	l, err := s.store.FindByID(ctx, id)
	if errors.Is(err, lead.ErrNotFound) {
		return nil, notFound("lead")
	}
	return l, err
}

func (s *LeadService) Update(ctx context.Context, id string, p lead.Patch) (*models.Lead, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, invalid("unknown lead status %q", *p.Status)
	}
	l, err := s.store.Update(ctx, id, p)
	if errors.Is(err, lead.ErrNotFound) {
		return nil, notFound("lead")
	}
	return l, err
}

func (s *LeadService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
