package service

import (
	"context"
	"time"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/pipeline"
	"github.com/parisxmas/oxisite/internal/repository"
)

type SubmissionService struct {
	subs *repository.SubmissionRepo
	proc *pipeline.Processor
}

func NewSubmissionService(subs *repository.SubmissionRepo, proc *pipeline.Processor) *SubmissionService {
	return &SubmissionService{subs: subs, proc: proc}
}

// Submit runs a public submission through the pipeline.
func (s *SubmissionService) Submit(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	return s.proc.Submit(ctx, in)
}

func (s *SubmissionService) List(ctx context.Context, formID string, skip, limit int) ([]models.Submission, int, error) {
	return s.subs.FindByFormID(ctx, formID, skip, limit)
}

// Get loads a submission that belongs to formID.
func (s *SubmissionService) Get(ctx context.Context, formID, id string) (*models.Submission, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.FormID != formID {
		return nil, notFound("submission")
	}
	return sub, nil
}

// Review changes the review state of a submission. Its data stays as
// received.
func (s *SubmissionService) Review(ctx context.Context, formID, id string, status models.SubmissionStatus, notes string) (*models.Submission, error) {
	switch status {
	case models.SubmissionReviewed, models.SubmissionRejected, models.SubmissionSpam, models.SubmissionConverted, models.SubmissionProcessed:
	default:
		return nil, invalid("status %q cannot be set by review", status)
	}
	sub, err := s.Get(ctx, formID, id)
	if err != nil {
		return nil, err
	}
	sub.Status = status
	if notes != "" {
		sub.Notes = notes
	}
	sub.UpdatedAt = time.Now().UTC()
	if err := s.subs.Update(ctx, id, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) Delete(ctx context.Context, formID, id string) error {
	if _, err := s.Get(ctx, formID, id); err != nil {
		return err
	}
	return s.subs.Delete(ctx, id)
}

func (s *SubmissionService) CountByForm(ctx context.Context, formID string) (int, error) {
	return s.subs.CountByFormID(ctx, formID)
}

func (s *SubmissionService) CountByStatus(ctx context.Context, status models.SubmissionStatus) (int, error) {
	return s.subs.Count(ctx, status)
}

func (s *SubmissionService) Recent(ctx context.Context, limit int) ([]models.Submission, error) {
	return s.subs.Recent(ctx, limit)
}
