package content

import (
	"errors"
	"fmt"
	"time"

	"github.com/parisxmas/oxisite/internal/models"
)

// ErrForbidden wraps every permission failure.
var ErrForbidden = errors.New("forbidden")

// CheckTransition reports whether role may save an item with status to.
// Creates are never checked; draft is always allowed.
func CheckTransition(role string, creating bool, to models.ContentStatus) error {
	if creating || to == "" || to == models.StatusDraft {
		return nil
	}
	if !models.CanEdit(role) {
		return fmt.Errorf("%w: you do not have permission to edit content", ErrForbidden)
	}
	switch to {
	case models.StatusPublished:
		if !models.CanPublish(role) {
			return fmt.Errorf("%w: you do not have permission to publish content", ErrForbidden)
		}
	case models.StatusApproved:
		if !models.CanApprove(role) {
			return fmt.Errorf("%w: you do not have permission to approve content", ErrForbidden)
		}
	}
	return nil
}

// Workflow is the record that mirrors item after a save by actor.
func Workflow(item *models.ContentItem, actor string, now time.Time) *models.Workflow {
	status := item.Status
	if status == "" {
		status = models.StatusDraft
	}
	title := item.Title
	if title == "" {
		title = fmt.Sprintf("%s - %s", item.Kind, item.ID)
	}
	return &models.Workflow{
		Title:       title,
		ContentType: item.Kind,
		ContentID:   item.ID,
		Status:      status,
		Author:      actor,
		AssignedTo:  actor,
		IsActive:    true,
		UpdatedAt:   now,
	}
}
