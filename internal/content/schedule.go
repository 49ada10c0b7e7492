package content

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/models"
)

// Due reports whether a scheduled item should be live at now.
func Due(item *models.ContentItem, now time.Time) bool {
	return item.Status == models.StatusScheduled &&
		item.PublishDate != nil &&
		!item.PublishDate.After(now)
}

// Publish marks item live at now.
func Publish(item *models.ContentItem, now time.Time) {
	item.Status = models.StatusPublished
	t := now
	item.PublishedAt = &t
	item.UpdatedAt = now
}

// Publisher publishes every scheduled item whose date has passed.
type Publisher interface {
	PublishDue(ctx context.Context, now time.Time) (int, error)
}

// Sweeper calls a Publisher on a fixed interval until its context ends.
type Sweeper struct {
	pub   Publisher
	every time.Duration
	log   *zap.Logger
	now   func() time.Time
}

func NewSweeper(pub Publisher, every time.Duration, log *zap.Logger) *Sweeper {
	if every <= 0 {
		every = time.Minute
	}
	return &Sweeper{pub: pub, every: every, log: log.Named("scheduler"), now: time.Now}
}

// Run sweeps once immediately and then on every tick. It returns when ctx
// is done.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.every)
	defer t.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.pub.PublishDue(ctx, s.now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("publish scheduled content", zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.log.Info("published scheduled content", zap.Int("count", n))
	}
}
