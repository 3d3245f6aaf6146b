package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"appliance-warranty-backend/internal/reminder"
	"appliance-warranty-backend/internal/warranty"
)

// Sweeper periodically queues reminders that are overdue or due soon.
type Sweeper struct {
	store    Store
	pool     *WorkerPool
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	log      *zap.Logger
}

func NewSweeper(st Store, pool *WorkerPool, interval time.Duration, loc *time.Location, log *zap.Logger) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{store: st, pool: pool, interval: interval, loc: loc, now: time.Now, log: log}
}

// Run sweeps once immediately, then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("starting reminder sweeper", zap.Duration("interval", s.interval))
	s.SweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce dispatches every reminder needing attention and returns how
// many were queued.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	today := warranty.DateOf(s.now().In(s.loc))
	due, err := s.store.ListDueReminders(ctx, today.AddDate(0, 0, reminder.SoonWindowDays))
	if err != nil {
		s.log.Warn("failed to list due reminders", zap.Error(err))
		return 0
	}

	queued := 0
	for _, r := range due {
		if !reminder.UrgencyOf(r.NextDueDate, today).NeedsAttention() {
			continue
		}
		if !s.pool.Dispatch(ctx, r.ID) {
			break
		}
		queued++
	}
	if queued > 0 {
		s.log.Info("queued reminder notifications", zap.Int("count", queued))
	}
	return queued
}
