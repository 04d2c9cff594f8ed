package worker

import (
	"context"
	"errors"
	"time"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/service"
	"github.com/rs/zerolog"
)

// sweepBatchSize bounds one sweep so a large backlog cannot starve the
// ticker. Leftovers are picked up next interval.
const sweepBatchSize = 100

// OverdueLister scans for active sessions whose window closed before the
// cutoff. *repository.TestSessionRepository satisfies it.
type OverdueLister interface {
	ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]model.TestSession, error)
}

// ExpiryWorker periodically sweeps for sessions whose attempt window has
// closed with no open view left to auto-submit them (closed laptop, dead
// tab). Each overdue session goes through the same one-shot finalization
// claim as every other path, so the sweep never double-submits.
type ExpiryWorker struct {
	sessions    OverdueLister
	submissions *service.SubmissionService
	interval    time.Duration
	log         zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker sweeping at the given interval.
func NewExpiryWorker(
	sessions OverdueLister,
	submissions *service.SubmissionService,
	interval time.Duration,
	log zerolog.Logger,
) *ExpiryWorker {
	return &ExpiryWorker{
		sessions:    sessions,
		submissions: submissions,
		interval:    interval,
		log:         log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	overdue, err := w.sessions.ListOverdue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("Overdue scan failed")
		return
	}
	if len(overdue) == 0 {
		return
	}

	finalized := 0
	for i := range overdue {
		session := &overdue[i]
		if _, err := w.submissions.FinalizeWithBuffered(ctx, session, true); err != nil {
			if errors.Is(err, service.ErrAlreadyFinalized) {
				// A live view beat the sweep. Expected under load.
				continue
			}
			w.log.Error().Err(err).
				Str("session_id", session.ID.String()).
				Msg("Sweep finalization failed")
			continue
		}
		finalized++
	}

	if finalized > 0 {
		w.log.Info().
			Int("finalized", finalized).
			Int("overdue", len(overdue)).
			Msg("Expired sessions finalized")
	}
}
