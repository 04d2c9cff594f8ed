package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/eduverge/eduverge-backend/internal/config"
	"github.com/eduverge/eduverge-backend/internal/grading"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/repository"
	"github.com/eduverge/eduverge-backend/internal/service"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SubmissionWorker consumes the repair queue: finalizations whose
// submission insert failed after the session was already marked completed.
// Each payload is re-graded and re-inserted until the row lands, so a
// transient database outage never loses a student's attempt.
type SubmissionWorker struct {
	submissions *repository.SubmissionRepository
	questions   *repository.QuestionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewSubmissionWorker creates a new SubmissionWorker.
func NewSubmissionWorker(
	submissions *repository.SubmissionRepository,
	questions *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionWorker {
	return &SubmissionWorker{
		submissions: submissions,
		questions:   questions,
		rdb:         rdb,
		log:         log.With().Str("component", "submission_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SubmissionWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistSubmissionsQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload service.RepairPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistSubmission(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("session_id", payload.SessionID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *SubmissionWorker) persistSubmission(ctx context.Context, p *service.RepairPayload) error {
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return err
	}
	assessmentID, err := uuid.Parse(p.AssessmentID)
	if err != nil {
		return err
	}

	questions, err := w.questions.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return err
	}

	answers := p.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	res := grading.Score(questions, answers)

	sub := &model.Submission{
		SessionID:       sessionID,
		Answers:         answers,
		ObjectiveScore:  res.ObjectiveScore,
		TotalMarks:      res.TotalMarks,
		ObtainedMarks:   res.ObtainedMarks,
		IsAutoSubmitted: p.IsAutoSubmitted,
	}
	if !res.TheoryPending {
		zero := 0.0
		sub.TheoryScore = &zero
	}

	err = w.submissions.Create(ctx, sub)
	if errors.Is(err, repository.ErrConflict) {
		// A retry raced a successful insert. The row is there; done.
		w.log.Debug().Str("session_id", p.SessionID).Msg("Submission already persisted")
		return nil
	}
	if err == nil {
		w.log.Info().Str("session_id", p.SessionID).Msg("Repaired submission persisted")
	}
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *SubmissionWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistSubmissionsQueue).Result()
		if err != nil {
			break
		}

		var payload service.RepairPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistSubmission(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
