package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eduverge/eduverge-backend/internal/config"
	"github.com/eduverge/eduverge-backend/internal/grading"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrAlreadyFinalized means another path (manual submit, expiry, another
// tab) already claimed the session's completion transition.
var (
	ErrAlreadyFinalized = errors.New("session is already finalized")
	ErrNotSessionOwner  = errors.New("session belongs to another student")
)

// FinalizationError reports that the session was marked completed but the
// submission write failed. The payload has been queued for repair; the
// caller must surface this distinctly so the attempt is not silently lost.
type FinalizationError struct {
	SessionID uuid.UUID
	Err       error
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("finalization failed for session %s: %v", e.SessionID, e.Err)
}

func (e *FinalizationError) Unwrap() error { return e.Err }

// SubmissionStore is the submission persistence surface the finalizer consumes.
type SubmissionStore interface {
	Create(ctx context.Context, sub *model.Submission) error
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error)
}

// QuestionSource provides the question key for scoring.
type QuestionSource interface {
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error)
}

// SubmissionService finalizes test sessions: it claims the completion
// transition exactly once, grades objective answers and persists the
// submission.
type SubmissionService struct {
	sessions    SessionStore
	submissions SubmissionStore
	questions   QuestionSource
	rdb         *redis.Client
	log         zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	sessions SessionStore,
	submissions SubmissionStore,
	questions QuestionSource,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		sessions:    sessions,
		submissions: submissions,
		questions:   questions,
		rdb:         rdb,
		log:         log.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// Finalize transitions the session to completed and persists the graded
// submission. The completion claim is an atomic conditional UPDATE, so of
// all concurrent callers (manual submit, expiry tick, the sweeper) exactly
// one proceeds past it; the rest get ErrAlreadyFinalized. The claim happens
// before the submission write so the session can never be read as active
// once grading has begun.
func (s *SubmissionService) Finalize(ctx context.Context, sessionID uuid.UUID, answers map[string]string, isAutoSubmitted bool) (*model.Submission, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	claimed, err := s.sessions.CompleteIfActive(ctx, sessionID, s.now())
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	if !claimed {
		return nil, ErrAlreadyFinalized
	}

	questions, err := s.questions.ListByAssessment(ctx, session.AssessmentID)
	if err != nil {
		// The session is completed but ungraded: route through the repair
		// queue rather than leaving the attempt dangling.
		s.enqueueRepair(ctx, session, answers, isAutoSubmitted)
		return nil, &FinalizationError{SessionID: sessionID, Err: fmt.Errorf("list questions: %w", err)}
	}

	result := grading.Score(questions, answers)
	if answers == nil {
		answers = map[string]string{}
	}
	sub := &model.Submission{
		SessionID:       sessionID,
		Answers:         answers,
		ObjectiveScore:  result.ObjectiveScore,
		TotalMarks:      result.TotalMarks,
		ObtainedMarks:   result.ObtainedMarks,
		IsAutoSubmitted: isAutoSubmitted,
	}
	if !result.TheoryPending {
		// Nothing left for a human grader: record a settled theory score
		// so TheoryScore == nil always means "grading pending".
		zero := 0.0
		sub.TheoryScore = &zero
	}

	if err := s.submissions.Create(ctx, sub); err != nil {
		s.enqueueRepair(ctx, session, answers, isAutoSubmitted)
		return nil, &FinalizationError{SessionID: sessionID, Err: fmt.Errorf("create submission: %w", err)}
	}

	s.clearBuffers(ctx, session)

	s.log.Info().
		Str("session_id", sessionID.String()).
		Float64("score", result.ObjectiveScore).
		Bool("auto", isAutoSubmitted).
		Msg("Session finalized")
	return sub, nil
}

// FinalizeWithBuffered finalizes using the student's buffered answer hash.
// Used by the auto-submit paths, where no request body carries answers.
func (s *SubmissionService) FinalizeWithBuffered(ctx context.Context, session *model.TestSession, isAutoSubmitted bool) (*model.Submission, error) {
	answers := map[string]string{}
	if s.rdb != nil {
		key := config.CacheKey.StudentAnswersKey(session.AssessmentID.String(), session.StudentID)
		buffered, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Buffered answers unavailable, finalizing empty")
		} else {
			answers = buffered
		}
	}
	return s.Finalize(ctx, session.ID, answers, isAutoSubmitted)
}

// GetBySession returns the submission of a finalized session.
func (s *SubmissionService) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	return s.submissions.GetBySession(ctx, sessionID)
}

// ResultForStudent returns the submission of the student's own finalized
// session. Ownership is checked against the session row so one student
// cannot read another's result by guessing session ids.
func (s *SubmissionService) ResultForStudent(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.Submission, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, ErrNotSessionOwner
	}
	return s.submissions.GetBySession(ctx, sessionID)
}

// RepairPayload is the queued form of a finalization whose submission write
// failed. The repair worker retries it until the row lands.
type RepairPayload struct {
	SessionID       string            `json:"session_id"`
	AssessmentID    string            `json:"assessment_id"`
	StudentID       int               `json:"student_id"`
	Answers         map[string]string `json:"answers"`
	IsAutoSubmitted bool              `json:"is_auto_submitted"`
}

func (s *SubmissionService) enqueueRepair(ctx context.Context, session *model.TestSession, answers map[string]string, isAutoSubmitted bool) {
	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(RepairPayload{
		SessionID:       session.ID.String(),
		AssessmentID:    session.AssessmentID.String(),
		StudentID:       session.StudentID,
		Answers:         answers,
		IsAutoSubmitted: isAutoSubmitted,
	})
	if err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Repair payload marshal failed")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Repair enqueue failed")
	}
}

func (s *SubmissionService) clearBuffers(ctx context.Context, session *model.TestSession) {
	if s.rdb == nil {
		return
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.StudentAnswersKey(session.AssessmentID.String(), session.StudentID))
	pipe.Del(ctx, config.CacheKey.SessionStartKey(session.AssessmentID.String(), session.StudentID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Buffer cleanup failed")
	}
}
