package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eduverge/eduverge-backend/internal/config"
	"github.com/eduverge/eduverge-backend/internal/countdown"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrAssessmentNotAvailable = errors.New("assessment is not available")
	ErrNoActiveSession        = errors.New("no active session for this assessment")
)

// SessionCreationError reports that session resolution failed after the
// bounded conflict-retry loop, or that a non-conflict store failure aborted
// it. The conflict class itself never escapes the resolver.
type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("session creation failed: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// SessionStore is the session persistence surface the resolver consumes.
// *repository.TestSessionRepository satisfies it.
type SessionStore interface {
	FindActive(ctx context.Context, assessmentID uuid.UUID, studentID int) (*model.TestSession, error)
	Create(ctx context.Context, s *model.TestSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error)
	CompleteIfActive(ctx context.Context, id uuid.UUID, submittedAt time.Time) (bool, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.TestSession, error)
}

// AssessmentSource provides the canonical assessment record, including the
// duration a new session copies.
type AssessmentSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
	ListPublished(ctx context.Context) ([]model.Assessment, error)
}

// ScoreSource looks up the graded score of a finalized session for the
// lobby overlay.
type ScoreSource interface {
	ScoreBySession(ctx context.Context, sessionID uuid.UUID) (*float64, error)
}

// SessionService resolves the single authoritative test session for an
// (assessment, student) pair and serves live attempt state.
type SessionService struct {
	sessions    SessionStore
	assessments AssessmentSource
	scores      ScoreSource
	rdb         *redis.Client
	log         zerolog.Logger

	// Conflict-retry knobs, from config.
	createAttempts int
	retryBase      time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions SessionStore,
	assessments AssessmentSource,
	scores ScoreSource,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:       sessions,
		assessments:    assessments,
		scores:         scores,
		rdb:            rdb,
		log:            log.With().Str("component", "session_service").Logger(),
		createAttempts: cfg.SessionCreateAttempts,
		retryBase:      cfg.SessionRetryBase,
		now:            time.Now,
		sleep:          sleepCtx,
	}
}

// Resolve returns the single non-completed session for the authenticated
// student on the assessment, creating it if absent. Concurrent creation
// from other tabs or in-flight retries is absorbed here: the partial unique
// index is the serialization point and conflicts are retried with
// exponential backoff. studentID must come from validated claims; identity
// is threaded explicitly, never read from ambient state.
func (s *SessionService) Resolve(ctx context.Context, assessmentID uuid.UUID, studentID int) (*model.TestSession, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssessmentNotAvailable
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	if assessment.Status != model.AssessmentStatusPublished {
		return nil, ErrAssessmentNotAvailable
	}

	// Fast path: page reloads and duplicate tabs find the existing row.
	// A lookup failure other than not-found aborts instead of falling
	// through to creation: creating blind on a failing store could mint a
	// second window for a student whose active row was simply unreadable.
	existing, err := s.sessions.FindActive(ctx, assessmentID, studentID)
	if err == nil {
		s.cacheStartTime(ctx, existing)
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, &SessionCreationError{Err: fmt.Errorf("lookup active session: %w", err)}
	}

	var lastErr error
	for attempt := 1; attempt <= s.createAttempts; attempt++ {
		session := &model.TestSession{
			AssessmentID:    assessmentID,
			StudentID:       studentID,
			DurationMinutes: assessment.DurationMinutes,
		}

		err := s.sessions.Create(ctx, session)
		if err == nil {
			s.cacheStartTime(ctx, session)
			s.log.Debug().
				Str("session_id", session.ID.String()).
				Int("student_id", studentID).
				Int("attempt", attempt).
				Msg("Session created")
			return session, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			// Only the uniqueness-violation class is retryable.
			return nil, &SessionCreationError{Err: fmt.Errorf("create session: %w", err)}
		}
		lastErr = err

		// A concurrent writer won the insert. Back off, then pick up their
		// row; if it is not visible yet, loop back and retry creation.
		delay := s.retryBase << (attempt - 1)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, &SessionCreationError{Err: err}
		}

		existing, err := s.sessions.FindActive(ctx, assessmentID, studentID)
		if err == nil {
			s.cacheStartTime(ctx, existing)
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, &SessionCreationError{Err: fmt.Errorf("re-query after conflict: %w", err)}
		}
	}

	// Retries exhausted. One last unconditional re-query before giving up.
	existing, err = s.sessions.FindActive(ctx, assessmentID, studentID)
	if err == nil {
		s.cacheStartTime(ctx, existing)
		return existing, nil
	}

	s.log.Warn().
		Str("assessment_id", assessmentID.String()).
		Int("student_id", studentID).
		Int("attempts", s.createAttempts).
		Msg("Session creation retries exhausted")
	return nil, &SessionCreationError{Err: lastErr}
}

// VerifyActive returns the student's active session for the assessment, or
// ErrNoActiveSession when none exists (including when it was completed).
func (s *SessionService) VerifyActive(ctx context.Context, assessmentID uuid.UUID, studentID int) (*model.TestSession, error) {
	sess, err := s.sessions.FindActive(ctx, assessmentID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return sess, nil
}

// GetState returns the live attempt state: buffered answers and remaining
// seconds computed from the cached start time, falling back to PostgreSQL
// (and self-healing the cache) on a miss.
func (s *SessionService) GetState(ctx context.Context, assessmentID uuid.UUID, studentID int) (*model.TestSessionState, error) {
	sess, err := s.VerifyActive(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}

	answers := map[string]string{}
	startedAt := sess.StartedAt
	if s.rdb != nil {
		answersKey := config.CacheKey.StudentAnswersKey(assessmentID.String(), studentID)
		answers, err = s.rdb.HGetAll(ctx, answersKey).Result()
		if err != nil {
			return nil, fmt.Errorf("get buffered answers: %w", err)
		}

		startKey := config.CacheKey.SessionStartKey(assessmentID.String(), studentID)
		if anchor, err := s.rdb.Get(ctx, startKey).Int64(); err == nil {
			startedAt = startFromAnchor(anchor)
		} else if errors.Is(err, redis.Nil) {
			// Evicted or legacy session; repopulate so the next read is fast.
			s.cacheStartTime(ctx, sess)
		}
	}

	return &model.TestSessionState{
		AssessmentID:     assessmentID,
		StudentID:        studentID,
		SessionID:        sess.ID,
		BufferedAnswers:  answers,
		RemainingSeconds: countdown.Remaining(startedAt, sess.DurationMinutes, s.now()),
	}, nil
}

// BufferAnswer stores one answer in the student's Redis buffer. Buffered
// answers survive reloads and feed auto-submission.
func (s *SessionService) BufferAnswer(ctx context.Context, assessmentID uuid.UUID, studentID int, questionID, answer string) error {
	if _, err := s.VerifyActive(ctx, assessmentID, studentID); err != nil {
		return err
	}
	key := config.CacheKey.StudentAnswersKey(assessmentID.String(), studentID)
	return s.rdb.HSet(ctx, key, questionID, answer).Err()
}

// BufferedAnswers returns the student's buffered answer map.
func (s *SessionService) BufferedAnswers(ctx context.Context, assessmentID uuid.UUID, studentID int) (map[string]string, error) {
	key := config.CacheKey.StudentAnswersKey(assessmentID.String(), studentID)
	return s.rdb.HGetAll(ctx, key).Result()
}

// LobbyStatus represents the concrete state of an assessment in the lobby.
type LobbyStatus string

const (
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
)

// LobbyAssessment is an assessment as displayed in the student lobby.
type LobbyAssessment struct {
	model.Assessment
	LobbyStatus LobbyStatus `json:"lobby_status"`
	Score       *float64    `json:"score,omitempty"`
}

// Lobby returns the published assessments overlaid with the student's
// session status and graded score.
func (s *SessionService) Lobby(ctx context.Context, studentID int) ([]LobbyAssessment, error) {
	published, err := s.assessments.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published assessments: %w", err)
	}

	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	// Sessions come newest first; keep the newest per assessment.
	sessionMap := make(map[uuid.UUID]*model.TestSession, len(sessions))
	for i := range sessions {
		if _, ok := sessionMap[sessions[i].AssessmentID]; !ok {
			sessionMap[sessions[i].AssessmentID] = &sessions[i]
		}
	}

	lobby := make([]LobbyAssessment, 0, len(published))
	for _, a := range published {
		entry := LobbyAssessment{Assessment: a, LobbyStatus: LobbyStatusAvailable}
		if sess, ok := sessionMap[a.ID]; ok {
			if sess.IsCompleted {
				entry.LobbyStatus = LobbyStatusCompleted
				if score, err := s.scores.ScoreBySession(ctx, sess.ID); err == nil {
					entry.Score = score
				}
			} else {
				entry.LobbyStatus = LobbyStatusInProgress
			}
		}
		lobby = append(lobby, entry)
	}
	return lobby, nil
}

// startAnchor encodes a session start for the Redis cache. Millisecond
// granularity keeps cache readers on the same remaining-seconds floor as
// readers anchored on the PostgreSQL row.
func startAnchor(t time.Time) int64 { return t.UnixMilli() }

// startFromAnchor decodes a cached start anchor.
func startFromAnchor(ms int64) time.Time { return time.UnixMilli(ms) }

// cacheStartTime stores the session's start anchor in Redis so the state
// endpoint avoids a DB read. Best-effort: a cache failure never fails
// resolution, the DB fallback covers it.
func (s *SessionService) cacheStartTime(ctx context.Context, sess *model.TestSession) {
	if s.rdb == nil {
		return
	}
	key := config.CacheKey.SessionStartKey(sess.AssessmentID.String(), sess.StudentID)
	if err := s.rdb.Set(ctx, key, startAnchor(sess.StartedAt), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to cache start time")
	}
}

// sleepCtx waits for d or until ctx is done, whichever comes first. Backoff
// waits stay cancellable so navigating away mid-retry does not leave an
// orphaned loop.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
