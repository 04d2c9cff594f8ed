package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eduverge/eduverge-backend/internal/config"
	"github.com/eduverge/eduverge-backend/internal/countdown"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	findActive       func(ctx context.Context, assessmentID uuid.UUID, studentID int) (*model.TestSession, error)
	create           func(ctx context.Context, s *model.TestSession) error
	getByID          func(ctx context.Context, id uuid.UUID) (*model.TestSession, error)
	completeIfActive func(ctx context.Context, id uuid.UUID, submittedAt time.Time) (bool, error)
	listByStudent    func(ctx context.Context, studentID int) ([]model.TestSession, error)
}

func (s *stubSessions) FindActive(ctx context.Context, assessmentID uuid.UUID, studentID int) (*model.TestSession, error) {
	return s.findActive(ctx, assessmentID, studentID)
}

func (s *stubSessions) Create(ctx context.Context, sess *model.TestSession) error {
	return s.create(ctx, sess)
}

func (s *stubSessions) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
	return s.getByID(ctx, id)
}

func (s *stubSessions) CompleteIfActive(ctx context.Context, id uuid.UUID, submittedAt time.Time) (bool, error) {
	return s.completeIfActive(ctx, id, submittedAt)
}

func (s *stubSessions) ListByStudent(ctx context.Context, studentID int) ([]model.TestSession, error) {
	return s.listByStudent(ctx, studentID)
}

type stubAssessments struct {
	getByID       func(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
	listPublished func(ctx context.Context) ([]model.Assessment, error)
}

func (s *stubAssessments) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	return s.getByID(ctx, id)
}

func (s *stubAssessments) ListPublished(ctx context.Context) ([]model.Assessment, error) {
	return s.listPublished(ctx)
}

type stubScores struct {
	scoreBySession func(ctx context.Context, sessionID uuid.UUID) (*float64, error)
}

func (s *stubScores) ScoreBySession(ctx context.Context, sessionID uuid.UUID) (*float64, error) {
	return s.scoreBySession(ctx, sessionID)
}

func publishedAssessment(id uuid.UUID) *model.Assessment {
	return &model.Assessment{
		ID:              id,
		Title:           "Midterm",
		Status:          model.AssessmentStatusPublished,
		DurationMinutes: 30,
	}
}

// newResolverService builds a SessionService with deterministic time and an
// instrumented backoff sleep.
func newResolverService(sessions *stubSessions, assessments *stubAssessments) (*SessionService, *[]time.Duration) {
	cfg := &config.Config{
		SessionCreateAttempts: 3,
		SessionRetryBase:      200 * time.Millisecond,
	}
	svc := NewSessionService(sessions, assessments, &stubScores{}, nil, cfg, zerolog.Nop())

	var sleeps []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc, &sleeps
}

func TestResolveReturnsExistingSession(t *testing.T) {
	assessmentID := uuid.New()
	existing := &model.TestSession{ID: uuid.New(), AssessmentID: assessmentID, StudentID: 7}

	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			return existing, nil
		},
		create: func(ctx context.Context, s *model.TestSession) error {
			t.Fatal("create must not run when an active session exists")
			return nil
		},
	}
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return publishedAssessment(assessmentID), nil
		},
	}

	svc, sleeps := newResolverService(sessions, assessments)
	got, err := svc.Resolve(context.Background(), assessmentID, 7)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	assert.Empty(t, *sleeps)
}

func TestResolveCreatesWhenAbsent(t *testing.T) {
	assessmentID := uuid.New()
	newID := uuid.New()

	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			return nil, repository.ErrNotFound
		},
		create: func(ctx context.Context, s *model.TestSession) error {
			s.ID = newID
			s.StartedAt = time.Now()
			return nil
		},
	}
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return publishedAssessment(assessmentID), nil
		},
	}

	svc, _ := newResolverService(sessions, assessments)
	got, err := svc.Resolve(context.Background(), assessmentID, 7)

	require.NoError(t, err)
	assert.Equal(t, newID, got.ID)
	// The session copies the assessment's duration at creation.
	assert.Equal(t, 30, got.DurationMinutes)
}

// Two tabs race the insert: the loser's conflict resolves to the winner's
// row, so every caller ends up holding the same session.
func TestResolveConflictAdoptsWinnerRow(t *testing.T) {
	assessmentID := uuid.New()
	winner := &model.TestSession{ID: uuid.New(), AssessmentID: assessmentID, StudentID: 7}

	lookups := 0
	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			lookups++
			if lookups == 1 {
				// Fast path ran before the winner's commit was visible.
				return nil, repository.ErrNotFound
			}
			return winner, nil
		},
		create: func(ctx context.Context, s *model.TestSession) error {
			return repository.ErrConflict
		},
	}
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return publishedAssessment(assessmentID), nil
		},
	}

	svc, sleeps := newResolverService(sessions, assessments)
	got, err := svc.Resolve(context.Background(), assessmentID, 7)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, *sleeps)
}

func TestResolveBackoffDoublesPerAttempt(t *testing.T) {
	assessmentID := uuid.New()

	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			return nil, repository.ErrNotFound
		},
		create: func(ctx context.Context, s *model.TestSession) error {
			return repository.ErrConflict
		},
	}
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return publishedAssessment(assessmentID), nil
		},
	}

	svc, sleeps := newResolverService(sessions, assessments)
	_, err := svc.Resolve(context.Background(), assessmentID, 7)

	var creationErr *SessionCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Equal(t, []time.Duration{
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}, *sleeps)
}

// The final unconditional re-query rescues the case where the winner's row
// only becomes visible after the last backoff window.
func TestResolveFinalRequeryRescues(t *testing.T) {
	assessmentID := uuid.New()
	winner := &model.TestSession{ID: uuid.New(), AssessmentID: assessmentID, StudentID: 7}

	lookups := 0
	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			lookups++
			// 1 fast path + 3 post-conflict lookups miss; the final
			// re-query (5th) finds the row.
			if lookups < 5 {
				return nil, repository.ErrNotFound
			}
			return winner, nil
		},
		create: func(ctx context.Context, s *model.TestSession) error {
			return repository.ErrConflict
		},
	}
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return publishedAssessment(assessmentID), nil
		},
	}

	svc, _ := newResolverService(sessions, assessments)
	got, err := svc.Resolve(context.Background(), assessmentID, 7)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
}

func TestResolveNonConflictCreateFailsImmediately(t *testing.T) {
	assessmentID := uuid.New()
	boom := errors.New("connection refused")

	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			return nil, repository.ErrNotFound
		},
		create: func(ctx context.Context, s *model.TestSession) error {
			return boom
		},
	}
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return publishedAssessment(assessmentID), nil
		},
	}

	svc, sleeps := newResolverService(sessions, assessments)
	_, err := svc.Resolve(context.Background(), assessmentID, 7)

	var creationErr *SessionCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.ErrorIs(t, err, boom)
	// Non-conflict failures are not retried.
	assert.Empty(t, *sleeps)
}

func TestResolveLookupErrorAborts(t *testing.T) {
	assessmentID := uuid.New()
	boom := errors.New("read timeout")

	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			return nil, boom
		},
		create: func(ctx context.Context, s *model.TestSession) error {
			t.Fatal("create must not run when the existence check fails")
			return nil
		},
	}
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return publishedAssessment(assessmentID), nil
		},
	}

	svc, _ := newResolverService(sessions, assessments)
	_, err := svc.Resolve(context.Background(), assessmentID, 7)

	var creationErr *SessionCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.ErrorIs(t, err, boom)
}

func TestResolveUnpublishedAssessment(t *testing.T) {
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return &model.Assessment{ID: id, Status: model.AssessmentStatusDraft}, nil
		},
	}

	svc, _ := newResolverService(&stubSessions{}, assessments)
	_, err := svc.Resolve(context.Background(), uuid.New(), 7)

	assert.ErrorIs(t, err, ErrAssessmentNotAvailable)
}

func TestResolveUnknownAssessment(t *testing.T) {
	assessments := &stubAssessments{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
			return nil, repository.ErrNotFound
		},
	}

	svc, _ := newResolverService(&stubSessions{}, assessments)
	_, err := svc.Resolve(context.Background(), uuid.New(), 7)

	assert.ErrorIs(t, err, ErrAssessmentNotAvailable)
}

func TestVerifyActiveNoSession(t *testing.T) {
	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			return nil, repository.ErrNotFound
		},
	}

	svc, _ := newResolverService(sessions, &stubAssessments{})
	_, err := svc.VerifyActive(context.Background(), uuid.New(), 7)

	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestGetStateComputesRemaining(t *testing.T) {
	assessmentID := uuid.New()
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	sess := &model.TestSession{
		ID:              uuid.New(),
		AssessmentID:    assessmentID,
		StudentID:       7,
		StartedAt:       now.Add(-10 * time.Minute),
		DurationMinutes: 30,
	}

	sessions := &stubSessions{
		findActive: func(ctx context.Context, aid uuid.UUID, sid int) (*model.TestSession, error) {
			return sess, nil
		},
	}

	svc, _ := newResolverService(sessions, &stubAssessments{})
	svc.now = func() time.Time { return now }

	state, err := svc.GetState(context.Background(), assessmentID, 7)

	require.NoError(t, err)
	assert.Equal(t, sess.ID, state.SessionID)
	assert.Equal(t, 20*60, state.RemainingSeconds)
}

func TestLobbyOverlay(t *testing.T) {
	available := publishedAssessment(uuid.New())
	inProgress := publishedAssessment(uuid.New())
	completed := publishedAssessment(uuid.New())

	completedSession := model.TestSession{
		ID:           uuid.New(),
		AssessmentID: completed.ID,
		StudentID:    7,
		IsCompleted:  true,
	}
	activeSession := model.TestSession{
		ID:           uuid.New(),
		AssessmentID: inProgress.ID,
		StudentID:    7,
	}

	sessions := &stubSessions{
		listByStudent: func(ctx context.Context, sid int) ([]model.TestSession, error) {
			return []model.TestSession{activeSession, completedSession}, nil
		},
	}
	assessments := &stubAssessments{
		listPublished: func(ctx context.Context) ([]model.Assessment, error) {
			return []model.Assessment{*available, *inProgress, *completed}, nil
		},
	}
	score := 85.0
	scores := &stubScores{
		scoreBySession: func(ctx context.Context, sid uuid.UUID) (*float64, error) {
			require.Equal(t, completedSession.ID, sid)
			return &score, nil
		},
	}

	cfg := &config.Config{SessionCreateAttempts: 3, SessionRetryBase: 200 * time.Millisecond}
	svc := NewSessionService(sessions, assessments, scores, nil, cfg, zerolog.Nop())

	lobby, err := svc.Lobby(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, lobby, 3)
	assert.Equal(t, LobbyStatusAvailable, lobby[0].LobbyStatus)
	assert.Equal(t, LobbyStatusInProgress, lobby[1].LobbyStatus)
	assert.Equal(t, LobbyStatusCompleted, lobby[2].LobbyStatus)
	require.NotNil(t, lobby[2].Score)
	assert.Equal(t, 85.0, *lobby[2].Score)
}

func TestStartAnchorMatchesDBReaders(t *testing.T) {
	// PostgreSQL stores microsecond timestamps. The cached anchor must stay
	// within 1ms of the row's start so cache readers and DB-anchored readers
	// compute the same remaining-seconds floor, where second-granularity
	// caching used to drift by up to a full second.
	start := time.Date(2026, 3, 10, 9, 0, 0, 738912000, time.UTC)
	cached := startFromAnchor(startAnchor(start))

	require.Less(t, start.Sub(cached), time.Millisecond)

	for _, elapsed := range []time.Duration{
		500 * time.Millisecond,
		59*time.Second + 800*time.Millisecond,
		5*time.Minute + 250*time.Millisecond,
		29*time.Minute + 59*time.Second + 500*time.Millisecond,
	} {
		at := start.Add(elapsed)
		assert.Equal(t,
			countdown.Remaining(start, 30, at),
			countdown.Remaining(cached, 30, at),
			"diverged at elapsed %v", elapsed)
	}
}
