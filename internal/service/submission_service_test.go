package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubmissions struct {
	mu      sync.Mutex
	created []*model.Submission

	createErr    func() error
	getBySession func(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error)
}

func (s *stubSubmissions) Create(ctx context.Context, sub *model.Submission) error {
	if s.createErr != nil {
		if err := s.createErr(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, sub)
	return nil
}

func (s *stubSubmissions) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	return s.getBySession(ctx, sessionID)
}

type stubQuestions struct {
	listByAssessment func(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error)
}

func (s *stubQuestions) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	return s.listByAssessment(ctx, assessmentID)
}

func mcQuestion(marks int) model.Question {
	return model.Question{
		ID:            uuid.New(),
		QuestionType:  model.QuestionTypeMultipleChoice,
		CorrectOption: "B",
		Marks:         marks,
	}
}

// claimOnce mimics the conditional UPDATE: the first caller flips the row,
// everyone after gets false.
type claimOnce struct {
	mu      sync.Mutex
	claimed bool
}

func (c *claimOnce) claim() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return false
	}
	c.claimed = true
	return true
}

func newFinalizerService(sessions *stubSessions, submissions *stubSubmissions, questions *stubQuestions) *SubmissionService {
	return NewSubmissionService(sessions, submissions, questions, nil, zerolog.Nop())
}

func finalizerSession() *model.TestSession {
	return &model.TestSession{
		ID:              uuid.New(),
		AssessmentID:    uuid.New(),
		StudentID:       7,
		StartedAt:       time.Now().Add(-10 * time.Minute),
		DurationMinutes: 30,
	}
}

func TestFinalizeGradesAndPersists(t *testing.T) {
	sess := finalizerSession()
	q1 := mcQuestion(5)
	q2 := mcQuestion(5)
	theory := model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeTheory, Marks: 10}

	claim := &claimOnce{}
	sessions := &stubSessions{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
			return sess, nil
		},
		completeIfActive: func(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
			return claim.claim(), nil
		},
	}
	submissions := &stubSubmissions{}
	questions := &stubQuestions{
		listByAssessment: func(ctx context.Context, aid uuid.UUID) ([]model.Question, error) {
			return []model.Question{q1, q2, theory}, nil
		},
	}

	svc := newFinalizerService(sessions, submissions, questions)
	answers := map[string]string{
		q1.ID.String(): "B",
		q2.ID.String(): "C",
	}
	sub, err := svc.Finalize(context.Background(), sess.ID, answers, false)

	require.NoError(t, err)
	assert.Equal(t, 50.0, sub.ObjectiveScore)
	assert.Equal(t, 5.0, sub.ObtainedMarks)
	assert.Equal(t, 10, sub.TotalMarks)
	assert.False(t, sub.IsAutoSubmitted)
	// Theory answers await a human grader.
	assert.Nil(t, sub.TheoryScore)
	require.Len(t, submissions.created, 1)
}

func TestFinalizeExactlyOnce(t *testing.T) {
	sess := finalizerSession()
	claim := &claimOnce{}
	sessions := &stubSessions{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
			return sess, nil
		},
		completeIfActive: func(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
			return claim.claim(), nil
		},
	}
	submissions := &stubSubmissions{}
	questions := &stubQuestions{
		listByAssessment: func(ctx context.Context, aid uuid.UUID) ([]model.Question, error) {
			return []model.Question{mcQuestion(5)}, nil
		},
	}

	svc := newFinalizerService(sessions, submissions, questions)

	// Manual submit and auto-submit race: one of each.
	const racers = 8
	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Finalize(context.Background(), sess.ID, nil, i%2 == 0)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyFinalized)
		}
	}
	assert.Equal(t, 1, won)
	assert.Len(t, submissions.created, 1)
}

func TestFinalizeSubmissionWriteFailure(t *testing.T) {
	sess := finalizerSession()
	claim := &claimOnce{}
	sessions := &stubSessions{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
			return sess, nil
		},
		completeIfActive: func(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
			return claim.claim(), nil
		},
	}
	boom := errors.New("insert failed")
	submissions := &stubSubmissions{createErr: func() error { return boom }}
	questions := &stubQuestions{
		listByAssessment: func(ctx context.Context, aid uuid.UUID) ([]model.Question, error) {
			return []model.Question{mcQuestion(5)}, nil
		},
	}

	svc := newFinalizerService(sessions, submissions, questions)
	_, err := svc.Finalize(context.Background(), sess.ID, nil, true)

	var finalErr *FinalizationError
	require.ErrorAs(t, err, &finalErr)
	assert.Equal(t, sess.ID, finalErr.SessionID)
	assert.ErrorIs(t, err, boom)
}

func TestFinalizeQuestionLoadFailure(t *testing.T) {
	sess := finalizerSession()
	claim := &claimOnce{}
	sessions := &stubSessions{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
			return sess, nil
		},
		completeIfActive: func(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
			return claim.claim(), nil
		},
	}
	questions := &stubQuestions{
		listByAssessment: func(ctx context.Context, aid uuid.UUID) ([]model.Question, error) {
			return nil, errors.New("query failed")
		},
	}

	svc := newFinalizerService(sessions, &stubSubmissions{}, questions)
	_, err := svc.Finalize(context.Background(), sess.ID, nil, true)

	var finalErr *FinalizationError
	require.ErrorAs(t, err, &finalErr)
}

func TestFinalizeAllObjectiveSettlesTheoryScore(t *testing.T) {
	sess := finalizerSession()
	q := mcQuestion(5)
	claim := &claimOnce{}
	sessions := &stubSessions{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
			return sess, nil
		},
		completeIfActive: func(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
			return claim.claim(), nil
		},
	}
	submissions := &stubSubmissions{}
	questions := &stubQuestions{
		listByAssessment: func(ctx context.Context, aid uuid.UUID) ([]model.Question, error) {
			return []model.Question{q}, nil
		},
	}

	svc := newFinalizerService(sessions, submissions, questions)
	sub, err := svc.Finalize(context.Background(), sess.ID, map[string]string{q.ID.String(): "B"}, false)

	require.NoError(t, err)
	require.NotNil(t, sub.TheoryScore)
	assert.Equal(t, 0.0, *sub.TheoryScore)
	assert.Equal(t, 100.0, sub.ObjectiveScore)
}

func TestResultForStudentOwnership(t *testing.T) {
	sess := finalizerSession()
	sessions := &stubSessions{
		getByID: func(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
			return sess, nil
		},
	}
	submissions := &stubSubmissions{
		getBySession: func(ctx context.Context, sid uuid.UUID) (*model.Submission, error) {
			return &model.Submission{SessionID: sid}, nil
		},
	}

	svc := newFinalizerService(sessions, submissions, &stubQuestions{})

	_, err := svc.ResultForStudent(context.Background(), sess.ID, 999)
	assert.ErrorIs(t, err, ErrNotSessionOwner)

	got, err := svc.ResultForStudent(context.Background(), sess.ID, sess.StudentID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.SessionID)
}
