package repository

import (
	"context"
	"time"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestSessionRepository handles test session data access.
type TestSessionRepository struct {
	pool *pgxpool.Pool
}

// NewTestSessionRepository creates a new TestSessionRepository.
func NewTestSessionRepository(pool *pgxpool.Pool) *TestSessionRepository {
	return &TestSessionRepository{pool: pool}
}

const sessionColumns = `id, assessment_id, student_id, started_at, duration_minutes, submitted_at, is_completed, created_at`

// FindActive retrieves the single non-completed session for an
// (assessment, student) pair. Completed sessions are never matched, so a
// student who already finished cannot resume a dead timer through this
// lookup. Returns ErrNotFound when no active session exists.
func (r *TestSessionRepository) FindActive(ctx context.Context, assessmentID uuid.UUID, studentID int) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM test_sessions
		 WHERE assessment_id = $1 AND student_id = $2 AND NOT is_completed`,
		assessmentID, studentID,
	).Scan(&s.ID, &s.AssessmentID, &s.StudentID, &s.StartedAt, &s.DurationMinutes, &s.SubmittedAt, &s.IsCompleted, &s.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return s, nil
}

// GetByID retrieves a session regardless of completion state.
func (r *TestSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.AssessmentID, &s.StudentID, &s.StartedAt, &s.DurationMinutes, &s.SubmittedAt, &s.IsCompleted, &s.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return s, nil
}

// Create inserts a new active session. started_at is assigned by the
// database so concurrent readers and the expiry sweeper all see the same
// anchor. A concurrent insert against the partial unique index on
// (assessment_id, student_id) WHERE NOT is_completed surfaces as
// ErrConflict.
func (r *TestSessionRepository) Create(ctx context.Context, s *model.TestSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_sessions (assessment_id, student_id, duration_minutes)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at, created_at`,
		s.AssessmentID, s.StudentID, s.DurationMinutes,
	).Scan(&s.ID, &s.StartedAt, &s.CreatedAt)
	return classify(err)
}

// CompleteIfActive atomically claims the completion transition. It returns
// true only for the caller whose UPDATE flipped is_completed; every later
// caller gets false. This is the durable exactly-once guard behind
// finalization; the in-process one-shot flags are an optimization on top.
func (r *TestSessionRepository) CompleteIfActive(ctx context.Context, id uuid.UUID, submittedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_sessions
		 SET is_completed = true, submitted_at = $1
		 WHERE id = $2 AND NOT is_completed`,
		submittedAt, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListOverdue retrieves active sessions whose window closed before cutoff.
// Used by the expiry sweeper to auto-submit abandoned attempts.
func (r *TestSessionRepository) ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]model.TestSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM test_sessions
		 WHERE NOT is_completed
		   AND started_at + duration_minutes * interval '1 minute' < $1
		 ORDER BY started_at ASC
		 LIMIT $2`, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.TestSession
	for rows.Next() {
		var s model.TestSession
		if err := rows.Scan(&s.ID, &s.AssessmentID, &s.StudentID, &s.StartedAt, &s.DurationMinutes, &s.SubmittedAt, &s.IsCompleted, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListByStudent retrieves all sessions for a given student, newest first.
func (r *TestSessionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.TestSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM test_sessions
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.TestSession
	for rows.Next() {
		var s model.TestSession
		if err := rows.Scan(&s.ID, &s.AssessmentID, &s.StudentID, &s.StartedAt, &s.DurationMinutes, &s.SubmittedAt, &s.IsCompleted, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
