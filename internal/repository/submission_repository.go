package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository handles submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts the submission row for a finalized session. The unique
// constraint on session_id means a duplicate insert (e.g. a repair-queue
// retry racing a successful write) comes back as ErrConflict.
func (r *SubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	answersJSON, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO submissions (session_id, answers, objective_score, theory_score, total_marks, obtained_marks, is_auto_submitted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		sub.SessionID, answersJSON, sub.ObjectiveScore, sub.TheoryScore, sub.TotalMarks, sub.ObtainedMarks, sub.IsAutoSubmitted,
	).Scan(&sub.ID, &sub.CreatedAt)
	return classify(err)
}

// GetBySession retrieves the submission for a session.
func (r *SubmissionRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	sub := &model.Submission{}
	var answersJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, answers, objective_score, theory_score, total_marks, obtained_marks, is_auto_submitted, created_at
		 FROM submissions WHERE session_id = $1`, sessionID,
	).Scan(&sub.ID, &sub.SessionID, &answersJSON, &sub.ObjectiveScore, &sub.TheoryScore, &sub.TotalMarks, &sub.ObtainedMarks, &sub.IsAutoSubmitted, &sub.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	if err := json.Unmarshal(answersJSON, &sub.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return sub, nil
}

// ScoreBySession returns just the objective score for a finalized session,
// used by the lobby overlay.
func (r *SubmissionRepository) ScoreBySession(ctx context.Context, sessionID uuid.UUID) (*float64, error) {
	var score float64
	err := r.pool.QueryRow(ctx,
		`SELECT objective_score FROM submissions WHERE session_id = $1`, sessionID,
	).Scan(&score)
	if err != nil {
		return nil, classify(err)
	}
	return &score, nil
}
