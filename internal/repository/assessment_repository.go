package repository

import (
	"context"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssessmentRepository handles assessment data access.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

const assessmentColumns = `id, title, subject, author_id, scheduled_start, scheduled_end, duration_minutes, status, created_at, updated_at`

// GetByID retrieves an assessment by its UUID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id,
	).Scan(&a.ID, &a.Title, &a.Subject, &a.AuthorID, &a.ScheduledStart, &a.ScheduledEnd, &a.DurationMinutes, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

// Create inserts a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO assessments (title, subject, author_id, scheduled_start, scheduled_end, duration_minutes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		a.Title, a.Subject, a.AuthorID, a.ScheduledStart, a.ScheduledEnd, a.DurationMinutes, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return classify(err)
}

// UpdateStatus changes the status of an assessment.
func (r *AssessmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssessmentStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessments SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

// ListPublished retrieves all published assessments, newest first.
func (r *AssessmentRepository) ListPublished(ctx context.Context) ([]model.Assessment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+`
		 FROM assessments
		 WHERE status = $1
		 ORDER BY created_at DESC`, model.AssessmentStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []model.Assessment
	for rows.Next() {
		var a model.Assessment
		if err := rows.Scan(&a.ID, &a.Title, &a.Subject, &a.AuthorID, &a.ScheduledStart, &a.ScheduledEnd, &a.DurationMinutes, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

// ListByAuthor retrieves assessments created by one faculty member.
func (r *AssessmentRepository) ListByAuthor(ctx context.Context, authorID int) ([]model.Assessment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+`
		 FROM assessments
		 WHERE author_id = $1
		 ORDER BY created_at DESC`, authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []model.Assessment
	for rows.Next() {
		var a model.Assessment
		if err := rows.Scan(&a.ID, &a.Title, &a.Subject, &a.AuthorID, &a.ScheduledStart, &a.ScheduledEnd, &a.DurationMinutes, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}
