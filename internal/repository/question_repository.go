package repository

import (
	"context"
	"fmt"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByAssessment retrieves all questions of an assessment in display order.
func (r *QuestionRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assessment_id, question_text, question_type, options, correct_option, marks, order_num
		 FROM questions
		 WHERE assessment_id = $1
		 ORDER BY order_num ASC`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.QuestionText, &q.QuestionType, &q.Options, &q.CorrectOption, &q.Marks, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceAll swaps an assessment's full question set in one transaction.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, assessmentID uuid.UUID, questions []model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE assessment_id = $1`, assessmentID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		for i := range questions {
			q := &questions[i]
			err := tx.QueryRow(ctx,
				`INSERT INTO questions (assessment_id, question_text, question_type, options, correct_option, marks, order_num)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id`,
				assessmentID, q.QuestionText, q.QuestionType, q.Options, q.CorrectOption, q.Marks, q.OrderNum,
			).Scan(&q.ID)
			if err != nil {
				return fmt.Errorf("insert question %d: %w", i, err)
			}
		}
		return nil
	})
}
