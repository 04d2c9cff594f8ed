package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission records the graded outcome of one finalized test session.
// TheoryScore stays nil until a human grades the theory answers.
type Submission struct {
	ID              uuid.UUID         `json:"id"`
	SessionID       uuid.UUID         `json:"session_id"`
	Answers         map[string]string `json:"answers"`
	ObjectiveScore  float64           `json:"objective_score"`
	TheoryScore     *float64          `json:"theory_score,omitempty"`
	TotalMarks      int               `json:"total_marks"`
	ObtainedMarks   float64           `json:"obtained_marks"`
	IsAutoSubmitted bool              `json:"is_auto_submitted"`
	CreatedAt       time.Time         `json:"created_at"`
}

// SubmitRequest is the payload for a manual submission.
type SubmitRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// AutosaveRequest is the REST fallback payload for buffering a single answer.
type AutosaveRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Answer     string `json:"answer" binding:"required,max=10000"`
}
