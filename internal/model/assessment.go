package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus enumerates the possible states of an assessment.
type AssessmentStatus string

const (
	AssessmentStatusDraft     AssessmentStatus = "DRAFT"
	AssessmentStatusPublished AssessmentStatus = "PUBLISHED"
	AssessmentStatusArchived  AssessmentStatus = "ARCHIVED"
)

// Assessment represents an assessment entity.
type Assessment struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Subject         string           `json:"subject"`
	AuthorID        int              `json:"author_id"`
	ScheduledStart  *time.Time       `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time       `json:"scheduled_end,omitempty"`
	DurationMinutes int              `json:"duration_minutes"`
	Status          AssessmentStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CreateAssessmentRequest is the payload for creating a new assessment.
type CreateAssessmentRequest struct {
	Title           string     `json:"title" binding:"required,min=3,max=255"`
	Subject         string     `json:"subject" binding:"required,min=2,max=100"`
	ScheduledStart  *time.Time `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// AssessmentPayload is the Redis-cached payload sent to students (no correct answers).
type AssessmentPayload struct {
	AssessmentID uuid.UUID            `json:"assessment_id"`
	Title        string               `json:"title"`
	Subject      string               `json:"subject"`
	Duration     int                  `json:"duration_minutes"`
	Questions    []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           uuid.UUID       `json:"id"`
	QuestionText string          `json:"question_text"`
	QuestionType QuestionType    `json:"question_type"`
	Options      json.RawMessage `json:"options"`
	Marks        int             `json:"marks"`
	OrderNum     int             `json:"order_num"`
}
