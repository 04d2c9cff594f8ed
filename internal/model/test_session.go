package model

import (
	"time"

	"github.com/google/uuid"
)

// TestSession anchors one student's single timed attempt on one assessment.
//
// StartedAt is fixed at creation and is the sole source of time-remaining
// truth; DurationMinutes is copied from the assessment when the session is
// created. At most one session with IsCompleted=false may exist per
// (assessment, student) pair, enforced by a partial unique index rather
// than any client-side lock.
type TestSession struct {
	ID              uuid.UUID  `json:"id"`
	AssessmentID    uuid.UUID  `json:"assessment_id"`
	StudentID       int        `json:"student_id"`
	StartedAt       time.Time  `json:"started_at"`
	DurationMinutes int        `json:"duration_minutes"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	IsCompleted     bool       `json:"is_completed"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TestSessionState is the live attempt state returned to the taking view:
// buffered answers plus the server-computed remaining time.
type TestSessionState struct {
	AssessmentID     uuid.UUID         `json:"assessment_id"`
	StudentID        int               `json:"student_id"`
	SessionID        uuid.UUID         `json:"session_id"`
	BufferedAnswers  map[string]string `json:"buffered_answers"`
	RemainingSeconds int               `json:"remaining_seconds"`
}
