package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload carries any client action; unused fields stay empty.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSaved   Event = "saved"
	EventTick    Event = "tick"
	EventExpired Event = "expired"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

// TickEvent is pushed once per second while the countdown runs.
type TickEvent struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// SavedEvent acknowledges a buffered answer.
type SavedEvent struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// GradedEvent reports the finalized attempt. Auto reports whether expiry,
// rather than the student, triggered the submission.
type GradedEvent struct {
	Event          Event   `json:"event"`
	ObjectiveScore float64 `json:"objective_score"`
	TheoryPending  bool    `json:"theory_pending"`
	Auto           bool    `json:"auto"`
}

// ExpiredEvent announces that the attempt window closed.
type ExpiredEvent struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
