package countdown

import (
	"testing"
	"time"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRemaining(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration int
		now      time.Time
		want     int
	}{
		{"fresh session", 30, start, 30 * 60},
		{"mid attempt", 30, start.Add(10 * time.Minute), 20 * 60},
		{"partial second elapsed rounds down", 30, start.Add(90500 * time.Millisecond), 30*60 - 90},
		{"last second", 30, start.Add(30*time.Minute - time.Second), 1},
		{"exact deadline", 30, start.Add(30 * time.Minute), 0},
		{"past deadline clamps to zero", 30, start.Add(45 * time.Minute), 0},
		{"one minute window", 1, start.Add(59 * time.Second), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remaining(start, tt.duration, tt.now))
		})
	}
}

// A reload halfway through the attempt must land on the same timeline as
// the original view: remaining time derives from the stored start, never
// from when the view opened.
func TestRemainingAfterReload(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sess := &model.TestSession{
		ID:              uuid.New(),
		StartedAt:       start,
		DurationMinutes: 60,
	}

	reloadAt := start.Add(25 * time.Minute)
	assert.Equal(t, 35*60, RemainingForSession(sess, reloadAt))

	// A second view opened at a different instant computes its own value
	// from the same anchors.
	laterView := start.Add(25*time.Minute + 30*time.Second)
	assert.Equal(t, 35*60-30, RemainingForSession(sess, laterView))
}

func TestIsExpired(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sess := &model.TestSession{StartedAt: start, DurationMinutes: 10}

	assert.False(t, IsExpired(sess, start.Add(9*time.Minute)))
	assert.True(t, IsExpired(sess, start.Add(10*time.Minute)))
	assert.True(t, IsExpired(sess, start.Add(11*time.Minute)))
}

func TestDeadline(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sess := &model.TestSession{StartedAt: start, DurationMinutes: 45}

	assert.Equal(t, start.Add(45*time.Minute), Deadline(sess))
}
