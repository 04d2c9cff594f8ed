// Package countdown derives the authoritative remaining time of a test
// session and drives the per-view countdown state machine. All time
// arithmetic anchors on the session's server-recorded start timestamp and
// duration; no call accumulates state from a previous tick.
package countdown

import (
	"time"

	"github.com/eduverge/eduverge-backend/internal/model"
)

// Remaining returns the whole seconds left in the attempt window at the
// given instant, clamped at zero. The result is a pure function of
// (startedAt, durationMinutes, now), so every concurrent reader computes
// the same value for the same instant.
func Remaining(startedAt time.Time, durationMinutes int, now time.Time) int {
	elapsed := int(now.Sub(startedAt) / time.Second)
	remaining := durationMinutes*60 - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingForSession is Remaining keyed off a session record.
func RemainingForSession(s *model.TestSession, now time.Time) int {
	return Remaining(s.StartedAt, s.DurationMinutes, now)
}

// IsExpired reports whether the attempt window has closed at the given instant.
func IsExpired(s *model.TestSession, now time.Time) bool {
	return RemainingForSession(s, now) == 0
}

// Deadline returns the instant the attempt window closes.
func Deadline(s *model.TestSession) time.Time {
	return s.StartedAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}
