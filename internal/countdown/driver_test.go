package countdown

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(startedAt time.Time, durationMinutes int) *model.TestSession {
	return &model.TestSession{
		ID:              uuid.New(),
		AssessmentID:    uuid.New(),
		StudentID:       1,
		StartedAt:       startedAt,
		DurationMinutes: durationMinutes,
	}
}

// fakeClock steps forward a fixed amount on every read, so the driver's
// ticks walk through the window deterministically.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func TestDriverExpiresOnce(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sess := testSession(start, 1)

	// Each tick observes 20s more elapsed: 3 ticks to expiry.
	clock := &fakeClock{now: start, step: 20 * time.Second}

	d := NewDriver(sess)
	d.interval = time.Millisecond
	d.now = clock.Now

	var ticks []int
	var expires atomic.Int32
	d.OnTick = func(remaining int) { ticks = append(ticks, remaining) }
	d.OnExpire = func() { expires.Add(1) }

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not reach expiry")
	}

	assert.Equal(t, int32(1), expires.Load())
	assert.Equal(t, StateExpired, d.State())
	for _, r := range ticks {
		assert.Greater(t, r, 0, "tick after expiry")
	}

	// Expiry consumed the one-shot claim: a late manual submit is refused
	// and the state stays where expiry left it.
	assert.False(t, d.ClaimSubmit())
	assert.Equal(t, StateExpired, d.State())

	d.MarkTerminal()
	assert.Equal(t, StateTerminal, d.State())
}

func TestDriverAlreadyExpiredSkipsRunning(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	d := NewDriver(testSession(start, 30))

	var expired bool
	d.OnExpire = func() { expired = true }

	d.Run(context.Background())

	assert.True(t, expired)
	assert.Equal(t, StateExpired, d.State())
}

func TestDriverManualSubmitBeatsExpiry(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	d := NewDriver(testSession(start, 30))

	var expires atomic.Int32
	d.OnExpire = func() { expires.Add(1) }

	require.True(t, d.ClaimSubmit())

	// Expiry arriving after the manual claim must be a no-op.
	d.Run(context.Background())

	assert.Equal(t, int32(0), expires.Load())
	assert.Equal(t, StateSubmitting, d.State())

	d.MarkTerminal()
	assert.Equal(t, StateTerminal, d.State())
}

func TestDriverClaimSubmitExactlyOnce(t *testing.T) {
	d := NewDriver(testSession(time.Now(), 30))

	const racers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.ClaimSubmit() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestDriverCancellation(t *testing.T) {
	sess := testSession(time.Now(), 30)
	d := NewDriver(sess)
	d.interval = time.Millisecond

	var expires atomic.Int32
	d.OnExpire = func() { expires.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("driver did not stop on cancellation")
	}

	// The view went away mid-attempt: no submission side effects.
	assert.Equal(t, int32(0), expires.Load())
}
