package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eduverge/eduverge-backend/internal/config"
	"github.com/eduverge/eduverge-backend/internal/middleware"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/service"
	ws "github.com/eduverge/eduverge-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsStubSessions struct {
	session *model.TestSession

	mu      sync.Mutex
	claimed bool
}

func (s *wsStubSessions) FindActive(ctx context.Context, assessmentID uuid.UUID, studentID int) (*model.TestSession, error) {
	return s.session, nil
}

func (s *wsStubSessions) Create(ctx context.Context, sess *model.TestSession) error { return nil }

func (s *wsStubSessions) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
	return s.session, nil
}

func (s *wsStubSessions) CompleteIfActive(ctx context.Context, id uuid.UUID, submittedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		return false, nil
	}
	s.claimed = true
	return true, nil
}

func (s *wsStubSessions) ListByStudent(ctx context.Context, studentID int) ([]model.TestSession, error) {
	return nil, nil
}

type wsStubAssessments struct{}

func (s *wsStubAssessments) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	return nil, errors.New("not used")
}

func (s *wsStubAssessments) ListPublished(ctx context.Context) ([]model.Assessment, error) {
	return nil, nil
}

type wsStubScores struct{}

func (s *wsStubScores) ScoreBySession(ctx context.Context, sessionID uuid.UUID) (*float64, error) {
	return nil, nil
}

type wsStubSubmissions struct{}

func (s *wsStubSubmissions) Create(ctx context.Context, sub *model.Submission) error { return nil }

func (s *wsStubSubmissions) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	return nil, nil
}

type wsStubQuestions struct{}

func (s *wsStubQuestions) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	return nil, nil
}

func newAttemptStreamServer(t *testing.T, session *model.TestSession) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := &wsStubSessions{session: session}
	cfg := &config.Config{SessionCreateAttempts: 3, SessionRetryBase: time.Millisecond}
	sessionSvc := service.NewSessionService(sessions, &wsStubAssessments{}, &wsStubScores{}, nil, cfg, zerolog.Nop())
	submissionSvc := service.NewSubmissionService(sessions, &wsStubSubmissions{}, &wsStubQuestions{}, nil, zerolog.Nop())

	h := NewWSHandler(sessionSvc, submissionSvc, zerolog.Nop(), nil)

	r := gin.New()
	r.GET("/ws/v1/student/assessments/:assessment_id/stream",
		func(c *gin.Context) {
			c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: session.StudentID})
		},
		h.AttemptStream,
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// An attempt whose window already closed must be auto-submitted and the
// connection torn down without waiting out the read deadline.
func TestAttemptStreamExpiryTearsDownPromptly(t *testing.T) {
	session := &model.TestSession{
		ID:              uuid.New(),
		AssessmentID:    uuid.New(),
		StudentID:       4,
		StartedAt:       time.Now().Add(-time.Hour),
		DurationMinutes: 30,
	}
	srv := newAttemptStreamServer(t, session)

	url := strings.Replace(srv.URL, "http", "ws", 1) +
		"/ws/v1/student/assessments/" + session.AssessmentID.String() + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var events []string
	var auto bool
	var readErr error
	for {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		var evt struct {
			Event string `json:"event"`
			Auto  bool   `json:"auto"`
		}
		require.NoError(t, json.Unmarshal(raw, &evt))
		events = append(events, evt.Event)
		if evt.Event == string(ws.EventGraded) {
			auto = evt.Auto
		}
	}

	// The server closed the connection; a deadline error here would mean
	// the handler left the socket open after expiry.
	assert.False(t, errors.Is(readErr, os.ErrDeadlineExceeded), "connection stayed open: %v", readErr)
	assert.Contains(t, events, string(ws.EventExpired))
	assert.Contains(t, events, string(ws.EventGraded))
	assert.True(t, auto)
}
