package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/eduverge/eduverge-backend/internal/countdown"
	"github.com/eduverge/eduverge-backend/internal/middleware"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/service"
	ws "github.com/eduverge/eduverge-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// wsConn serializes writes to one WebSocket connection. The tick goroutine
// and the read loop both write, and gorilla/websocket allows only one
// concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ws.WriteTyped(c.conn, v)
}

func (c *wsConn) writeError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws.WriteError(c.conn, msg)
}

// WSHandler streams the attempt channel: server-driven countdown ticks,
// answer autosave, and submission with instant objective grading.
type WSHandler struct {
	sessionService    *service.SessionService
	submissionService *service.SubmissionService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	sessionService *service.SessionService,
	submissionService *service.SubmissionService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		sessionService:    sessionService,
		submissionService: submissionService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/assessments/:assessment_id/stream
// Upgrades to WebSocket for the duration of the attempt. The server pushes
// a tick event once per second with the authoritative remaining time; when
// it reaches zero the server auto-submits the buffered answers and pushes
// expired and graded events. A manual submit over the same channel claims
// the submission instead.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment ID"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer rawConn.Close()
	conn := &wsConn{conn: rawConn}

	studentID := claims.UserID

	session, err := h.sessionService.VerifyActive(c.Request.Context(), assessmentID, studentID)
	if err != nil {
		conn.writeError("no active session for this assessment")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("session_id", session.ID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	// The driver outlives the request context on purpose: finalization
	// triggered by expiry must complete even if the client drops at the
	// same instant.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver := countdown.NewDriver(session)
	driver.OnTick = func(remaining int) {
		if err := conn.write(ws.TickEvent{Event: ws.EventTick, RemainingSeconds: remaining}); err != nil {
			cancel()
		}
	}
	driver.OnExpire = func() {
		h.autoSubmit(conn, wsLog, session)
		driver.MarkTerminal()
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		driver.Run(ctx)
	}()

	// Expiry cancels ctx from the tick goroutine while the read loop sits
	// blocked in a read. Close the connection so the view tears down right
	// away instead of waiting out the read deadline. All terminal events
	// are written before the cancel, so nothing is cut off.
	go func() {
		<-ctx.Done()
		rawConn.Close()
	}()

	h.readLoop(ctx, conn, wsLog, driver, session)

	cancel()
	<-done
}

func (h *WSHandler) readLoop(ctx context.Context, conn *wsConn, wsLog zerolog.Logger, driver *countdown.Driver, session *model.TestSession) {
	for {
		if ctx.Err() != nil {
			return
		}

		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn.conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, session, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, driver, session)
			return
		case ws.ActionPing:
			conn.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.writeError("unknown action: " + string(msg.Action))
		}
	}
}

// handleAutosave buffers a single answer in Redis.
func (h *WSHandler) handleAutosave(conn *wsConn, wsLog zerolog.Logger, session *model.TestSession, msg *ws.RequestPayload) {
	ctx := context.Background()

	if msg.QuestionID == "" || msg.Answer == "" {
		conn.writeError("question_id and answer are required")
		return
	}

	// SECURITY: Validate the question ID is a well-formed UUID to prevent
	// Redis key injection.
	if _, err := uuid.Parse(msg.QuestionID); err != nil {
		conn.writeError("invalid question_id format")
		return
	}

	err := h.sessionService.BufferAnswer(ctx, session.AssessmentID, session.StudentID, msg.QuestionID, msg.Answer)
	if err != nil {
		wsLog.Error().Err(err).Msg("Autosave error")
		conn.writeError("save failed")
		return
	}

	conn.write(ws.SavedEvent{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

// handleSubmit finalizes the attempt on an explicit submit action. The
// driver claim stops the tick timeline locally; the conditional UPDATE in
// the finalizer is still the cross-view arbiter.
func (h *WSHandler) handleSubmit(conn *wsConn, wsLog zerolog.Logger, driver *countdown.Driver, session *model.TestSession) {
	if !driver.ClaimSubmit() {
		conn.writeError("submission already in progress")
		return
	}

	sub, err := h.submissionService.FinalizeWithBuffered(context.Background(), session, false)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyFinalized) {
			conn.writeError("already submitted")
		} else {
			wsLog.Error().Err(err).Msg("Finalization error")
			conn.writeError("submission failed")
		}
		driver.MarkTerminal()
		return
	}
	driver.MarkTerminal()

	conn.write(ws.GradedEvent{
		Event:          ws.EventGraded,
		ObjectiveScore: sub.ObjectiveScore,
		TheoryPending:  sub.TheoryScore == nil,
		Auto:           false,
	})
}

// autoSubmit runs on the expiry path: finalize with whatever answers are
// buffered, then tell the client the window closed.
func (h *WSHandler) autoSubmit(conn *wsConn, wsLog zerolog.Logger, session *model.TestSession) {
	conn.write(ws.ExpiredEvent{Event: ws.EventExpired})

	sub, err := h.submissionService.FinalizeWithBuffered(context.Background(), session, true)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyFinalized) {
			// Another view or the sweeper got there first. Nothing lost.
			wsLog.Debug().Msg("Expiry race lost, session already finalized")
			return
		}
		wsLog.Error().Err(err).Msg("Auto-submit finalization error")
		conn.writeError("auto-submit failed")
		return
	}

	wsLog.Info().Float64("score", sub.ObjectiveScore).Msg("Session auto-submitted")

	conn.write(ws.GradedEvent{
		Event:          ws.EventGraded,
		ObjectiveScore: sub.ObjectiveScore,
		TheoryPending:  sub.TheoryScore == nil,
		Auto:           true,
	})
}
