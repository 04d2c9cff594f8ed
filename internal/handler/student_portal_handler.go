package handler

import (
	"errors"
	"net/http"

	"github.com/eduverge/eduverge-backend/internal/middleware"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/response"
	"github.com/eduverge/eduverge-backend/internal/service"
	"github.com/eduverge/eduverge-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StudentPortalHandler handles student-facing endpoints (lobby, session
// resolution, attempt state, submission).
type StudentPortalHandler struct {
	sessionService    *service.SessionService
	assessmentService *service.AssessmentService
	submissionService *service.SubmissionService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.SessionService,
	assessmentService *service.AssessmentService,
	submissionService *service.SubmissionService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService:    sessionService,
		assessmentService: assessmentService,
		submissionService: submissionService,
	}
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Returns published assessments with the student's session status overlay.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.sessionService.Lobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": lobby})
}

// ResolveSession godoc
// POST /api/v1/student/assessments/:assessment_id/session
// Returns the student's single authoritative session for the assessment,
// creating it if absent. Safe to call from multiple tabs: every caller
// receives the same session.
func (h *StudentPortalHandler) ResolveSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.Resolve(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		var creationErr *service.SessionCreationError
		switch {
		case errors.Is(err, service.ErrAssessmentNotAvailable):
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotAvailable)
		case errors.As(err, &creationErr):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrSessionCreationFailed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, session)
}

// GetState godoc
// GET /api/v1/student/assessments/:assessment_id/state
// Returns remaining seconds and buffered answers for the active session.
func (h *StudentPortalHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.sessionService.GetState(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetQuestions godoc
// GET /api/v1/student/assessments/:assessment_id/questions
// Returns the cached question payload (no correct answers). Requires an
// active session so nobody reads questions without starting the clock.
func (h *StudentPortalHandler) GetQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.sessionService.VerifyActive(c.Request.Context(), assessmentID, claims.UserID); err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrNoActiveSession)
		return
	}

	payload, err := h.assessmentService.GetPayload(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAssessmentNotAvailable)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// Autosave godoc
// POST /api/v1/student/assessments/:assessment_id/answers
// REST fallback for buffering a single answer (the WebSocket channel is the
// primary path).
func (h *StudentPortalHandler) Autosave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AutosaveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.BufferAnswer(c.Request.Context(), assessmentID, claims.UserID, req.QuestionID, req.Answer); err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			response.Fail(c, http.StatusForbidden, response.ErrNoActiveSession)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// Submit godoc
// POST /api/v1/student/assessments/:assessment_id/submit
// Manual submission. Exactly one finalization wins regardless of how many
// tabs or paths race here.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.VerifyActive(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	submission, err := h.submissionService.Finalize(c.Request.Context(), session.ID, req.Answers, false)
	if err != nil {
		var finalErr *service.FinalizationError
		switch {
		case errors.Is(err, service.ErrAlreadyFinalized):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		case errors.As(err, &finalErr):
			response.Fail(c, http.StatusInternalServerError, response.ErrFinalizationFailed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, submission)
}

// GetResult godoc
// GET /api/v1/student/sessions/:session_id/result
// Returns the graded submission of the student's own finalized session.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	submission, err := h.submissionService.ResultForStudent(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, submission)
}
