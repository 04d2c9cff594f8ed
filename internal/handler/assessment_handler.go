package handler

import (
	"errors"
	"net/http"

	"github.com/eduverge/eduverge-backend/internal/middleware"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/repository"
	"github.com/eduverge/eduverge-backend/internal/response"
	"github.com/eduverge/eduverge-backend/internal/service"
	"github.com/eduverge/eduverge-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AssessmentHandler handles faculty-facing assessment management endpoints.
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessmentService *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

// ListMine godoc
// GET /api/v1/faculty/assessments
func (h *AssessmentHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessments, err := h.assessmentService.ListByAuthor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": assessments})
}

// Create godoc
// POST /api/v1/faculty/assessments
func (h *AssessmentHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assessment := &model.Assessment{
		Title:           req.Title,
		Subject:         req.Subject,
		AuthorID:        claims.UserID,
		ScheduledStart:  req.ScheduledStart,
		ScheduledEnd:    req.ScheduledEnd,
		DurationMinutes: req.DurationMinutes,
	}
	if err := h.assessmentService.Create(c.Request.Context(), assessment); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, assessment)
}

// ReplaceQuestions godoc
// PUT /api/v1/faculty/assessments/:assessment_id/questions
// Replaces the full question set. Only allowed while the assessment is DRAFT.
func (h *AssessmentHandler) ReplaceQuestions(c *gin.Context) {
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

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = model.Question{
			AssessmentID:  assessmentID,
			QuestionText:  q.QuestionText,
			QuestionType:  model.QuestionType(q.QuestionType),
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Marks:         q.Marks,
			OrderNum:      q.OrderNum,
		}
	}

	err = h.assessmentService.ReplaceQuestions(c.Request.Context(), assessmentID, claims.UserID, questions)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAssessmentAuthor):
			response.Fail(c, http.StatusForbidden, response.ErrNotAuthor)
		case errors.Is(err, service.ErrAssessmentNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotDraft)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": len(questions)})
}

// Publish godoc
// POST /api/v1/faculty/assessments/:assessment_id/publish
// Warms the Redis payload and flips the assessment to PUBLISHED.
func (h *AssessmentHandler) Publish(c *gin.Context) {
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

	err = h.assessmentService.Publish(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAssessmentAuthor):
			response.Fail(c, http.StatusForbidden, response.ErrNotAuthor)
		case errors.Is(err, service.ErrAssessmentNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotDraft)
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "published"})
}

// GetOne godoc
// GET /api/v1/faculty/assessments/:assessment_id
func (h *AssessmentHandler) GetOne(c *gin.Context) {
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

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if assessment.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotAuthor)
		return
	}

	response.Success(c, http.StatusOK, assessment)
}
