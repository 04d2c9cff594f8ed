package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/eduverge/eduverge-backend/internal/config"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNotAssessmentAuthor    = errors.New("not the author of this assessment")
	ErrNoQuestions            = errors.New("assessment has no questions, cannot publish")
	ErrAssessmentNotDraft     = errors.New("assessment status is not DRAFT")
	ErrAssessmentNotPublished = errors.New("assessment status is not PUBLISHED")
	ErrPayloadNotCached       = errors.New("assessment not published or payload not cached")
)

// AssessmentService handles assessment business logic and Redis caching.
type AssessmentService struct {
	assessmentRepo *repository.AssessmentRepository
	questionRepo   *repository.QuestionRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(
	assessmentRepo *repository.AssessmentRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "assessment_service").Logger(),
	}
}

// GetByID retrieves an assessment by its UUID.
func (s *AssessmentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	return s.assessmentRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves assessments created by one faculty member.
func (s *AssessmentService) ListByAuthor(ctx context.Context, authorID int) ([]model.Assessment, error) {
	assessments, err := s.assessmentRepo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if assessments == nil {
		assessments = []model.Assessment{}
	}
	return assessments, nil
}

// Create inserts a new assessment as DRAFT.
func (s *AssessmentService) Create(ctx context.Context, a *model.Assessment) error {
	a.Status = model.AssessmentStatusDraft
	return s.assessmentRepo.Create(ctx, a)
}

// ReplaceQuestions swaps the full question set of a draft assessment.
func (s *AssessmentService) ReplaceQuestions(ctx context.Context, assessmentID uuid.UUID, authorID int, questions []model.Question) error {
	existing, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrNotAssessmentAuthor
	}
	if existing.Status != model.AssessmentStatusDraft {
		return ErrAssessmentNotDraft
	}
	return s.questionRepo.ReplaceAll(ctx, assessmentID, questions)
}

// Publish changes the assessment status to PUBLISHED and caches the payload,
// duration and answer key in Redis. This populates the hot path students
// read during the attempt.
func (s *AssessmentService) Publish(ctx context.Context, assessmentID uuid.UUID, authorID int) error {
	assessment, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return fmt.Errorf("get assessment: %w", err)
	}

	if assessment.AuthorID != authorID {
		return ErrNotAssessmentAuthor
	}
	if assessment.Status != model.AssessmentStatusDraft {
		return ErrAssessmentNotDraft
	}

	if err := s.WarmCache(ctx, assessment); err != nil {
		return err
	}

	if err := s.assessmentRepo.UpdateStatus(ctx, assessmentID, model.AssessmentStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("assessment_id", assessmentID.String()).Msg("Assessment published")
	return nil
}

// WarmCache loads an assessment's payload, duration and answer key from
// PostgreSQL into Redis.
func (s *AssessmentService) WarmCache(ctx context.Context, assessment *model.Assessment) error {
	questions, err := s.questionRepo.ListByAssessment(ctx, assessment.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Student-facing payload strips the correct answers.
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		studentQuestions[i] = model.QuestionForStudent{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Options:      q.Options,
			Marks:        q.Marks,
			OrderNum:     q.OrderNum,
		}
	}

	payload := model.AssessmentPayload{
		AssessmentID: assessment.ID,
		Title:        assessment.Title,
		Subject:      assessment.Subject,
		Duration:     assessment.DurationMinutes,
		Questions:    studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		if q.QuestionType == model.QuestionTypeMultipleChoice {
			answerKey[q.ID.String()] = q.CorrectOption
		}
	}

	id := assessment.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AssessmentPayloadKey(id), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.AssessmentDurationKey(id), strconv.Itoa(assessment.DurationMinutes), 0)
	pipe.Del(ctx, config.CacheKey.AssessmentAnswerKey(id))
	if len(answerKey) > 0 {
		pipe.HSet(ctx, config.CacheKey.AssessmentAnswerKey(id), answerKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("assessment_id", id).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published assessments into Redis on startup.
// This prevents lazy-loading races under a thundering herd of students
// opening the same assessment.
func (s *AssessmentService) PrewarmAllCaches(ctx context.Context) error {
	assessments, err := s.assessmentRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published assessments: %w", err)
	}

	if len(assessments) == 0 {
		s.log.Info().Msg("No published assessments to prewarm")
		return nil
	}

	warmed := 0
	for i := range assessments {
		if err := s.WarmCache(ctx, &assessments[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("assessment_id", assessments[i].ID.String()).
				Msg("Failed to warm assessment, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(assessments)).
		Msg("Prewarming complete")
	return nil
}

// GetPayload retrieves the cached student payload from Redis.
func (s *AssessmentService) GetPayload(ctx context.Context, assessmentID uuid.UUID) (*model.AssessmentPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.AssessmentPayloadKey(assessmentID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPayloadNotCached
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.AssessmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}
