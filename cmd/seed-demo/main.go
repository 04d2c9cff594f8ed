package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eduverge/eduverge-backend/internal/config"
	"github.com/eduverge/eduverge-backend/internal/database"
	"github.com/eduverge/eduverge-backend/internal/logger"
	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/repository"
	"github.com/eduverge/eduverge-backend/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo faculty member, a batch of students (password "student123")
// and one published assessment so a fresh environment is immediately
// usable.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	studentRepo := repository.NewStudentRepository(pool)
	facultyRepo := repository.NewFacultyRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	studentService := service.NewStudentService(studentRepo)
	facultyService := service.NewFacultyService(facultyRepo)
	assessmentService := service.NewAssessmentService(assessmentRepo, questionRepo, rdb, log)

	fmt.Println("=== Seeding Demo Data ===")

	hash, err := bcrypt.GenerateFromPassword([]byte("student123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	// Faculty
	faculty := &model.Faculty{
		Email:        "demo.faculty@eduverge.test",
		Name:         "Demo Faculty",
		PasswordHash: string(hash),
	}
	if err := facultyService.Create(ctx, faculty); err != nil {
		log.Fatal().Err(err).Msg("Failed to create faculty")
	}
	fmt.Printf("Created faculty ID %d\n", faculty.ID)

	// Students
	for i := 1; i <= 20; i++ {
		student := &model.Student{
			Email:        fmt.Sprintf("student%02d@eduverge.test", i),
			Name:         fmt.Sprintf("Demo Student %02d", i),
			PasswordHash: string(hash),
		}
		if err := studentService.Create(ctx, student); err != nil {
			log.Fatal().Err(err).Int("n", i).Msg("Failed to create student")
		}
	}
	fmt.Println("Created 20 students (password: student123)")

	// Assessment with a small mixed question set.
	assessment := &model.Assessment{
		Title:           "General Knowledge Demo",
		Subject:         "General Studies",
		AuthorID:        faculty.ID,
		DurationMinutes: 30,
	}
	if err := assessmentService.Create(ctx, assessment); err != nil {
		log.Fatal().Err(err).Msg("Failed to create assessment")
	}

	options := func(opts ...string) json.RawMessage {
		raw, _ := json.Marshal(opts)
		return raw
	}

	questions := []model.Question{
		{
			AssessmentID:  assessment.ID,
			QuestionText:  "Which planet is closest to the sun?",
			QuestionType:  model.QuestionTypeMultipleChoice,
			Options:       options("Venus", "Mercury", "Mars", "Earth"),
			CorrectOption: "B",
			Marks:         5,
			OrderNum:      1,
		},
		{
			AssessmentID:  assessment.ID,
			QuestionText:  "What is 12 x 12?",
			QuestionType:  model.QuestionTypeMultipleChoice,
			Options:       options("124", "144", "154", "164"),
			CorrectOption: "B",
			Marks:         5,
			OrderNum:      2,
		},
		{
			AssessmentID: assessment.ID,
			QuestionText: "Explain, in your own words, why the sky appears blue.",
			QuestionType: model.QuestionTypeTheory,
			Marks:        10,
			OrderNum:     3,
		},
	}
	if err := questionRepo.ReplaceAll(ctx, assessment.ID, questions); err != nil {
		log.Fatal().Err(err).Msg("Failed to create questions")
	}

	if err := assessmentService.Publish(ctx, assessment.ID, faculty.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish assessment")
	}

	fmt.Printf("Published assessment %s (%d min)\n", assessment.ID, assessment.DurationMinutes)
	fmt.Println("Done.")
}
