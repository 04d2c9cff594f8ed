package service

import (
	"context"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/eduverge/eduverge-backend/internal/repository"
)

// FacultyService handles faculty account logic.
type FacultyService struct {
	facultyRepo *repository.FacultyRepository
}

// NewFacultyService creates a new FacultyService.
func NewFacultyService(facultyRepo *repository.FacultyRepository) *FacultyService {
	return &FacultyService{facultyRepo: facultyRepo}
}

// GetByID retrieves a faculty member by ID.
func (s *FacultyService) GetByID(ctx context.Context, id int) (*model.Faculty, error) {
	return s.facultyRepo.GetByID(ctx, id)
}

// GetByEmail retrieves a faculty member by email.
func (s *FacultyService) GetByEmail(ctx context.Context, email string) (*model.Faculty, error) {
	return s.facultyRepo.GetByEmail(ctx, email)
}

// Create inserts a new faculty account.
func (s *FacultyService) Create(ctx context.Context, f *model.Faculty) error {
	return s.facultyRepo.Create(ctx, f)
}
