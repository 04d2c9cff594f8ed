package repository

import (
	"context"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FacultyRepository handles faculty data access.
type FacultyRepository struct {
	pool *pgxpool.Pool
}

// NewFacultyRepository creates a new FacultyRepository.
func NewFacultyRepository(pool *pgxpool.Pool) *FacultyRepository {
	return &FacultyRepository{pool: pool}
}

// GetByEmail retrieves a faculty member by their unique email.
func (r *FacultyRepository) GetByEmail(ctx context.Context, email string) (*model.Faculty, error) {
	f := &model.Faculty{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, subject, password_hash, created_at, updated_at
		 FROM faculty WHERE email = $1`, email,
	).Scan(&f.ID, &f.Email, &f.Name, &f.Subject, &f.PasswordHash, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return f, nil
}

// GetByID retrieves a faculty member by ID.
func (r *FacultyRepository) GetByID(ctx context.Context, id int) (*model.Faculty, error) {
	f := &model.Faculty{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, subject, password_hash, created_at, updated_at
		 FROM faculty WHERE id = $1`, id,
	).Scan(&f.ID, &f.Email, &f.Name, &f.Subject, &f.PasswordHash, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return f, nil
}

// Create inserts a new faculty member. A duplicate email surfaces as ErrConflict.
func (r *FacultyRepository) Create(ctx context.Context, f *model.Faculty) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO faculty (email, name, subject, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		f.Email, f.Name, f.Subject, f.PasswordHash,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	return classify(err)
}
