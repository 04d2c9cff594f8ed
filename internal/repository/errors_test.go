package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, classify(nil))
}

func TestClassifyNoRows(t *testing.T) {
	err := classify(fmt.Errorf("query session: %w", pgx.ErrNoRows))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClassifyUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           uniqueViolationCode,
		ConstraintName: "uq_test_sessions_active",
	}
	err := classify(fmt.Errorf("insert session: %w", pgErr))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClassifyOtherPgErrorPassesThrough(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503"} // foreign key violation
	err := classify(pgErr)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	var got *pgconn.PgError
	assert.True(t, errors.As(err, &got))
}

func TestClassifyUnknownErrorPassesThrough(t *testing.T) {
	boom := errors.New("connection reset")
	assert.ErrorIs(t, classify(boom), boom)
}
