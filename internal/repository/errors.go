package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared by all repositories. Callers classify store
// failures with errors.Is rather than inspecting driver types.
var (
	// ErrNotFound maps pgx.ErrNoRows.
	ErrNotFound = errors.New("record not found")

	// ErrConflict maps a unique-constraint violation (SQLSTATE 23505). For
	// test sessions this is the store-side signal that a concurrent writer
	// inserted the active row first.
	ErrConflict = errors.New("unique constraint violation")
)

const uniqueViolationCode = "23505"

// classify translates driver-level errors into repository sentinels.
// Unknown errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return ErrConflict
	}
	return err
}
