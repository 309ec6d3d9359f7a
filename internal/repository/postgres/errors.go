package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"neurostudy/internal/domain"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// notFound builds the error returned when a row is missing for its owner.
func notFound(resource, id string) error {
	return fmt.Errorf("%s %s: %w", resource, id, domain.ErrNotFound)
}

// mapInsertError turns a unique violation into a ConflictError.
func mapInsertError(err error, resource, id string) error {
	if IsPgDuplicateError(err) {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%s %s already exists", resource, id),
			ResourceType: resource,
			ResourceID:   id,
		}
	}
	return fmt.Errorf("create %s: %w", resource, err)
}
