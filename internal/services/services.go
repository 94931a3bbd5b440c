// Package services holds the entity operations the back office performs on
// users, catalog services and bookings. Every successful mutation is handed
// to the audit recorder together with the acting user; audit failures never
// fail the mutation.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/servicehub/backoffice/internal/audit"
	"github.com/servicehub/backoffice/internal/besteffort"
	"github.com/servicehub/backoffice/internal/db/repositories"
)

// Business errors. Handlers map them onto HTTP statuses.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// Auditor records completed mutations
type Auditor interface {
	Record(ctx context.Context, m audit.Mutation) besteffort.Outcome
}

const (
	tableUsers    = "users"
	tableServices = "services"
	tableBookings = "bookings"

	defaultPageSize = 20
	maxPageSize     = 100
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeError maps unique violations onto ErrConflict and wraps everything else
func storeError(op string, err error) error {
	if repositories.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// validID reports whether id can name a row. Malformed ids are treated as
// missing rows rather than store errors.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NormalizePage clamps pagination parameters
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
