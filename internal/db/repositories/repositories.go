// Package repositories implements the data access layer for the back office.
// Each repository encapsulates the SQL for one table. Lookups by key return
// (nil, nil) when the row does not exist so callers can tell "missing" from
// "failed" without inspecting driver errors.
package repositories

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err was raised by a unique constraint.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// notFound maps sql.ErrNoRows onto the (nil, nil) convention.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
