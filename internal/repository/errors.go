package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when a uniqueness constraint would be violated.
var ErrDuplicate = errors.New("duplicate entry")

// ErrNotFound aliases sql.ErrNoRows so in-memory and SQL stores report
// missing rows identically.
var ErrNotFound = sql.ErrNoRows

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
