// errors.go defines the sentinel errors repositories use to classify mutation
// outcomes, so handlers can map them to HTTP statuses without string matching.
package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound means the targeted row does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the row exists but belongs to another user
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState means the row exists but is not in a state that
	// permits the operation (e.g. deciding an already-decided submission)
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict means a uniqueness constraint blocked the operation
	// (e.g. promoting a submission whose slug is already in the catalog)
	ErrConflict = errors.New("conflict")
)

// isUniqueViolation reports a Postgres unique constraint failure (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isForeignKeyViolation reports a Postgres foreign key failure (23503)
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
