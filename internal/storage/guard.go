package storage

import (
	"errors"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/validation"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// guard re-checks an entity right before it is written. Callers are expected
// to have validated already, so a failure here is an invariant violation.
func guard(e validation.Entity) error {
	if err := e.Validate(); err != nil {
		return apperrors.NewInvariantViolationError(err)
	}
	return nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
