/*
errors.go - Centralized error types shared by every package

PURPOSE:
  Errors that are not specific to rostering: malformed dates and periods,
  missing records. Domain errors (rotation, site window, month request)
  live in planning/errors.go and follow the same conventions.

ERROR CATEGORIES:
  1. Input errors - Dates and periods that cannot be parsed or are inverted
  2. Store errors - Records that do not exist

USAGE:
  Callers branch with errors.Is and the helpers at the bottom:

    if generic.IsNotFound(err) {
        writeError(w, http.StatusNotFound, "Site not found", err)
    }

SEE ALSO:
  - planning/errors.go: Rotation and assignment rejections
  - store/sqlite/sqlite.go: Returns NotFoundError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntityNotFound is returned when a referenced record doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidDate is returned when a date string is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Entity string // e.g. "site", "rotation"
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEntityNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidDate)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
