package planning

import (
	"errors"
	"fmt"
	"time"

	"github.com/GDiazF/calendario/generic"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidCycle is returned when a rotation has no work days or a
	// zero-length cycle.
	ErrInvalidCycle = errors.New("invalid rotation cycle")

	// ErrOutsideSiteWindow is returned when an assignment starts before the
	// site opens or after it closes.
	ErrOutsideSiteWindow = errors.New("assignment start outside site window")

	// ErrRotationExceedsSiteWindow is returned when not even one full
	// rotation cycle fits between the assignment start and the site end.
	ErrRotationExceedsSiteWindow = errors.New("rotation exceeds site window")

	// ErrInvalidRequest is returned by ComputeMonth for a malformed month.
	ErrInvalidRequest = errors.New("invalid calendar request")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the conflicting values for user messages
// =============================================================================

type InvalidCycleError struct {
	WorkDays int
	RestDays int
}

func (e *InvalidCycleError) Error() string {
	return fmt.Sprintf("invalid rotation cycle: %d work days, %d rest days", e.WorkDays, e.RestDays)
}

func (e *InvalidCycleError) Unwrap() error { return ErrInvalidCycle }

// OutsideSiteWindowError carries the site window the start fell outside of.
type OutsideSiteWindowError struct {
	Start     generic.Date
	SiteStart generic.Date
	SiteEnd   *generic.Date
}

func (e *OutsideSiteWindowError) Error() string {
	if e.Start.Before(e.SiteStart) {
		return fmt.Sprintf("assignment start %s is before site start %s", e.Start, e.SiteStart)
	}
	return fmt.Sprintf("assignment start %s is after site end %s", e.Start, e.SiteEnd)
}

func (e *OutsideSiteWindowError) Unwrap() error { return ErrOutsideSiteWindow }

// RotationExceedsSiteWindowError reports the end date one full cycle would
// need against the site's end date.
type RotationExceedsSiteWindowError struct {
	Start       generic.Date
	RequiredEnd generic.Date
	SiteEnd     generic.Date
	CycleLength int
}

func (e *RotationExceedsSiteWindowError) Error() string {
	return fmt.Sprintf("a %d-day rotation starting %s needs until %s but the site ends %s",
		e.CycleLength, e.Start, e.RequiredEnd, e.SiteEnd)
}

func (e *RotationExceedsSiteWindowError) Unwrap() error { return ErrRotationExceedsSiteWindow }

type InvalidRequestError struct {
	Year  int
	Month time.Month
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid calendar request: year %d month %d", e.Year, int(e.Month))
}

func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection returns true for validation-path business errors that should
// be shown to the user verbatim.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOutsideSiteWindow) ||
		errors.Is(err, ErrRotationExceedsSiteWindow)
}

// IsClientError extends generic.IsClientError with roster errors.
func IsClientError(err error) bool {
	return IsRejection(err) ||
		errors.Is(err, ErrInvalidCycle) ||
		errors.Is(err, ErrInvalidRequest) ||
		generic.IsClientError(err)
}
