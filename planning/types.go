/*
types.go - Roster entities consumed by the calendar engine

PURPOSE:
  Value snapshots of the records the engine reads: rotations, sites,
  assignments, medical leaves and absences. The engine never mutates
  them; persistence belongs to store/sqlite.

IDENTIFIERS:
  Every entity has its own int64 ID type. Maps are keyed by these types
  only, so a person can never be looked up by a stringified key.

SEE ALSO:
  - rotation.go: RotationCycle built from a RotationSpec
  - window.go: AssignmentWindow built from an Assignment
*/
package planning

import (
	"fmt"

	"github.com/GDiazF/calendario/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	PersonID     int64
	SiteID       int64
	RotationID   int64
	AssignmentID int64
	LeaveID      int64
	AbsenceID    int64
)

// =============================================================================
// PERSON
// =============================================================================

// Person carries display fields only; the engine uses the ID.
type Person struct {
	ID     PersonID
	RUT    string
	Name   string
	Email  string
	Active bool
}

// =============================================================================
// ROTATION SPEC
// =============================================================================

// RotationSpec is a named work/rest pattern such as "14x7".
type RotationSpec struct {
	ID       RotationID
	Name     string
	WorkDays int
	RestDays int
	Active   bool
}

func (r RotationSpec) CycleLength() int { return r.WorkDays + r.RestDays }

// Label is the display name, falling back to "NxM".
func (r RotationSpec) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%dx%d", r.WorkDays, r.RestDays)
}

// Cycle builds the RotationCycle for this spec.
func (r RotationSpec) Cycle() (RotationCycle, error) {
	return NewRotationCycle(r.WorkDays, r.RestDays)
}

// =============================================================================
// SITE
// =============================================================================

// Site is a work location ("faena") with a validity window.
type Site struct {
	ID              SiteID
	Name            string
	Location        string
	StartDate       generic.Date
	EndDate         *generic.Date
	DefaultRotation *RotationSpec
	Active          bool
}

// Validate checks that the end date, when set, is strictly after the start.
func (s Site) Validate() error {
	if s.EndDate != nil && !s.EndDate.After(s.StartDate) {
		return fmt.Errorf("%w: site %q ends %s, not after start %s",
			generic.ErrInvalidPeriod, s.Name, s.EndDate, s.StartDate)
	}
	return nil
}

// DurationDays counts the site window inclusively; 0 when open-ended.
func (s Site) DurationDays() int {
	if s.EndDate == nil {
		return 0
	}
	return generic.DaysBetween(s.StartDate, *s.EndDate) + 1
}

// ActiveOn reports whether today falls inside the site window.
func (s Site) ActiveOn(today generic.Date) bool {
	if today.Before(s.StartDate) {
		return false
	}
	return s.EndDate == nil || today.BeforeOrEqual(*s.EndDate)
}

// =============================================================================
// ASSIGNMENT
// =============================================================================

// Assignment places a person at a site from StartDate on. Site is a
// snapshot so the engine never needs a lookup.
type Assignment struct {
	ID               AssignmentID
	PersonID         PersonID
	Site             Site
	StartDate        generic.Date
	RotationOverride *RotationSpec
	Active           bool
	Notes            string
}

// =============================================================================
// MEDICAL LEAVE
// =============================================================================

type MedicalLeave struct {
	ID           LeaveID
	PersonID     PersonID
	Type         string
	Folio        string
	IssueDate    generic.Date
	DurationDays int
	Notes        string
}

// EndDate is IssueDate + DurationDays - 1.
func (l MedicalLeave) EndDate() generic.Date {
	return l.IssueDate.AddDays(l.DurationDays - 1)
}

func (l MedicalLeave) Period() generic.Period {
	return generic.Period{Start: l.IssueDate, End: l.EndDate()}
}

// Validate rejects leaves shorter than one day.
func (l MedicalLeave) Validate() error {
	if l.DurationDays < 1 {
		return fmt.Errorf("%w: medical leave of %d days", generic.ErrInvalidPeriod, l.DurationDays)
	}
	return nil
}

// =============================================================================
// ABSENCE
// =============================================================================

// Absence is a categorised interval. Type is free text ("Vacaciones",
// "Permiso administrativo", ...) classified by ClassifyAbsence.
type Absence struct {
	ID        AbsenceID
	PersonID  PersonID
	Type      string
	StartDate generic.Date
	EndDate   generic.Date
	Notes     string
}

func (a Absence) Period() generic.Period {
	return generic.Period{Start: a.StartDate, End: a.EndDate}
}

func (a Absence) Validate() error {
	if !a.Period().Valid() {
		return fmt.Errorf("%w: absence %s", generic.ErrInvalidPeriod, a.Period())
	}
	return nil
}
