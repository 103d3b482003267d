/*
resolver.go - Validation of prospective assignments

PURPOSE:
  The write path asks the resolver before persisting a new or edited
  assignment. The resolver never persists anything; it either returns the
  accepted window or a typed rejection carrying the conflicting dates.

RULES (in order):
  1. Start must lie within [site start, site end].
  2. With a rotation and a site end, at least one complete cycle must fit
     between start and site end. Otherwise the assignment would never
     reach a full work block (see window.go) and is rejected. Zero complete
     cycles is the only rejecting case: the end of the complete cycles never
     passes the site end, so it needs no separate check against it.

  Edits are validated exactly like creations.

SUPERSESSION:
  At most one active assignment per (person, site). Supersedes tells the
  caller which existing rows to deactivate, and which row to update in
  place when one already exists with the same start date.

SEE ALSO:
  - window.go: Complete-cycle arithmetic
  - api/handlers.go: CreateAssignment applies the result in a transaction
*/
package planning

import (
	"github.com/GDiazF/calendario/generic"
)

// AcceptedWindow is the outcome of a successful validation.
type AcceptedWindow struct {
	Assignment     Assignment
	Rotation       *RotationSpec
	BoundedEnd     *generic.Date // nil: unbounded
	CompleteCycles int
	WorkDaysTotal  int
}

// AssignmentResolver validates assignments. It is stateless.
type AssignmentResolver struct{}

func NewAssignmentResolver() *AssignmentResolver {
	return &AssignmentResolver{}
}

// Validate returns the accepted window, or an *OutsideSiteWindowError,
// *RotationExceedsSiteWindowError or *InvalidCycleError.
func (r *AssignmentResolver) Validate(candidate Assignment) (*AcceptedWindow, error) {
	site := candidate.Site
	start := candidate.StartDate

	if start.Before(site.StartDate) || (site.EndDate != nil && start.After(*site.EndDate)) {
		return nil, &OutsideSiteWindowError{Start: start, SiteStart: site.StartDate, SiteEnd: site.EndDate}
	}

	w, err := NewAssignmentWindow(candidate)
	if err != nil {
		return nil, err
	}

	accepted := &AcceptedWindow{Assignment: candidate, Rotation: w.Rotation}

	if complete, ok := w.CompleteCycles(); ok {
		cycle, _ := w.Cycle()
		if complete == 0 {
			return nil, &RotationExceedsSiteWindowError{
				Start:       start,
				RequiredEnd: start.AddDays(cycle.Length() - 1),
				SiteEnd:     *site.EndDate,
				CycleLength: cycle.Length(),
			}
		}
		accepted.CompleteCycles = complete
		accepted.WorkDaysTotal = complete * cycle.WorkDays()
	}

	if end, ok := w.BoundedEnd(); ok {
		accepted.BoundedEnd = end.Ptr()
		if w.Rotation == nil {
			accepted.WorkDaysTotal = w.DurationDays(end)
		}
	}
	return accepted, nil
}

// Supersession is what the write path must do to existing assignments
// before storing a candidate.
type Supersession struct {
	// UpdateInPlace is the existing assignment with the same person, site
	// and start date; the candidate replaces its fields.
	UpdateInPlace *Assignment

	// Deactivate lists the other active assignments to the same site.
	Deactivate []AssignmentID
}

// Supersedes compares candidate to the person's existing assignments.
func (r *AssignmentResolver) Supersedes(candidate Assignment, existing []Assignment) Supersession {
	var s Supersession
	for i := range existing {
		e := existing[i]
		if e.PersonID != candidate.PersonID || e.Site.ID != candidate.Site.ID || e.ID == candidate.ID {
			continue
		}
		if e.StartDate.Equal(candidate.StartDate) && s.UpdateInPlace == nil {
			s.UpdateInPlace = &e
			continue
		}
		if e.Active {
			s.Deactivate = append(s.Deactivate, e.ID)
		}
	}
	return s
}
