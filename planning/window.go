/*
window.go - Validity window of one assignment

PURPOSE:
  Resolves which rotation applies to an assignment (its own override or the
  site default) and how far the assignment reaches.

BOUNDED END:
  With a rotation and a site end date, the assignment only covers as many
  work days as there are complete cycles inside [start, site end]:

    available = site_end - start + 1
    complete  = available / cycle_length
    end       = start + complete * work_days - 1   (never past site_end)

  When no complete cycle fits, end falls before start and the assignment
  contributes no days at all.

  Without a rotation the person is on site every day until the site end,
  or for NoRotationHorizonDays past the start when the site is open-ended.
  With a rotation and no site end the window is unbounded.

SEE ALSO:
  - rotation.go: Day classification inside the window
  - resolver.go: Uses the same arithmetic to reject assignments
  - calendar.go: Iterates the window's days per month
*/
package planning

import (
	"github.com/shopspring/decimal"

	"github.com/GDiazF/calendario/generic"
)

// NoRotationHorizonDays bounds rotation-less assignments on open-ended sites.
const NoRotationHorizonDays = 30

// EffectiveRotation returns the override, else the site default, else nil.
func EffectiveRotation(a Assignment) *RotationSpec {
	if a.RotationOverride != nil {
		return a.RotationOverride
	}
	return a.Site.DefaultRotation
}

// AssignmentWindow is an assignment with its rotation resolved.
type AssignmentWindow struct {
	Assignment Assignment
	Rotation   *RotationSpec // nil: continuously on work

	cycle RotationCycle
}

// NewAssignmentWindow fails with ErrInvalidCycle when the effective rotation
// is malformed.
func NewAssignmentWindow(a Assignment) (*AssignmentWindow, error) {
	w := &AssignmentWindow{Assignment: a, Rotation: EffectiveRotation(a)}
	if w.Rotation != nil {
		cycle, err := w.Rotation.Cycle()
		if err != nil {
			return nil, err
		}
		w.cycle = cycle
	}
	return w, nil
}

func (w *AssignmentWindow) Start() generic.Date { return w.Assignment.StartDate }

func (w *AssignmentWindow) siteEnd() *generic.Date { return w.Assignment.Site.EndDate }

// Cycle returns the rotation cycle; ok is false without a rotation.
func (w *AssignmentWindow) Cycle() (RotationCycle, bool) {
	return w.cycle, w.Rotation != nil
}

// CompleteCycles is the number of whole cycles between start and site end.
// ok is false when there is no rotation or no site end.
func (w *AssignmentWindow) CompleteCycles() (n int, ok bool) {
	end := w.siteEnd()
	if w.Rotation == nil || end == nil {
		return 0, false
	}
	available := generic.DaysBetween(w.Start(), *end) + 1
	if available <= 0 {
		return 0, true
	}
	return available / w.cycle.Length(), true
}

// BoundedEnd is the last day the assignment covers. ok is false when the
// window is unbounded (rotation, no site end).
func (w *AssignmentWindow) BoundedEnd() (end generic.Date, ok bool) {
	siteEnd := w.siteEnd()

	if w.Rotation == nil {
		if siteEnd != nil {
			return *siteEnd, true
		}
		return w.Start().AddDays(NoRotationHorizonDays), true
	}

	complete, ok := w.CompleteCycles()
	if !ok {
		return generic.Date{}, false
	}
	end = w.Start().AddDays(complete*w.cycle.WorkDays() - 1)
	return generic.MinDate(end, *siteEnd), true
}

// HasWorkDays is false when the bounded end falls before the start.
func (w *AssignmentWindow) HasWorkDays() bool {
	end, ok := w.BoundedEnd()
	return !ok || end.AfterOrEqual(w.Start())
}

// Clip intersects the window's days with p.
func (w *AssignmentWindow) Clip(p generic.Period) (generic.Period, bool) {
	span := generic.Period{Start: w.Start(), End: p.End}
	if end, ok := w.BoundedEnd(); ok {
		span.End = generic.MinDate(span.End, end)
	}
	if siteEnd := w.siteEnd(); siteEnd != nil {
		span.End = generic.MinDate(span.End, *siteEnd)
	}
	return span.Intersect(p)
}

// Classify returns the day kind of d, or ok=false when d is outside the window.
func (w *AssignmentWindow) Classify(d generic.Date) (kind DayKind, ok bool) {
	if _, inside := w.Clip(generic.Period{Start: d, End: d}); !inside {
		return 0, false
	}
	if w.Rotation == nil {
		return Work, true
	}
	return w.cycle.Classify(w.Start(), d), true
}

// DurationDays counts start..bounded end inclusively, or start..today for
// an unbounded window.
func (w *AssignmentWindow) DurationDays(today generic.Date) int {
	end, ok := w.BoundedEnd()
	if !ok {
		end = today
	}
	if end.Before(w.Start()) {
		return 0
	}
	return generic.DaysBetween(w.Start(), end) + 1
}

// NextRotationChange is the next work/rest switch after today.
func (w *AssignmentWindow) NextRotationChange(today generic.Date) (generic.Date, bool) {
	if w.Rotation == nil {
		return generic.Date{}, false
	}
	return w.cycle.NextTransition(w.Start(), today)
}

// ActiveOn reports whether the assignment is flagged active and today lies
// between its start and bounded end.
func (w *AssignmentWindow) ActiveOn(today generic.Date) bool {
	if !w.Assignment.Active || today.Before(w.Start()) {
		return false
	}
	end, ok := w.BoundedEnd()
	return !ok || today.BeforeOrEqual(end)
}

// WorkShare is the fraction of each cycle spent on site; 1 without a rotation.
func (w *AssignmentWindow) WorkShare() decimal.Decimal {
	if w.Rotation == nil {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(w.cycle.WorkDays())).
		DivRound(decimal.NewFromInt(int64(w.cycle.Length())), 4)
}
