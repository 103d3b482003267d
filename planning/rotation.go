/*
rotation.go - Work/rest cycle arithmetic

PURPOSE:
  A rotation repeats WorkDays on followed by RestDays off, anchored at the
  assignment's start date. Day 0 of every cycle is a work day.

  Example 7x7 from 2025-01-01:
    Jan 1-7   work  (positions 0-6)
    Jan 8-14  rest  (positions 7-13)
    Jan 15    work  (next cycle)

SEE ALSO:
  - window.go: Bounds a cycle by the site window
*/
package planning

import (
	"github.com/GDiazF/calendario/generic"
)

// DayKind is the base classification of a day inside an assignment.
type DayKind int

const (
	Work DayKind = iota
	Rest
)

func (k DayKind) String() string {
	if k == Work {
		return "work"
	}
	return "rest"
}

// RotationCycle is a validated work/rest pattern.
type RotationCycle struct {
	workDays int
	restDays int
}

// NewRotationCycle rejects cycles without work days, with negative rest,
// or with zero length.
func NewRotationCycle(workDays, restDays int) (RotationCycle, error) {
	if workDays <= 0 || restDays < 0 || workDays+restDays <= 0 {
		return RotationCycle{}, &InvalidCycleError{WorkDays: workDays, RestDays: restDays}
	}
	return RotationCycle{workDays: workDays, restDays: restDays}, nil
}

func (c RotationCycle) WorkDays() int { return c.workDays }
func (c RotationCycle) RestDays() int { return c.restDays }
func (c RotationCycle) Length() int   { return c.workDays + c.restDays }

// PhaseOf returns the cycle index and the position inside that cycle of d.
// Dates before start use floor division, so the pattern extends backwards.
func (c RotationCycle) PhaseOf(start, d generic.Date) (cycle, position int) {
	elapsed := generic.DaysBetween(start, d)
	n := c.Length()
	cycle, position = elapsed/n, elapsed%n
	if position < 0 {
		cycle--
		position += n
	}
	return cycle, position
}

// Classify returns Work when d falls in the first WorkDays of its cycle.
// Callers only ask about dates on or after start.
func (c RotationCycle) Classify(start, d generic.Date) DayKind {
	if _, pos := c.PhaseOf(start, d); pos < c.workDays {
		return Work
	}
	return Rest
}

// NextTransition returns the first date after d whose classification
// differs from d's. Before start it returns start. ok is false for cycles
// without rest days, which never change.
func (c RotationCycle) NextTransition(start, d generic.Date) (next generic.Date, ok bool) {
	if d.Before(start) {
		return start, true
	}
	if c.restDays == 0 {
		return generic.Date{}, false
	}

	cycle, pos := c.PhaseOf(start, d)
	if pos < c.workDays {
		return start.AddDays(cycle*c.Length() + c.workDays), true
	}
	return start.AddDays((cycle + 1) * c.Length()), true
}
