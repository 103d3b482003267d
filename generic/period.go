package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive day interval
// =============================================================================

// Period is the closed interval [Start, End]. Assignments, leaves, absences
// and calendar months are all expressed as periods.
//
// Examples:
//   - January 2025: Jan 1 - Jan 31
//   - A 5-day medical leave issued Mar 3: Mar 3 - Mar 7
type Period struct {
	Start Date
	End   Date
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end Date) (Period, error) {
	p := Period{Start: start, End: end}
	if !p.Valid() {
		return Period{}, fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return p, nil
}

// MonthPeriod returns the period covering a calendar month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// Valid reports whether End is on or after Start.
func (p Period) Valid() bool {
	return p.End.AfterOrEqual(p.Start)
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Len is the number of days in the period; 0 for an empty period.
func (p Period) Len() int {
	if !p.Valid() {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period in ascending order.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.Len())
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Valid() && other.Valid() &&
		p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// Intersect clips p to other. ok is false when they do not overlap.
func (p Period) Intersect(other Period) (Period, bool) {
	if !p.Overlaps(other) {
		return Period{}, false
	}
	return Period{Start: MaxDate(p.Start, other.Start), End: MinDate(p.End, other.End)}, true
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
