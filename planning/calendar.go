/*
calendar.go - Month calendar for a batch of persons

PURPOSE:
  Answers "what is each of these persons doing on each day of this month?"
  from fully materialised assignment, leave and absence snapshots.

ALGORITHM:
  1. Validate year/month (InvalidRequest before any work).
  2. Group active assignments, leaves and absences by person once.
  3. For each assignment, walk only the days where its window overlaps the
     month and record Work/Rest base states per day.
  4. For each day, merge base states, leaves and absences (overlay.go).

  Every requested person gets every day of the month, even without records.

CONCURRENCY:
  Persons are independent. ComputeMonthParallel shards them over worker
  goroutines sharing only read-only inputs and returns the same result as
  ComputeMonth.

SEE ALSO:
  - window.go: Window clipping and classification
  - overlay.go: Per-day merge
  - summary.go: Per-person month totals
*/
package planning

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/GDiazF/calendario/generic"
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// MonthRequest carries the month and every snapshot the computation reads.
// Records of persons not in PersonIDs are ignored.
type MonthRequest struct {
	PersonIDs   []PersonID
	Year        int
	Month       time.Month
	Assignments []Assignment
	Leaves      []MedicalLeave
	Absences    []Absence
}

// Period returns the month as a day interval.
func (r MonthRequest) Period() generic.Period {
	return generic.MonthPeriod(r.Year, r.Month)
}

func (r MonthRequest) validate() error {
	if r.Year <= 0 || r.Month < time.January || r.Month > time.December {
		return &InvalidRequestError{Year: r.Year, Month: r.Month}
	}
	return nil
}

// PersonMonth maps day of month (1-based) to that day's ordered entries.
type PersonMonth map[int][]StateEntry

// Days returns the day numbers in ascending order.
func (m PersonMonth) Days() []int {
	days := make([]int, 0, len(m))
	for d := range m {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// DayStateSet is the result of a month computation.
type DayStateSet map[PersonID]PersonMonth

// =============================================================================
// CALENDAR SERVICE
// =============================================================================

// CalendarService computes month calendars. It holds no mutable state and
// is safe for concurrent use.
type CalendarService struct {
	overlay OverlayEngine
	logger  *zap.Logger
}

func NewCalendarService(logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{logger: logger}
}

// personInputs is everything one person's month depends on.
type personInputs struct {
	windows  []*AssignmentWindow
	leaves   []MedicalLeave
	absences []Absence
}

// ComputeMonth builds the calendar for every person in req.PersonIDs.
func (s *CalendarService) ComputeMonth(req MonthRequest) (DayStateSet, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	month := req.Period()
	persons := uniquePersons(req.PersonIDs)
	inputs, err := groupInputs(req, persons, month)
	if err != nil {
		return nil, err
	}

	out := make(DayStateSet, len(persons))
	for _, id := range persons {
		out[id] = s.computePerson(month, inputs[id])
	}

	s.logger.Debug("computed month",
		zap.Int("year", req.Year),
		zap.Int("month", int(req.Month)),
		zap.Int("persons", len(persons)),
		zap.Int("assignments", len(req.Assignments)))
	return out, nil
}

// ComputeMonthParallel is ComputeMonth sharded over workers goroutines.
// Cancelling ctx stops handing out persons; no partial result is returned.
func (s *CalendarService) ComputeMonthParallel(ctx context.Context, req MonthRequest, workers int) (DayStateSet, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	month := req.Period()
	persons := uniquePersons(req.PersonIDs)
	inputs, err := groupInputs(req, persons, month)
	if err != nil {
		return nil, err
	}

	results := xsync.NewMap[PersonID, PersonMonth]()
	jobs := make(chan PersonID)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				results.Store(id, s.computePerson(month, inputs[id]))
			}
		}()
	}

feed:
	for _, id := range persons {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(DayStateSet, len(persons))
	results.Range(func(id PersonID, m PersonMonth) bool {
		out[id] = m
		return true
	})

	s.logger.Debug("computed month in parallel",
		zap.Int("year", req.Year),
		zap.Int("month", int(req.Month)),
		zap.Int("persons", len(persons)),
		zap.Int("workers", workers))
	return out, nil
}

func (s *CalendarService) computePerson(month generic.Period, in *personInputs) PersonMonth {
	if in == nil {
		in = &personInputs{}
	}
	days := month.Len()
	base := make([][]BaseState, days+1)

	for _, w := range in.windows {
		span, ok := w.Clip(month)
		if !ok {
			continue
		}
		detail := SiteDetail{
			AssignmentID:    w.Assignment.ID,
			SiteID:          w.Assignment.Site.ID,
			SiteName:        w.Assignment.Site.Name,
			AssignmentStart: w.Start(),
		}
		if w.Rotation != nil {
			detail.Rotation = w.Rotation.Label()
		}
		for _, d := range span.Days() {
			kind, _ := w.Classify(d)
			base[d.Day()] = append(base[d.Day()], BaseState{Kind: kind, Site: detail})
		}
	}

	out := make(PersonMonth, days)
	for day := 1; day <= days; day++ {
		date := month.Start.AddDays(day - 1)
		out[day] = s.overlay.DayStates(date, base[day], in.leaves, in.absences)
	}
	return out
}

// =============================================================================
// INPUT GROUPING
// =============================================================================

func uniquePersons(ids []PersonID) []PersonID {
	seen := make(map[PersonID]bool, len(ids))
	out := make([]PersonID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// groupInputs buckets records by person in a deterministic order: windows
// by (start, id), leaves by (issue, id), absences by (start, id).
func groupInputs(req MonthRequest, persons []PersonID, month generic.Period) (map[PersonID]*personInputs, error) {
	inputs := make(map[PersonID]*personInputs, len(persons))
	for _, id := range persons {
		inputs[id] = &personInputs{}
	}

	for _, a := range req.Assignments {
		in, ok := inputs[a.PersonID]
		if !ok || !a.Active || a.StartDate.After(month.End) {
			continue
		}
		w, err := NewAssignmentWindow(a)
		if err != nil {
			return nil, fmt.Errorf("assignment %d: %w", a.ID, err)
		}
		in.windows = append(in.windows, w)
	}

	for _, l := range req.Leaves {
		if in, ok := inputs[l.PersonID]; ok && l.Period().Overlaps(month) {
			in.leaves = append(in.leaves, l)
		}
	}

	for _, a := range req.Absences {
		if in, ok := inputs[a.PersonID]; ok && a.Period().Overlaps(month) {
			in.absences = append(in.absences, a)
		}
	}

	for _, in := range inputs {
		sort.SliceStable(in.windows, func(i, j int) bool {
			a, b := in.windows[i].Assignment, in.windows[j].Assignment
			if !a.StartDate.Equal(b.StartDate) {
				return a.StartDate.Before(b.StartDate)
			}
			return a.ID < b.ID
		})
		sort.SliceStable(in.leaves, func(i, j int) bool {
			a, b := in.leaves[i], in.leaves[j]
			if !a.IssueDate.Equal(b.IssueDate) {
				return a.IssueDate.Before(b.IssueDate)
			}
			return a.ID < b.ID
		})
		sort.SliceStable(in.absences, func(i, j int) bool {
			a, b := in.absences[i], in.absences[j]
			if !a.StartDate.Equal(b.StartDate) {
				return a.StartDate.Before(b.StartDate)
			}
			return a.ID < b.ID
		})
	}
	return inputs, nil
}
