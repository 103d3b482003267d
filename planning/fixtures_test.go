package planning_test

import (
	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func day(s string) generic.Date {
	return generic.MustParseDate(s)
}

func rotation(id planning.RotationID, work, rest int) *planning.RotationSpec {
	return &planning.RotationSpec{ID: id, WorkDays: work, RestDays: rest, Active: true}
}

// site builds a site; an empty end means open-ended.
func site(id planning.SiteID, name, start, end string, def *planning.RotationSpec) planning.Site {
	s := planning.Site{
		ID:              id,
		Name:            name,
		StartDate:       day(start),
		DefaultRotation: def,
		Active:          true,
	}
	if end != "" {
		s.EndDate = day(end).Ptr()
	}
	return s
}

func assignment(id planning.AssignmentID, person planning.PersonID, s planning.Site, start string) planning.Assignment {
	return planning.Assignment{
		ID:        id,
		PersonID:  person,
		Site:      s,
		StartDate: day(start),
		Active:    true,
	}
}

// sevenBySevenJanuary is a 7x7 rotation at a site running through January 2025.
func sevenBySevenJanuary() planning.Assignment {
	s := site(10, "Mina Norte", "2025-01-01", "2025-01-31", rotation(1, 7, 7))
	return assignment(100, 1, s, "2025-01-01")
}
