package planning_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDiazF/calendario/planning"
)

func TestSummarize_LeaveDuringRest(t *testing.T) {
	// GIVEN: A 7x7 January assignment with a 5-day leave
	req := january(1, 2)
	req.Assignments = []planning.Assignment{sevenBySevenJanuary()}
	req.Leaves = []planning.MedicalLeave{{ID: 5, PersonID: 1, IssueDate: day("2025-01-08"), DurationDays: 5}}

	set, err := newCalendar(t).ComputeMonth(req)
	require.NoError(t, err)

	// WHEN: Summarising both persons
	summaries := planning.SummarizeAll([]planning.PersonID{1, 2}, set)
	require.Len(t, summaries, 2)

	// THEN: A day holding two kinds counts towards both
	s := summaries[0]
	assert.Equal(t, planning.PersonID(1), s.PersonID)
	assert.Equal(t, 31, s.Days)
	assert.Equal(t, 7, s.OnSite)
	assert.Equal(t, 7, s.Resting)
	assert.Equal(t, 5, s.MedicalLeave)
	assert.Equal(t, 17, s.Available)
	assert.Equal(t, "0.23", s.OnSiteShare.StringFixed(2))

	idle := summaries[1]
	assert.Equal(t, 31, idle.Available)
	assert.True(t, idle.OnSiteShare.IsZero())
}

func TestSummarize_TwoSitesSameDay_CountsDayOnce(t *testing.T) {
	// GIVEN: One person assigned to two sites without rotation all January
	req := january(1)
	req.Assignments = []planning.Assignment{
		assignment(100, 1, site(10, "Faena Norte", "2025-01-01", "", nil), "2025-01-01"),
		assignment(101, 1, site(11, "Faena Sur", "2025-01-01", "", nil), "2025-01-01"),
	}

	set, err := newCalendar(t).ComputeMonth(req)
	require.NoError(t, err)
	require.Len(t, set[1][15], 2)

	// WHEN: Summarising the month
	s := planning.Summarize(1, set[1])

	// THEN: Each day is one on-site day and the share stays at one
	assert.Equal(t, 31, s.Days)
	assert.Equal(t, 31, s.OnSite)
	assert.Zero(t, s.Available)
	assert.Equal(t, "1.00", s.OnSiteShare.StringFixed(2))
}

func TestSummarize_EmptyMonth(t *testing.T) {
	s := planning.Summarize(1, planning.PersonMonth{})
	assert.Zero(t, s.Days)
	assert.True(t, s.OnSiteShare.IsZero())
}
