package planning_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
)

func newWindow(t *testing.T, a planning.Assignment) *planning.AssignmentWindow {
	t.Helper()
	w, err := planning.NewAssignmentWindow(a)
	require.NoError(t, err)
	return w
}

func TestAssignmentWindow_CompleteCycles_SevenBySeven(t *testing.T) {
	// GIVEN: 7x7 from 2025-01-01 at a site ending 2025-01-31
	w := newWindow(t, sevenBySevenJanuary())

	// WHEN: Bounding by complete cycles (31 days / 14 = 2 cycles)
	complete, ok := w.CompleteCycles()
	require.True(t, ok)
	end, bounded := w.BoundedEnd()

	// THEN: 2 cycles x 7 work days end on 2025-01-14
	assert.Equal(t, 2, complete)
	require.True(t, bounded)
	assert.Equal(t, "2025-01-14", end.String())
	assert.Equal(t, 14, w.DurationDays(day("2025-06-01")))
	assert.True(t, w.HasWorkDays())
}

func TestAssignmentWindow_NoCompleteCycle(t *testing.T) {
	// GIVEN: 14x7 from 2025-01-01 at a site ending 2025-01-10
	s := site(10, "Proyecto Sur", "2025-01-01", "2025-01-10", rotation(1, 14, 7))
	w := newWindow(t, assignment(1, 1, s, "2025-01-01"))

	// WHEN: Only 10 days are available for a 21-day cycle
	complete, _ := w.CompleteCycles()
	end, ok := w.BoundedEnd()

	// THEN: The end falls before the start and nothing is contributed
	assert.Equal(t, 0, complete)
	require.True(t, ok)
	assert.True(t, end.Before(w.Start()))
	assert.False(t, w.HasWorkDays())
	assert.Equal(t, 0, w.DurationDays(day("2025-01-05")))

	_, inside := w.Classify(day("2025-01-05"))
	assert.False(t, inside)
}

func TestAssignmentWindow_EffectiveRotation(t *testing.T) {
	siteDefault := rotation(1, 7, 7)
	override := rotation(2, 14, 7)
	s := site(10, "Mina Norte", "2025-01-01", "2025-12-31", siteDefault)

	// Override wins
	a := assignment(1, 1, s, "2025-01-01")
	a.RotationOverride = override
	assert.Same(t, override, planning.EffectiveRotation(a))

	// Falls back to site default
	a.RotationOverride = nil
	assert.Same(t, siteDefault, planning.EffectiveRotation(a))

	// No rotation at all
	a.Site.DefaultRotation = nil
	assert.Nil(t, planning.EffectiveRotation(a))
}

func TestAssignmentWindow_NoRotation_Bounds(t *testing.T) {
	t.Run("site end bounds the window", func(t *testing.T) {
		s := site(10, "Planta", "2025-01-01", "2025-03-31", nil)
		w := newWindow(t, assignment(1, 1, s, "2025-02-10"))

		end, ok := w.BoundedEnd()
		require.True(t, ok)
		assert.Equal(t, "2025-03-31", end.String())

		kind, inside := w.Classify(day("2025-03-31"))
		assert.True(t, inside)
		assert.Equal(t, planning.Work, kind)
	})

	t.Run("open site uses the horizon", func(t *testing.T) {
		s := site(10, "Planta", "2025-01-01", "", nil)
		w := newWindow(t, assignment(1, 1, s, "2025-01-01"))

		end, ok := w.BoundedEnd()
		require.True(t, ok)
		assert.Equal(t, day("2025-01-01").AddDays(planning.NoRotationHorizonDays), end)
		assert.Equal(t, planning.NoRotationHorizonDays+1, w.DurationDays(day("2025-01-05")))

		_, inside := w.Classify(end.AddDays(1))
		assert.False(t, inside)
	})
}

func TestAssignmentWindow_RotationOnOpenSite_Unbounded(t *testing.T) {
	s := site(10, "Mina Norte", "2025-01-01", "", rotation(1, 7, 7))
	w := newWindow(t, assignment(1, 1, s, "2025-01-01"))

	_, ok := w.BoundedEnd()
	assert.False(t, ok)

	// Duration runs to today
	assert.Equal(t, 10, w.DurationDays(day("2025-01-10")))
	assert.Equal(t, 0, w.DurationDays(day("2024-12-31")))

	// Classification continues indefinitely
	kind, inside := w.Classify(day("2026-01-01"))
	require.True(t, inside)
	cycle, _ := w.Cycle()
	assert.Equal(t, cycle.Classify(w.Start(), day("2026-01-01")), kind)
}

func TestAssignmentWindow_NextRotationChange(t *testing.T) {
	w := newWindow(t, sevenBySevenJanuary())

	next, ok := w.NextRotationChange(day("2025-01-03"))
	require.True(t, ok)
	assert.Equal(t, "2025-01-08", next.String())

	noRotation := sevenBySevenJanuary()
	noRotation.Site.DefaultRotation = nil
	_, ok = newWindow(t, noRotation).NextRotationChange(day("2025-01-03"))
	assert.False(t, ok)
}

func TestAssignmentWindow_ActiveOn(t *testing.T) {
	w := newWindow(t, sevenBySevenJanuary())

	assert.False(t, w.ActiveOn(day("2024-12-31")), "before start")
	assert.True(t, w.ActiveOn(day("2025-01-01")))
	assert.True(t, w.ActiveOn(day("2025-01-14")), "last bounded day")
	assert.False(t, w.ActiveOn(day("2025-01-15")), "after bounded end")

	inactive := sevenBySevenJanuary()
	inactive.Active = false
	assert.False(t, newWindow(t, inactive).ActiveOn(day("2025-01-05")))
}

func TestAssignmentWindow_Clip(t *testing.T) {
	w := newWindow(t, sevenBySevenJanuary())

	jan, ok := w.Clip(generic.MonthPeriod(2025, 1))
	require.True(t, ok)
	assert.Equal(t, "[2025-01-01, 2025-01-14]", jan.String())

	_, ok = w.Clip(generic.MonthPeriod(2025, 2))
	assert.False(t, ok)

	_, ok = w.Clip(generic.MonthPeriod(2024, 12))
	assert.False(t, ok)
}

func TestAssignmentWindow_InvalidRotation(t *testing.T) {
	a := sevenBySevenJanuary()
	a.RotationOverride = rotation(9, 0, 7)

	_, err := planning.NewAssignmentWindow(a)
	assert.ErrorIs(t, err, planning.ErrInvalidCycle)
}

func TestAssignmentWindow_WorkShare(t *testing.T) {
	s := site(10, "Mina Norte", "2025-01-01", "", rotation(1, 14, 7))
	w := newWindow(t, assignment(1, 1, s, "2025-01-01"))
	assert.True(t, decimal.RequireFromString("0.6667").Equal(w.WorkShare()), w.WorkShare().String())

	s.DefaultRotation = nil
	w = newWindow(t, assignment(1, 1, s, "2025-01-01"))
	assert.True(t, decimal.NewFromInt(1).Equal(w.WorkShare()))
}
