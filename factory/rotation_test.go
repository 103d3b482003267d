package factory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
)

func TestParseRotationName(t *testing.T) {
	cases := []struct {
		name       string
		work, rest int
	}{
		{"7x7", 7, 7},
		{"14x7", 14, 7},
		{" 21 X 7 ", 21, 7},
		{"5x0", 5, 0},
	}
	for _, tc := range cases {
		work, rest, err := ParseRotationName(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.work, work, tc.name)
		assert.Equal(t, tc.rest, rest, tc.name)
	}
}

func TestParseRotationName_Invalid(t *testing.T) {
	for _, name := range []string{"", "turno largo", "7-7", "0x7", "x7"} {
		_, _, err := ParseRotationName(name)
		assert.ErrorIs(t, err, planning.ErrInvalidCycle, name)
	}
}

func TestParseRotation_Shorthand(t *testing.T) {
	spec, err := NewRotationFactory().ParseRotation(`{"id": 3, "name": "14x7"}`)
	require.NoError(t, err)

	assert.Equal(t, planning.RotationID(3), spec.ID)
	assert.Equal(t, 14, spec.WorkDays)
	assert.Equal(t, 7, spec.RestDays)
	assert.True(t, spec.Active, "active defaults to true")
}

func TestParseRotation_Explicit(t *testing.T) {
	spec, err := NewRotationFactory().ParseRotation(`{"id": 4, "work_days": 4, "rest_days": 3, "active": false}`)
	require.NoError(t, err)

	assert.Equal(t, "4x3", spec.Name)
	assert.False(t, spec.Active)

	back := ToJSON(*spec)
	assert.Equal(t, int64(4), back.ID)
	assert.Equal(t, 4, back.WorkDays)
	require.NotNil(t, back.Active)
	assert.False(t, *back.Active)
}

func TestParseRotation_Errors(t *testing.T) {
	f := NewRotationFactory()

	_, err := f.ParseRotation(`{not json`)
	assert.Error(t, err)

	_, err = f.ParseRotation(`{"id": 1, "work_days": 0, "rest_days": 7}`)
	assert.ErrorIs(t, err, planning.ErrInvalidCycle)
}

const sampleRoster = `
rotations:
  - {id: 1, name: "7x7"}
  - {id: 2, name: "14x7"}
sites:
  - {id: 10, name: Mina Norte, start_date: 2025-01-01, end_date: 2025-06-30, default_rotation: 1}
  - {id: 20, name: Planta, start_date: 2025-01-01}
persons:
  - {id: 1, rut: "12345678-5", name: Ana Rojas}
  - {id: 2, rut: "9876543-3", name: Luis Soto, active: false}
assignments:
  - {id: 100, person: 1, site: 10, start_date: 2025-01-01}
  - {id: 101, person: 2, site: 10, start_date: 2025-02-01, rotation: 2}
leaves:
  - {id: 1, person: 1, type: Enfermedad común, issue_date: 2025-01-08, duration_days: 5}
absences:
  - {id: 1, person: 2, type: Vacaciones, start_date: 2025-02-10, end_date: 2025-02-14}
`

func TestLoadRoster(t *testing.T) {
	ds, err := NewRotationFactory().LoadRoster(strings.NewReader(sampleRoster))
	require.NoError(t, err)

	require.Len(t, ds.Rotations, 2)
	require.Len(t, ds.Sites, 2)
	require.Len(t, ds.Persons, 2)
	require.Len(t, ds.Assignments, 2)
	require.Len(t, ds.Leaves, 1)
	require.Len(t, ds.Absences, 1)

	north := ds.Sites[0]
	require.NotNil(t, north.DefaultRotation)
	assert.Equal(t, "7x7", north.DefaultRotation.Label())
	assert.Equal(t, "2025-06-30", north.EndDate.String())
	assert.Nil(t, ds.Sites[1].EndDate)

	assert.False(t, ds.Persons[1].Active)

	// Assignment carries a site snapshot and its override
	assert.Equal(t, "Mina Norte", ds.Assignments[0].Site.Name)
	assert.Nil(t, ds.Assignments[0].RotationOverride)
	require.NotNil(t, ds.Assignments[1].RotationOverride)
	assert.Equal(t, 14, ds.Assignments[1].RotationOverride.WorkDays)

	assert.Equal(t, "2025-01-12", ds.Leaves[0].EndDate().String())
}

func TestLoadRoster_DanglingReference(t *testing.T) {
	roster := `
sites:
  - {id: 10, name: Mina Norte, start_date: 2025-01-01, default_rotation: 9}
`
	_, err := NewRotationFactory().LoadRoster(strings.NewReader(roster))
	assert.True(t, generic.IsNotFound(err), "got %v", err)
}

func TestLoadRoster_InvalidSiteWindow(t *testing.T) {
	roster := `
sites:
  - {id: 10, name: Mina Norte, start_date: 2025-06-01, end_date: 2025-06-01}
`
	_, err := NewRotationFactory().LoadRoster(strings.NewReader(roster))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestLoadRoster_UnknownField(t *testing.T) {
	_, err := NewRotationFactory().LoadRoster(strings.NewReader("turnos: []\n"))
	assert.Error(t, err)
}

func TestCheckAssignments(t *testing.T) {
	// GIVEN: A June-only site on 14x7, one start that fits a cycle and one
	// that does not
	roster := `
rotations:
  - {id: 1, name: "14x7"}
sites:
  - {id: 10, name: Mina Norte, start_date: 2025-06-01, end_date: 2025-06-30, default_rotation: 1}
persons:
  - {id: 1, rut: "12345678-5", name: Ana Rojas}
assignments:
  - {id: 100, person: 1, site: 10, start_date: 2025-06-01}
  - {id: 101, person: 1, site: 10, start_date: 2025-06-20}
  - {id: 102, person: 1, site: 10, start_date: 2025-07-01}
`
	ds, err := NewRotationFactory().LoadRoster(strings.NewReader(roster))
	require.NoError(t, err)

	// WHEN: Checking the assignments
	errs := ds.CheckAssignments()

	// THEN: The last two are rejected, in roster order
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], planning.ErrRotationExceedsSiteWindow)
	assert.Contains(t, errs[0].Error(), "assignment 101")
	assert.ErrorIs(t, errs[1], planning.ErrOutsideSiteWindow)
}
