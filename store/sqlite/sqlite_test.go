package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
	"github.com/GDiazF/calendario/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(s string) generic.Date { return generic.MustParseDate(s) }

// seedSite stores a 7x7 rotation, a site running Jan-Jun 2025 and one person.
func seedSite(t *testing.T, store *sqlite.Store) (planning.Site, planning.PersonID) {
	t.Helper()
	ctx := context.Background()

	rotID, err := store.SaveRotation(ctx, planning.RotationSpec{Name: "7x7", WorkDays: 7, RestDays: 7, Active: true})
	require.NoError(t, err)
	rot, err := store.GetRotation(ctx, rotID)
	require.NoError(t, err)

	end := day("2025-06-30")
	siteID, err := store.SaveSite(ctx, planning.Site{
		Name: "Mina Norte", StartDate: day("2025-01-01"), EndDate: &end, DefaultRotation: rot, Active: true,
	})
	require.NoError(t, err)
	site, err := store.GetSite(ctx, siteID)
	require.NoError(t, err)

	personID, err := store.SavePerson(ctx, planning.Person{RUT: "12345678-5", Name: "Ana Rojas", Active: true})
	require.NoError(t, err)
	return *site, personID
}

func TestStore_SiteRoundTrip(t *testing.T) {
	store := newStore(t)
	site, _ := seedSite(t, store)

	assert.Equal(t, "Mina Norte", site.Name)
	assert.Equal(t, "2025-01-01", site.StartDate.String())
	require.NotNil(t, site.EndDate)
	assert.Equal(t, "2025-06-30", site.EndDate.String())
	require.NotNil(t, site.DefaultRotation)
	assert.Equal(t, 7, site.DefaultRotation.WorkDays)

	missing, err := store.GetSite(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_AssignmentJoinsSiteAndRotations(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	site, person := seedSite(t, store)

	overrideID, err := store.SaveRotation(ctx, planning.RotationSpec{Name: "14x7", WorkDays: 14, RestDays: 7, Active: true})
	require.NoError(t, err)

	id, err := store.SaveAssignment(ctx, planning.Assignment{
		PersonID:         person,
		Site:             site,
		StartDate:        day("2025-01-06"),
		RotationOverride: &planning.RotationSpec{ID: overrideID},
		Active:           true,
		Notes:            "relevo",
	})
	require.NoError(t, err)

	a, err := store.GetAssignment(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, person, a.PersonID)
	assert.Equal(t, "Mina Norte", a.Site.Name)
	require.NotNil(t, a.Site.DefaultRotation)
	assert.Equal(t, "7x7", a.Site.DefaultRotation.Label())
	require.NotNil(t, a.RotationOverride)
	assert.Equal(t, 14, a.RotationOverride.WorkDays)
	assert.Equal(t, "relevo", a.Notes)

	// The joined snapshot feeds the engine directly
	w, err := planning.NewAssignmentWindow(*a)
	require.NoError(t, err)
	assert.Equal(t, 14, w.Rotation.WorkDays)
}

func TestStore_ActiveAssignmentsFiltersByPersonAndStart(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	site, ana := seedSite(t, store)

	luis, err := store.SavePerson(ctx, planning.Person{RUT: "9876543-3", Name: "Luis Soto", Active: true})
	require.NoError(t, err)

	_, err = store.SaveAssignment(ctx, planning.Assignment{PersonID: ana, Site: site, StartDate: day("2025-01-01"), Active: true})
	require.NoError(t, err)
	_, err = store.SaveAssignment(ctx, planning.Assignment{PersonID: luis, Site: site, StartDate: day("2025-03-01"), Active: true})
	require.NoError(t, err)

	// WHEN: Loading January for everybody
	jan, err := store.ActiveAssignments(ctx, nil, day("2025-01-31"))
	require.NoError(t, err)

	// THEN: Luis starts in March and is excluded
	require.Len(t, jan, 1)
	assert.Equal(t, ana, jan[0].PersonID)

	onlyLuis, err := store.ActiveAssignments(ctx, []planning.PersonID{luis}, day("2025-03-31"))
	require.NoError(t, err)
	require.Len(t, onlyLuis, 1)
	assert.Equal(t, luis, onlyLuis[0].PersonID)
}

func TestStore_ApplyAssignment_SupersedesAndUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	site, person := seedSite(t, store)
	resolver := planning.NewAssignmentResolver()

	first, err := store.SaveAssignment(ctx, planning.Assignment{PersonID: person, Site: site, StartDate: day("2025-01-01"), Active: true})
	require.NoError(t, err)

	apply := func(a planning.Assignment) planning.AssignmentID {
		existing, err := store.AssignmentsByPerson(ctx, person)
		require.NoError(t, err)
		id, err := store.ApplyAssignment(ctx, a, resolver.Supersedes(a, existing))
		require.NoError(t, err)
		return id
	}

	// WHEN: A later start at the same site
	second := apply(planning.Assignment{PersonID: person, Site: site, StartDate: day("2025-02-01"), Active: true})

	// THEN: The first assignment is retired
	all, err := store.AssignmentsByPerson(ctx, person)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].ID)
	assert.False(t, all[0].Active)
	assert.True(t, all[1].Active)

	// WHEN: Same start again with notes
	again := apply(planning.Assignment{PersonID: person, Site: site, StartDate: day("2025-02-01"), Active: true, Notes: "edit"})

	// THEN: The row is updated in place, no new row
	assert.Equal(t, second, again)
	all, err = store.AssignmentsByPerson(ctx, person)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "edit", all[1].Notes)
}

func TestStore_RemoveAssignments(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	site, person := seedSite(t, store)

	otherID, err := store.SaveSite(ctx, planning.Site{Name: "Planta", StartDate: day("2025-01-01"), Active: true})
	require.NoError(t, err)
	other, err := store.GetSite(ctx, otherID)
	require.NoError(t, err)

	_, err = store.SaveAssignment(ctx, planning.Assignment{PersonID: person, Site: site, StartDate: day("2025-01-01"), Active: true})
	require.NoError(t, err)
	_, err = store.SaveAssignment(ctx, planning.Assignment{PersonID: person, Site: *other, StartDate: day("2025-01-01"), Active: true})
	require.NoError(t, err)

	// WHEN: Removing from one site
	removed, err := store.RemoveAssignments(ctx, person, &site.ID)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.True(t, removed[0].Active, "rows are returned as they were before removal")

	active, err := store.ActiveAssignments(ctx, []planning.PersonID{person}, day("2025-12-31"))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Planta", active[0].Site.Name)

	// WHEN: Removing from all sites
	removed, err = store.RemoveAssignments(ctx, person, nil)
	require.NoError(t, err)
	assert.Len(t, removed, 1)

	active, err = store.ActiveAssignments(ctx, []planning.PersonID{person}, day("2025-12-31"))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStore_LeavesAndAbsencesOverlapping(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, person := seedSite(t, store)

	// Dec 28 + 7 days runs into January
	_, err := store.SaveMedicalLeave(ctx, planning.MedicalLeave{PersonID: person, Type: "Enfermedad común", IssueDate: day("2024-12-28"), DurationDays: 7})
	require.NoError(t, err)
	_, err = store.SaveMedicalLeave(ctx, planning.MedicalLeave{PersonID: person, IssueDate: day("2025-02-03"), DurationDays: 3})
	require.NoError(t, err)
	_, err = store.SaveAbsence(ctx, planning.Absence{PersonID: person, Type: "Vacaciones", StartDate: day("2025-01-20"), EndDate: day("2025-02-05")})
	require.NoError(t, err)

	january := generic.MonthPeriod(2025, time.January)

	leaves, err := store.LeavesOverlapping(ctx, []planning.PersonID{person}, january)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, "2025-01-03", leaves[0].EndDate().String())
	assert.Equal(t, "Enfermedad común", leaves[0].Type)

	absences, err := store.AbsencesOverlapping(ctx, nil, january)
	require.NoError(t, err)
	require.Len(t, absences, 1)
	assert.Equal(t, "Vacaciones", absences[0].Type)

	none, err := store.AbsencesOverlapping(ctx, []planning.PersonID{person + 1}, january)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_AuditLog(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []generic.AuditEntry{
		{ID: "a1", Timestamp: base, Actor: "admin", Action: generic.AuditAssign, EntityType: "assignment", EntityID: 1, Description: "assigned",
			After: map[string]any{"site": "Mina Norte"}},
		{ID: "a2", Timestamp: base.Add(time.Hour), Actor: "Supervisor", Action: generic.AuditRemove, EntityType: "assignment", EntityID: 1, Description: "removed"},
		{ID: "a3", Timestamp: base.Add(48 * time.Hour), Action: generic.AuditCreate, EntityType: "medical_leave", EntityID: 4, Description: "leave"},
	}
	for _, e := range entries {
		require.NoError(t, store.Append(ctx, e))
	}

	// Newest first
	all, err := store.Query(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a3", all[0].ID)
	assert.Equal(t, "a1", all[2].ID)
	assert.Equal(t, "Mina Norte", all[2].After["site"])
	assert.True(t, all[2].Timestamp.Equal(base))

	// Case-insensitive substring filters
	sup, err := store.Query(ctx, generic.AuditFilter{Actor: "super"})
	require.NoError(t, err)
	require.Len(t, sup, 1)
	assert.Equal(t, "a2", sup[0].ID)

	limited, err := store.Query(ctx, generic.AuditFilter{EntityType: "assignment", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "a2", limited[0].ID)

	// Purge before a cut-off, then everything
	n, err := store.Purge(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.Purge(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	seedSite(t, store)

	require.NoError(t, store.Reset(ctx))

	persons, err := store.ListPersons(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, persons)
	sites, err := store.ListSites(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, sites)
}
