package factory

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
)

// =============================================================================
// YAML ROSTER SCHEMA
// =============================================================================

// Roster is a YAML file describing a complete data set. References between
// records use IDs; dates are YYYY-MM-DD.
//
//	rotations:
//	  - {id: 1, name: "7x7"}
//	sites:
//	  - {id: 10, name: Mina Norte, start_date: 2025-01-01, end_date: 2025-06-30, default_rotation: 1}
//	persons:
//	  - {id: 1, rut: "12345678-5", name: Ana Rojas}
//	assignments:
//	  - {id: 100, person: 1, site: 10, start_date: 2025-01-01}
type Roster struct {
	Rotations   []RotationJSON   `yaml:"rotations"`
	Sites       []SiteYAML       `yaml:"sites"`
	Persons     []PersonYAML     `yaml:"persons"`
	Assignments []AssignmentYAML `yaml:"assignments"`
	Leaves      []LeaveYAML      `yaml:"leaves"`
	Absences    []AbsenceYAML    `yaml:"absences"`
}

type SiteYAML struct {
	ID              int64  `yaml:"id"`
	Name            string `yaml:"name"`
	Location        string `yaml:"location"`
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	DefaultRotation int64  `yaml:"default_rotation"`
	Active          *bool  `yaml:"active"`
}

type PersonYAML struct {
	ID     int64  `yaml:"id"`
	RUT    string `yaml:"rut"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Active *bool  `yaml:"active"`
}

type AssignmentYAML struct {
	ID        int64  `yaml:"id"`
	Person    int64  `yaml:"person"`
	Site      int64  `yaml:"site"`
	StartDate string `yaml:"start_date"`
	Rotation  int64  `yaml:"rotation"`
	Active    *bool  `yaml:"active"`
	Notes     string `yaml:"notes"`
}

type LeaveYAML struct {
	ID           int64  `yaml:"id"`
	Person       int64  `yaml:"person"`
	Type         string `yaml:"type"`
	Folio        string `yaml:"folio"`
	IssueDate    string `yaml:"issue_date"`
	DurationDays int    `yaml:"duration_days"`
	Notes        string `yaml:"notes"`
}

type AbsenceYAML struct {
	ID        int64  `yaml:"id"`
	Person    int64  `yaml:"person"`
	Type      string `yaml:"type"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	Notes     string `yaml:"notes"`
}

// Dataset is a Roster with every reference resolved.
type Dataset struct {
	Rotations   []planning.RotationSpec
	Sites       []planning.Site
	Persons     []planning.Person
	Assignments []planning.Assignment
	Leaves      []planning.MedicalLeave
	Absences    []planning.Absence
}

// =============================================================================
// LOADING
// =============================================================================

// LoadRoster decodes YAML and resolves it.
func (f *RotationFactory) LoadRoster(r io.Reader) (*Dataset, error) {
	var roster Roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster YAML: %w", err)
	}
	return f.Resolve(roster)
}

// Resolve validates every record and links sites to rotations and
// assignments to site snapshots.
func (f *RotationFactory) Resolve(roster Roster) (*Dataset, error) {
	ds := &Dataset{}

	rotations := make(map[int64]*planning.RotationSpec, len(roster.Rotations))
	for _, rj := range roster.Rotations {
		spec, err := f.FromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("rotation %d: %w", rj.ID, err)
		}
		rotations[rj.ID] = spec
		ds.Rotations = append(ds.Rotations, *spec)
	}
	lookupRotation := func(id int64) (*planning.RotationSpec, error) {
		if id == 0 {
			return nil, nil
		}
		spec, ok := rotations[id]
		if !ok {
			return nil, &generic.NotFoundError{Entity: "rotation", ID: id}
		}
		return spec, nil
	}

	sites := make(map[int64]planning.Site, len(roster.Sites))
	for _, sy := range roster.Sites {
		s := planning.Site{ID: planning.SiteID(sy.ID), Name: sy.Name, Location: sy.Location, Active: boolOr(sy.Active, true)}
		var err error
		if s.StartDate, err = generic.ParseDate(sy.StartDate); err != nil {
			return nil, fmt.Errorf("site %d: %w", sy.ID, err)
		}
		if sy.EndDate != "" {
			end, err := generic.ParseDate(sy.EndDate)
			if err != nil {
				return nil, fmt.Errorf("site %d: %w", sy.ID, err)
			}
			s.EndDate = &end
		}
		if s.DefaultRotation, err = lookupRotation(sy.DefaultRotation); err != nil {
			return nil, fmt.Errorf("site %d: %w", sy.ID, err)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		sites[sy.ID] = s
		ds.Sites = append(ds.Sites, s)
	}

	persons := make(map[int64]bool, len(roster.Persons))
	for _, py := range roster.Persons {
		persons[py.ID] = true
		ds.Persons = append(ds.Persons, planning.Person{
			ID:     planning.PersonID(py.ID),
			RUT:    py.RUT,
			Name:   py.Name,
			Email:  py.Email,
			Active: boolOr(py.Active, true),
		})
	}
	requirePerson := func(id int64) error {
		if !persons[id] {
			return &generic.NotFoundError{Entity: "person", ID: id}
		}
		return nil
	}

	for _, ay := range roster.Assignments {
		if err := requirePerson(ay.Person); err != nil {
			return nil, fmt.Errorf("assignment %d: %w", ay.ID, err)
		}
		s, ok := sites[ay.Site]
		if !ok {
			return nil, fmt.Errorf("assignment %d: %w", ay.ID, &generic.NotFoundError{Entity: "site", ID: ay.Site})
		}
		start, err := generic.ParseDate(ay.StartDate)
		if err != nil {
			return nil, fmt.Errorf("assignment %d: %w", ay.ID, err)
		}
		override, err := lookupRotation(ay.Rotation)
		if err != nil {
			return nil, fmt.Errorf("assignment %d: %w", ay.ID, err)
		}
		ds.Assignments = append(ds.Assignments, planning.Assignment{
			ID:               planning.AssignmentID(ay.ID),
			PersonID:         planning.PersonID(ay.Person),
			Site:             s,
			StartDate:        start,
			RotationOverride: override,
			Active:           boolOr(ay.Active, true),
			Notes:            ay.Notes,
		})
	}

	for _, ly := range roster.Leaves {
		if err := requirePerson(ly.Person); err != nil {
			return nil, fmt.Errorf("leave %d: %w", ly.ID, err)
		}
		issue, err := generic.ParseDate(ly.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("leave %d: %w", ly.ID, err)
		}
		l := planning.MedicalLeave{
			ID:           planning.LeaveID(ly.ID),
			PersonID:     planning.PersonID(ly.Person),
			Type:         ly.Type,
			Folio:        ly.Folio,
			IssueDate:    issue,
			DurationDays: ly.DurationDays,
			Notes:        ly.Notes,
		}
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("leave %d: %w", ly.ID, err)
		}
		ds.Leaves = append(ds.Leaves, l)
	}

	for _, ay := range roster.Absences {
		if err := requirePerson(ay.Person); err != nil {
			return nil, fmt.Errorf("absence %d: %w", ay.ID, err)
		}
		start, err := generic.ParseDate(ay.StartDate)
		if err != nil {
			return nil, fmt.Errorf("absence %d: %w", ay.ID, err)
		}
		end, err := generic.ParseDate(ay.EndDate)
		if err != nil {
			return nil, fmt.Errorf("absence %d: %w", ay.ID, err)
		}
		a := planning.Absence{
			ID:        planning.AbsenceID(ay.ID),
			PersonID:  planning.PersonID(ay.Person),
			Type:      ay.Type,
			StartDate: start,
			EndDate:   end,
			Notes:     ay.Notes,
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("absence %d: %w", ay.ID, err)
		}
		ds.Absences = append(ds.Absences, a)
	}

	return ds, nil
}

// CheckAssignments runs every assignment through the resolver and returns
// one error per rejected assignment, in roster order.
func (ds *Dataset) CheckAssignments() []error {
	resolver := planning.NewAssignmentResolver()
	var errs []error
	for _, a := range ds.Assignments {
		if _, err := resolver.Validate(a); err != nil {
			errs = append(errs, fmt.Errorf("assignment %d: %w", a.ID, err))
		}
	}
	return errs
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
