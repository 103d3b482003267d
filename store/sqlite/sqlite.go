/*
Package sqlite provides a SQLite-backed store for roster records and the
audit log.

PURPOSE:
  Persists persons, rotations, sites, assignments, medical leaves and
  absences, and loads them back as planning snapshots ready for the
  calendar engine (assignments come with their site and both rotations
  already joined in).

INTERFACES IMPLEMENTED:
  generic.AuditLog: Audit entries (append, query, purge)

KEY TABLES:
  rotations:      Work/rest patterns ("7x7")
  sites:          Faenas with validity window and default rotation
  persons:        Identity and display fields
  assignments:    Person-to-site placements, UNIQUE(person, site, start)
  medical_leaves: Issue date + duration (end date denormalised for range scans)
  absences:       Typed intervals
  audit_log:      Who changed what

DATES:
  Calendar dates are stored as YYYY-MM-DD text so that string comparison
  is date comparison. Audit timestamps use a fixed-width UTC layout for
  the same reason.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Multi-row writes (applying an
  assignment, removing a person from sites) run in one SQL transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block and only one writer runs at a time.

USAGE:
  store, err := sqlite.New("./data/calendario.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: AuditLog contract
  - api/handlers.go: Write path using ApplyAssignment
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
)

// timestampLayout sorts lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Store implements roster persistence and generic.AuditLog using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.AuditLog = (*Store)(nil)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rotations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		work_days INTEGER NOT NULL CHECK (work_days > 0),
		rest_days INTEGER NOT NULL CHECK (rest_days >= 0),
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		location TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT,
		default_rotation_id INTEGER REFERENCES rotations(id),
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS persons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rut TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		person_id INTEGER NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
		site_id INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
		start_date TEXT NOT NULL,
		rotation_id INTEGER REFERENCES rotations(id),
		active INTEGER NOT NULL DEFAULT 1,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (person_id, site_id, start_date)
	);

	-- Month queries: active assignments of a batch of persons
	CREATE INDEX IF NOT EXISTS idx_assignments_person_active
		ON assignments(person_id, active, start_date);
	CREATE INDEX IF NOT EXISTS idx_assignments_site
		ON assignments(site_id);

	CREATE TABLE IF NOT EXISTS medical_leaves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		person_id INTEGER NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
		type TEXT,
		folio TEXT,
		issue_date TEXT NOT NULL,
		duration_days INTEGER NOT NULL CHECK (duration_days >= 1),
		end_date TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_person_range
		ON medical_leaves(person_id, issue_date, end_date);

	CREATE TABLE IF NOT EXISTS absences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		person_id INTEGER NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_absences_person_range
		ON absences(person_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor TEXT,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		before_json TEXT,
		after_json TEXT,
		ip_address TEXT,
		details_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp
		ON audit_log(timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROTATIONS
// =============================================================================

// SaveRotation inserts when ID is zero, otherwise upserts. Returns the ID.
func (s *Store) SaveRotation(ctx context.Context, r planning.RotationSpec) (planning.RotationID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowText()
	id, err := upsert(ctx, s.db, int64(r.ID), `
		INSERT INTO rotations (id, name, work_days, rest_days, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			work_days = excluded.work_days,
			rest_days = excluded.rest_days,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, nullID(int64(r.ID)), r.Label(), r.WorkDays, r.RestDays, r.Active, now, now)
	return planning.RotationID(id), err
}

// GetRotation retrieves a rotation by ID; nil when missing.
func (s *Store) GetRotation(ctx context.Context, id planning.RotationID) (*planning.RotationSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r planning.RotationSpec
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, work_days, rest_days, active FROM rotations WHERE id = ?", id,
	).Scan(&r.ID, &r.Name, &r.WorkDays, &r.RestDays, &r.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRotations returns rotations ordered by name.
func (s *Store) ListRotations(ctx context.Context, activeOnly bool) ([]planning.RotationSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, name, work_days, rest_days, active FROM rotations"
	if activeOnly {
		query += " WHERE active = 1"
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planning.RotationSpec
	for rows.Next() {
		var r planning.RotationSpec
		if err := rows.Scan(&r.ID, &r.Name, &r.WorkDays, &r.RestDays, &r.Active); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// SITES
// =============================================================================

// SaveSite inserts when ID is zero, otherwise upserts. Returns the ID.
func (s *Store) SaveSite(ctx context.Context, site planning.Site) (planning.SiteID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var defaultRotation sql.NullInt64
	if site.DefaultRotation != nil {
		defaultRotation = sql.NullInt64{Int64: int64(site.DefaultRotation.ID), Valid: true}
	}

	now := nowText()
	id, err := upsert(ctx, s.db, int64(site.ID), `
		INSERT INTO sites (id, name, location, start_date, end_date, default_rotation_id, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			default_rotation_id = excluded.default_rotation_id,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, nullID(int64(site.ID)), site.Name, nullString(site.Location), site.StartDate.String(),
		nullDate(site.EndDate), defaultRotation, site.Active, now, now)
	return planning.SiteID(id), err
}

const siteColumns = `
	s.id, s.name, s.location, s.start_date, s.end_date, s.active,
	dr.id, dr.name, dr.work_days, dr.rest_days, dr.active`

const siteFrom = `
	FROM sites s
	LEFT JOIN rotations dr ON dr.id = s.default_rotation_id`

// GetSite retrieves a site with its default rotation; nil when missing.
func (s *Store) GetSite(ctx context.Context, id planning.SiteID) (*planning.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sites, err := s.querySites(ctx, "SELECT "+siteColumns+siteFrom+" WHERE s.id = ?", id)
	if err != nil || len(sites) == 0 {
		return nil, err
	}
	return &sites[0], nil
}

// ListSites returns sites ordered by name.
func (s *Store) ListSites(ctx context.Context, activeOnly bool) ([]planning.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + siteColumns + siteFrom
	if activeOnly {
		query += " WHERE s.active = 1"
	}
	return s.querySites(ctx, query+" ORDER BY s.name")
}

func (s *Store) querySites(ctx context.Context, query string, args ...any) ([]planning.Site, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var out []planning.Site
	for rows.Next() {
		var (
			site planning.Site
			sc   siteScan
			dr   rotationScan
		)
		if err := rows.Scan(&site.ID, &site.Name, &sc.location, &sc.start, &sc.end, &site.Active,
			&dr.id, &dr.name, &dr.work, &dr.rest, &dr.active); err != nil {
			return nil, err
		}
		if err := sc.into(&site); err != nil {
			return nil, err
		}
		site.DefaultRotation = dr.spec()
		out = append(out, site)
	}
	return out, rows.Err()
}

// =============================================================================
// PERSONS
// =============================================================================

// SavePerson inserts when ID is zero, otherwise upserts. Returns the ID.
func (s *Store) SavePerson(ctx context.Context, p planning.Person) (planning.PersonID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := upsert(ctx, s.db, int64(p.ID), `
		INSERT INTO persons (id, rut, name, email, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rut = excluded.rut,
			name = excluded.name,
			email = excluded.email,
			active = excluded.active
	`, nullID(int64(p.ID)), p.RUT, p.Name, nullString(p.Email), p.Active, nowText())
	return planning.PersonID(id), err
}

// GetPerson retrieves a person by ID; nil when missing.
func (s *Store) GetPerson(ctx context.Context, id planning.PersonID) (*planning.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p planning.Person
	var email sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, rut, name, email, active FROM persons WHERE id = ?", id,
	).Scan(&p.ID, &p.RUT, &p.Name, &email, &p.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Email = email.String
	return &p, nil
}

// ListPersons returns persons ordered by name.
func (s *Store) ListPersons(ctx context.Context, activeOnly bool) ([]planning.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, rut, name, email, active FROM persons"
	if activeOnly {
		query += " WHERE active = 1"
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planning.Person
	for rows.Next() {
		var p planning.Person
		var email sql.NullString
		if err := rows.Scan(&p.ID, &p.RUT, &p.Name, &email, &p.Active); err != nil {
			return nil, err
		}
		p.Email = email.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

const assignmentSelect = `
	SELECT a.id, a.person_id, a.start_date, a.active, a.notes,
	       ` + siteColumns + `,
	       ar.id, ar.name, ar.work_days, ar.rest_days, ar.active
	FROM assignments a
	JOIN sites s ON s.id = a.site_id
	LEFT JOIN rotations dr ON dr.id = s.default_rotation_id
	LEFT JOIN rotations ar ON ar.id = a.rotation_id`

// SaveAssignment inserts when ID is zero, otherwise upserts. It does not
// validate; run planning.AssignmentResolver first.
func (s *Store) SaveAssignment(ctx context.Context, a planning.Assignment) (planning.AssignmentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAssignment(ctx, s.db, a)
}

func saveAssignment(ctx context.Context, db execer, a planning.Assignment) (planning.AssignmentID, error) {
	var rotation sql.NullInt64
	if a.RotationOverride != nil {
		rotation = sql.NullInt64{Int64: int64(a.RotationOverride.ID), Valid: true}
	}

	now := nowText()
	id, err := upsert(ctx, db, int64(a.ID), `
		INSERT INTO assignments (id, person_id, site_id, start_date, rotation_id, active, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			person_id = excluded.person_id,
			site_id = excluded.site_id,
			start_date = excluded.start_date,
			rotation_id = excluded.rotation_id,
			active = excluded.active,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, nullID(int64(a.ID)), a.PersonID, a.Site.ID, a.StartDate.String(), rotation, a.Active,
		nullString(a.Notes), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to save assignment: %w", err)
	}
	return planning.AssignmentID(id), nil
}

// GetAssignment returns the assignment with its site and rotations; nil when missing.
func (s *Store) GetAssignment(ctx context.Context, id planning.AssignmentID) (*planning.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, err := queryAssignments(ctx, s.db, assignmentSelect+" WHERE a.id = ?", id)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// AssignmentsByPerson returns every assignment of a person, active or not.
func (s *Store) AssignmentsByPerson(ctx context.Context, personID planning.PersonID) ([]planning.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryAssignments(ctx, s.db,
		assignmentSelect+" WHERE a.person_id = ? ORDER BY a.start_date, a.id", personID)
}

// ActiveAssignments returns active assignments starting on or before until.
// An empty persons slice means every person.
func (s *Store) ActiveAssignments(ctx context.Context, persons []planning.PersonID, until generic.Date) ([]planning.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := personFilter("a.person_id", persons)
	args = append(args, until.String())
	return queryAssignments(ctx, s.db,
		assignmentSelect+" WHERE a.active = 1 AND "+where+" AND a.start_date <= ? ORDER BY a.person_id, a.start_date, a.id",
		args...)
}

// ApplyAssignment deactivates superseded assignments and stores the
// candidate (updating the same-start row in place when there is one), all
// in one transaction. Returns the stored assignment's ID.
func (s *Store) ApplyAssignment(ctx context.Context, candidate planning.Assignment, sup planning.Supersession) (planning.AssignmentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deactivate(ctx, tx, sup.Deactivate); err != nil {
		return 0, err
	}
	if sup.UpdateInPlace != nil {
		// An edit that moves onto another row's start date retires the edited row.
		if candidate.ID != 0 && candidate.ID != sup.UpdateInPlace.ID {
			if err := deactivate(ctx, tx, []planning.AssignmentID{candidate.ID}); err != nil {
				return 0, err
			}
		}
		candidate.ID = sup.UpdateInPlace.ID
	}
	id, err := saveAssignment(ctx, tx, candidate)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// RemoveAssignments deactivates the person's active assignments, at one
// site or at all sites when siteID is nil. Returns the rows as they were
// before deactivation.
func (s *Store) RemoveAssignments(ctx context.Context, personID planning.PersonID, siteID *planning.SiteID) ([]planning.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := assignmentSelect + " WHERE a.person_id = ? AND a.active = 1"
	args := []any{personID}
	if siteID != nil {
		query += " AND a.site_id = ?"
		args = append(args, *siteID)
	}
	removed, err := queryAssignments(ctx, tx, query+" ORDER BY a.start_date, a.id", args...)
	if err != nil {
		return nil, err
	}

	ids := make([]planning.AssignmentID, len(removed))
	for i, a := range removed {
		ids[i] = a.ID
	}
	if err := deactivate(ctx, tx, ids); err != nil {
		return nil, err
	}
	return removed, tx.Commit()
}

func deactivate(ctx context.Context, db execer, ids []planning.AssignmentID) error {
	now := nowText()
	for _, id := range ids {
		if _, err := db.ExecContext(ctx,
			"UPDATE assignments SET active = 0, updated_at = ? WHERE id = ?", now, id); err != nil {
			return fmt.Errorf("failed to deactivate assignment %d: %w", id, err)
		}
	}
	return nil
}

func queryAssignments(ctx context.Context, db execer, query string, args ...any) ([]planning.Assignment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []planning.Assignment
	for rows.Next() {
		var (
			a      planning.Assignment
			start  string
			notes  sql.NullString
			sc     siteScan
			dr, ar rotationScan
		)
		if err := rows.Scan(&a.ID, &a.PersonID, &start, &a.Active, &notes,
			&a.Site.ID, &a.Site.Name, &sc.location, &sc.start, &sc.end, &a.Site.Active,
			&dr.id, &dr.name, &dr.work, &dr.rest, &dr.active,
			&ar.id, &ar.name, &ar.work, &ar.rest, &ar.active); err != nil {
			return nil, err
		}
		if a.StartDate, err = generic.ParseDate(start); err != nil {
			return nil, err
		}
		if err := sc.into(&a.Site); err != nil {
			return nil, err
		}
		a.Notes = notes.String
		a.Site.DefaultRotation = dr.spec()
		a.RotationOverride = ar.spec()
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// MEDICAL LEAVES
// =============================================================================

// SaveMedicalLeave stores a new leave and returns its ID.
func (s *Store) SaveMedicalLeave(ctx context.Context, l planning.MedicalLeave) (planning.LeaveID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := upsert(ctx, s.db, int64(l.ID), `
		INSERT INTO medical_leaves (id, person_id, type, folio, issue_date, duration_days, end_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			folio = excluded.folio,
			notes = excluded.notes
	`, nullID(int64(l.ID)), l.PersonID, nullString(l.Type), nullString(l.Folio), l.IssueDate.String(),
		l.DurationDays, l.EndDate().String(), nullString(l.Notes), nowText())
	return planning.LeaveID(id), err
}

// LeavesOverlapping returns leaves intersecting p. An empty persons slice
// means every person.
func (s *Store) LeavesOverlapping(ctx context.Context, persons []planning.PersonID, p generic.Period) ([]planning.MedicalLeave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := personFilter("person_id", persons)
	args = append(args, p.End.String(), p.Start.String())
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, type, folio, issue_date, duration_days, notes
		FROM medical_leaves
		WHERE `+where+` AND issue_date <= ? AND end_date >= ?
		ORDER BY person_id, issue_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query medical leaves: %w", err)
	}
	defer rows.Close()

	var out []planning.MedicalLeave
	for rows.Next() {
		var l planning.MedicalLeave
		var typ, folio, notes sql.NullString
		var issue string
		if err := rows.Scan(&l.ID, &l.PersonID, &typ, &folio, &issue, &l.DurationDays, &notes); err != nil {
			return nil, err
		}
		if l.IssueDate, err = generic.ParseDate(issue); err != nil {
			return nil, err
		}
		l.Type, l.Folio, l.Notes = typ.String, folio.String, notes.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// =============================================================================
// ABSENCES
// =============================================================================

// SaveAbsence stores an absence and returns its ID.
func (s *Store) SaveAbsence(ctx context.Context, a planning.Absence) (planning.AbsenceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := upsert(ctx, s.db, int64(a.ID), `
		INSERT INTO absences (id, person_id, type, start_date, end_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			notes = excluded.notes
	`, nullID(int64(a.ID)), a.PersonID, a.Type, a.StartDate.String(), a.EndDate.String(),
		nullString(a.Notes), nowText())
	return planning.AbsenceID(id), err
}

// AbsencesOverlapping returns absences intersecting p. An empty persons
// slice means every person.
func (s *Store) AbsencesOverlapping(ctx context.Context, persons []planning.PersonID, p generic.Period) ([]planning.Absence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := personFilter("person_id", persons)
	args = append(args, p.End.String(), p.Start.String())
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, type, start_date, end_date, notes
		FROM absences
		WHERE `+where+` AND start_date <= ? AND end_date >= ?
		ORDER BY person_id, start_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	var out []planning.Absence
	for rows.Next() {
		var a planning.Absence
		var start, end string
		var notes sql.NullString
		if err := rows.Scan(&a.ID, &a.PersonID, &a.Type, &start, &end, &notes); err != nil {
			return nil, err
		}
		if a.StartDate, err = generic.ParseDate(start); err != nil {
			return nil, err
		}
		if a.EndDate, err = generic.ParseDate(end); err != nil {
			return nil, err
		}
		a.Notes = notes.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

// Append adds an audit entry.
func (s *Store) Append(ctx context.Context, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, _ := marshalOptional(e.Before)
	after, _ := marshalOptional(e.After)
	details, _ := marshalOptional(e.Details)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
		(id, timestamp, actor, action, entity_type, entity_id, description,
		 before_json, after_json, ip_address, details_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Timestamp.UTC().Format(timestampLayout), nullString(e.Actor), string(e.Action),
		e.EntityType, e.EntityID, e.Description, before, after, nullString(e.IPAddress), details)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Query returns matching entries, newest first.
func (s *Store) Query(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		conds []string
		args  []any
	)
	like := func(col, v string) {
		if v != "" {
			conds = append(conds, "LOWER(COALESCE("+col+", '')) LIKE ?")
			args = append(args, "%"+strings.ToLower(v)+"%")
		}
	}
	like("action", f.Action)
	like("entity_type", f.EntityType)
	like("actor", f.Actor)
	if f.EntityID != nil {
		conds = append(conds, "entity_id = ?")
		args = append(args, *f.EntityID)
	}
	if f.From != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.From.UTC().Format(timestampLayout))
	}
	if f.To != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, f.To.UTC().Format(timestampLayout))
	}

	query := `SELECT id, timestamp, actor, action, entity_type, entity_id, description,
	                 before_json, after_json, ip_address, details_json
	          FROM audit_log`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, f.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []generic.AuditEntry
	for rows.Next() {
		var (
			e                                 generic.AuditEntry
			ts, action                        string
			actor, ip, before, after, details sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &actor, &action, &e.EntityType, &e.EntityID, &e.Description,
			&before, &after, &ip, &details); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(timestampLayout, ts)
		e.Action = generic.AuditAction(action)
		e.Actor, e.IPAddress = actor.String, ip.String
		e.Before = unmarshalOptional(before)
		e.After = unmarshalOptional(after)
		e.Details = unmarshalOptional(details)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Purge deletes entries older than before; a zero before deletes all.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if before.IsZero() {
		res, err = s.db.ExecContext(ctx, "DELETE FROM audit_log")
	} else {
		res, err = s.db.ExecContext(ctx, "DELETE FROM audit_log WHERE timestamp < ?",
			before.UTC().Format(timestampLayout))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit log: %w", err)
	}
	return res.RowsAffected()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Children first so foreign keys hold.
	tables := []string{"audit_log", "absences", "medical_leaves", "assignments", "persons", "sites", "rotations"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// upsert runs an INSERT whose first argument is the (possibly NULL) id and
// returns the row's id.
func upsert(ctx context.Context, db execer, id int64, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}
	return res.LastInsertId()
}

// personFilter builds "col IN (?, ...)", or an always-true clause for no persons.
func personFilter(col string, persons []planning.PersonID) (string, []any) {
	if len(persons) == 0 {
		return "1 = 1", nil
	}
	args := make([]any, len(persons))
	for i, p := range persons {
		args[i] = int64(p)
	}
	return col + " IN (?" + strings.Repeat(", ?", len(persons)-1) + ")", args
}

type siteScan struct {
	location sql.NullString
	start    string
	end      sql.NullString
}

func (sc siteScan) into(site *planning.Site) error {
	var err error
	site.Location = sc.location.String
	if site.StartDate, err = generic.ParseDate(sc.start); err != nil {
		return err
	}
	if sc.end.Valid {
		end, err := generic.ParseDate(sc.end.String)
		if err != nil {
			return err
		}
		site.EndDate = &end
	}
	return nil
}

type rotationScan struct {
	id     sql.NullInt64
	name   sql.NullString
	work   sql.NullInt64
	rest   sql.NullInt64
	active sql.NullBool
}

func (r rotationScan) spec() *planning.RotationSpec {
	if !r.id.Valid {
		return nil
	}
	return &planning.RotationSpec{
		ID:       planning.RotationID(r.id.Int64),
		Name:     r.name.String,
		WorkDays: int(r.work.Int64),
		RestDays: int(r.rest.Int64),
		Active:   r.active.Bool,
	}
}

func nowText() string {
	return time.Now().UTC().Format(timestampLayout)
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func marshalOptional(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalOptional(s sql.NullString) map[string]any {
	if !s.Valid {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil
	}
	return m
}
