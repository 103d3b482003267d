/*
handlers.go - HTTP API handlers for the rotation calendar

PURPOSE:
  Exposes the calendar engine and the roster write path via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  planning (validation, month computation) and store/sqlite (persistence).

ENDPOINTS:
  Roster:
    GET    /api/rotations                 List rotations (?all=true for inactive)
    POST   /api/rotations                 Create rotation from JSON or "NxM" name
    GET    /api/sites                     List sites
    GET    /api/sites/{id}                Site with default rotation
    GET    /api/persons                   List persons
    GET    /api/persons/{id}/assignments  Assignment history of a person

  Assignments:
    POST   /api/assignments               Assign (or edit when id is set)
    POST   /api/assignments/remove        Deactivate one site or all sites
    GET    /api/assignments/{id}          Details: bounded end, next change

  Leaves and absences:
    POST   /api/leaves                    Register a medical leave
    POST   /api/absences                  Register an absence

  Calendar:
    GET    /api/calendar                  ?year&month&person=1&person=2
    GET    /api/calendar/summary          Per-person month totals

  Audit:
    GET    /api/audit-logs                ?limit&action&entity&actor&entity_id
    POST   /api/audit-logs/purge          Delete entries past retention

WRITE PATH (POST /api/assignments):
  1. Load person, site and override rotation (404 when missing)
  2. Validate with planning.AssignmentResolver (422 on rejection)
  3. Compute supersession against the person's assignments
  4. Apply in one transaction
  5. Record an audit entry (assign or edit)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, invalid dates, invalid cycles
  - 404: Person, site, rotation or assignment not found
  - 409: Duplicate (unique constraint)
  - 422: Assignment rejected by the site window rules
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The actor recorded in audit entries is whatever the
  client sends.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/GDiazF/calendario/audit"
	"github.com/GDiazF/calendario/factory"
	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
	"github.com/GDiazF/calendario/store/sqlite"
)

// errBadParam marks malformed path or query parameters.
var errBadParam = errors.New("invalid parameter")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Recorder  *audit.Recorder
	Calendar  *planning.CalendarService
	Resolver  *planning.AssignmentResolver
	Rotations *factory.RotationFactory
	Metrics   *Metrics
	Logger    *zap.Logger

	// Workers shards month computations.
	Workers int

	// RetentionDays is the default for POST /api/audit-logs/purge.
	RetentionDays int

	// Today is overridable for tests.
	Today func() generic.Date

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler over store. A nil recorder writes audit
// entries to store only.
func NewHandler(store *sqlite.Store, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = audit.NewRecorder(store, audit.WithLogger(logger))
	}
	return &Handler{
		Store:     store,
		Recorder:  recorder,
		Calendar:  planning.NewCalendarService(logger.Named("calendar")),
		Resolver:  planning.NewAssignmentResolver(),
		Rotations: factory.NewRotationFactory(),
		Logger:    logger,
		Workers:   1,
		Today:     generic.Today,
	}
}

func (h *Handler) today() generic.Date {
	if h.Today == nil {
		return generic.Today()
	}
	return h.Today()
}

// =============================================================================
// ROTATION HANDLERS
// =============================================================================

// ListRotations returns active rotations, or all with ?all=true.
func (h *Handler) ListRotations(w http.ResponseWriter, r *http.Request) {
	rotations, err := h.Store.ListRotations(r.Context(), !wantAll(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rotations", err)
		return
	}

	dtos := make([]RotationDTO, len(rotations))
	for i := range rotations {
		dtos[i] = *rotationDTO(&rotations[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRotation accepts factory.RotationJSON; work/rest days may come
// from a "NxM" name.
func (h *Handler) CreateRotation(w http.ResponseWriter, r *http.Request) {
	var req factory.RotationJSON
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	spec, err := h.Rotations.FromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid rotation", err)
		return
	}

	id, err := h.Store.SaveRotation(r.Context(), *spec)
	if err != nil {
		writeStoreError(w, "Failed to save rotation", err)
		return
	}
	spec.ID = id

	writeJSON(w, http.StatusCreated, rotationDTO(spec))
}

// =============================================================================
// SITE AND PERSON HANDLERS
// =============================================================================

func (h *Handler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.Store.ListSites(r.Context(), !wantAll(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sites", err)
		return
	}

	today := h.today()
	dtos := make([]SiteDTO, len(sites))
	for i, s := range sites {
		dtos[i] = siteDTO(s, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetSite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, "Invalid site ID", err)
		return
	}

	site, err := h.Store.GetSite(r.Context(), planning.SiteID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get site", err)
		return
	}
	if site == nil {
		writeError(w, http.StatusNotFound, "Site not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, siteDTO(*site, h.today()))
}

func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.Store.ListPersons(r.Context(), !wantAll(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list persons", err)
		return
	}

	dtos := make([]PersonDTO, len(persons))
	for i, p := range persons {
		dtos[i] = personDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPersonAssignments returns every assignment of a person, inactive
// ones included, oldest first.
func (h *Handler) ListPersonAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, "Invalid person ID", err)
		return
	}

	if _, err := h.requirePerson(ctx, planning.PersonID(id)); err != nil {
		writeDomainError(w, "Failed to get person", err)
		return
	}

	assignments, err := h.Store.AssignmentsByPerson(ctx, planning.PersonID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}

	today := h.today()
	dtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		dtos[i] = assignmentDTO(a, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// CreateAssignment validates and stores an assignment. See WRITE PATH above.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAssignmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := generic.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}

	person, err := h.requirePerson(ctx, planning.PersonID(req.PersonID))
	if err != nil {
		writeDomainError(w, "Failed to get person", err)
		return
	}
	site, err := h.Store.GetSite(ctx, planning.SiteID(req.SiteID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get site", err)
		return
	}
	if site == nil {
		writeError(w, http.StatusNotFound, "Site not found", nil)
		return
	}

	candidate := planning.Assignment{
		ID:        planning.AssignmentID(req.ID),
		PersonID:  person.ID,
		Site:      *site,
		StartDate: start,
		Active:    true,
		Notes:     req.Notes,
	}

	if req.RotationID != nil {
		rotation, err := h.Store.GetRotation(ctx, planning.RotationID(*req.RotationID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get rotation", err)
			return
		}
		if rotation == nil {
			writeError(w, http.StatusNotFound, "Rotation not found", nil)
			return
		}
		candidate.RotationOverride = rotation
	}

	// Edits must target an existing assignment of the same person
	var previous *planning.Assignment
	if req.ID != 0 {
		previous, err = h.Store.GetAssignment(ctx, candidate.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get assignment", err)
			return
		}
		if previous == nil {
			writeError(w, http.StatusNotFound, "Assignment not found", nil)
			return
		}
		if previous.PersonID != person.ID {
			writeError(w, http.StatusBadRequest, "Assignment belongs to another person", nil)
			return
		}
	}

	accepted, err := h.Resolver.Validate(candidate)
	if err != nil {
		h.Metrics.ObserveValidation(validationOutcome(err))
		writeDomainError(w, "Assignment rejected", err)
		return
	}
	h.Metrics.ObserveValidation(OutcomeAccepted)

	existing, err := h.Store.AssignmentsByPerson(ctx, person.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load assignments", err)
		return
	}
	sup := h.Resolver.Supersedes(candidate, existing)
	if previous == nil && sup.UpdateInPlace != nil {
		previous = sup.UpdateInPlace
	}

	id, err := h.Store.ApplyAssignment(ctx, candidate, sup)
	if err != nil {
		writeStoreError(w, "Failed to save assignment", err)
		return
	}
	stored, err := h.Store.GetAssignment(ctx, id)
	if err != nil || stored == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload assignment", err)
		return
	}

	deactivated := make([]int64, len(sup.Deactivate))
	for i, d := range sup.Deactivate {
		deactivated[i] = int64(d)
	}

	change := audit.Change{
		Actor:       req.Actor,
		IPAddress:   r.RemoteAddr,
		Action:      generic.AuditAssign,
		EntityType:  audit.EntityAssignment,
		EntityID:    int64(id),
		Description: fmt.Sprintf("%s assigned to %s from %s", person.Name, site.Name, start),
		After:       audit.AssignmentState(*stored),
		Details: map[string]any{
			"deactivated":     deactivated,
			"work_days_total": accepted.WorkDaysTotal,
		},
	}
	if previous != nil {
		change.Action = generic.AuditEdit
		change.Description = fmt.Sprintf("%s assignment to %s updated", person.Name, site.Name)
		change.Before = audit.AssignmentState(*previous)
	}
	h.Recorder.RecordChange(ctx, change)

	status := http.StatusCreated
	if previous != nil {
		status = http.StatusOK
	}
	writeJSON(w, status, CreateAssignmentResponse{
		Assignment:    h.assignmentDetail(*stored),
		Created:       previous == nil,
		Deactivated:   deactivated,
		WorkDaysTotal: accepted.WorkDaysTotal,
	})
}

// RemoveAssignment deactivates the person's assignment at one site, or at
// every site when site_id is omitted.
func (h *Handler) RemoveAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RemoveAssignmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	person, err := h.requirePerson(ctx, planning.PersonID(req.PersonID))
	if err != nil {
		writeDomainError(w, "Failed to get person", err)
		return
	}

	var siteID *planning.SiteID
	if req.SiteID != nil {
		id := planning.SiteID(*req.SiteID)
		siteID = &id
	}

	removed, err := h.Store.RemoveAssignments(ctx, person.ID, siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to remove assignments", err)
		return
	}
	if len(removed) == 0 {
		writeError(w, http.StatusNotFound, "No active assignment to remove", nil)
		return
	}

	today := h.today()
	dtos := make([]AssignmentDTO, len(removed))
	for i, a := range removed {
		after := a
		after.Active = false
		h.Recorder.RecordChange(ctx, audit.Change{
			Actor:       req.Actor,
			IPAddress:   r.RemoteAddr,
			Action:      generic.AuditRemove,
			EntityType:  audit.EntityAssignment,
			EntityID:    int64(a.ID),
			Description: fmt.Sprintf("%s removed from %s", person.Name, a.Site.Name),
			Before:      audit.AssignmentState(a),
			After:       audit.AssignmentState(after),
		})
		dtos[i] = assignmentDTO(after, today)
	}

	writeJSON(w, http.StatusOK, RemoveAssignmentResponse{Removed: len(removed), Assignments: dtos})
}

// GetAssignment returns an assignment with its derived window facts.
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, "Invalid assignment ID", err)
		return
	}

	a, err := h.Store.GetAssignment(r.Context(), planning.AssignmentID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get assignment", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Assignment not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, h.assignmentDetail(*a))
}

func (h *Handler) assignmentDetail(a planning.Assignment) AssignmentDetailDTO {
	today := h.today()
	dto := AssignmentDetailDTO{AssignmentDTO: assignmentDTO(a, today)}

	win, err := planning.NewAssignmentWindow(a)
	if err != nil {
		h.Logger.Warn("stored assignment has an invalid rotation",
			zap.Int64("assignment_id", int64(a.ID)), zap.Error(err))
		return dto
	}

	if end, ok := win.BoundedEnd(); ok {
		dto.BoundedEnd = end.Ptr()
	}
	if n, ok := win.CompleteCycles(); ok {
		dto.CompleteCycles = &n
	}
	if next, ok := win.NextRotationChange(today); ok {
		dto.NextRotationChange = next.Ptr()
	}
	dto.DurationDays = win.DurationDays(today)
	dto.ActiveToday = win.ActiveOn(today)
	dto.WorkShare = win.WorkShare()
	return dto
}

func validationOutcome(err error) string {
	switch {
	case errors.Is(err, planning.ErrOutsideSiteWindow):
		return OutcomeOutsideWindow
	case errors.Is(err, planning.ErrRotationExceedsSiteWindow):
		return OutcomeExceedsWindow
	default:
		return OutcomeInvalidCycle
	}
}

// =============================================================================
// LEAVE AND ABSENCE HANDLERS
// =============================================================================

func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateLeaveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	issue, err := generic.ParseDate(req.IssueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid issue_date", err)
		return
	}
	person, err := h.requirePerson(ctx, planning.PersonID(req.PersonID))
	if err != nil {
		writeDomainError(w, "Failed to get person", err)
		return
	}

	leave := planning.MedicalLeave{
		PersonID:     person.ID,
		Type:         req.Type,
		Folio:        req.Folio,
		IssueDate:    issue,
		DurationDays: req.DurationDays,
		Notes:        req.Notes,
	}
	if err := leave.Validate(); err != nil {
		writeDomainError(w, "Invalid medical leave", err)
		return
	}

	id, err := h.Store.SaveMedicalLeave(ctx, leave)
	if err != nil {
		writeStoreError(w, "Failed to save medical leave", err)
		return
	}
	leave.ID = id

	h.Recorder.RecordChange(ctx, audit.Change{
		Actor:       req.Actor,
		IPAddress:   r.RemoteAddr,
		Action:      generic.AuditCreate,
		EntityType:  audit.EntityMedicalLeave,
		EntityID:    int64(id),
		Description: fmt.Sprintf("Medical leave for %s, %s", person.Name, leave.Period()),
		After:       audit.LeaveState(leave),
	})

	writeJSON(w, http.StatusCreated, LeaveDTO{
		ID:           int64(leave.ID),
		PersonID:     int64(leave.PersonID),
		Type:         leave.Type,
		Folio:        leave.Folio,
		IssueDate:    leave.IssueDate,
		DurationDays: leave.DurationDays,
		EndDate:      leave.EndDate(),
		Notes:        leave.Notes,
	})
}

func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAbsenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		writeError(w, http.StatusBadRequest, "type is required", nil)
		return
	}

	start, err := generic.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := generic.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	person, err := h.requirePerson(ctx, planning.PersonID(req.PersonID))
	if err != nil {
		writeDomainError(w, "Failed to get person", err)
		return
	}

	absence := planning.Absence{
		PersonID:  person.ID,
		Type:      req.Type,
		StartDate: start,
		EndDate:   end,
		Notes:     req.Notes,
	}
	if err := absence.Validate(); err != nil {
		writeDomainError(w, "Invalid absence", err)
		return
	}

	id, err := h.Store.SaveAbsence(ctx, absence)
	if err != nil {
		writeStoreError(w, "Failed to save absence", err)
		return
	}
	absence.ID = id

	h.Recorder.RecordChange(ctx, audit.Change{
		Actor:       req.Actor,
		IPAddress:   r.RemoteAddr,
		Action:      generic.AuditCreate,
		EntityType:  audit.EntityAbsence,
		EntityID:    int64(id),
		Description: fmt.Sprintf("%s for %s, %s", absence.Type, person.Name, absence.Period()),
		After:       audit.AbsenceState(absence),
	})

	kind, _ := planning.ClassifyAbsence(absence.Type)
	writeJSON(w, http.StatusCreated, AbsenceDTO{
		ID:        int64(absence.ID),
		PersonID:  int64(absence.PersonID),
		Type:      absence.Type,
		Kind:      kind,
		StartDate: absence.StartDate,
		EndDate:   absence.EndDate,
		Notes:     absence.Notes,
	})
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GetCalendar returns the month grid. Responses carry an ETag; a matching
// If-None-Match gets 304 without a body.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, month, err := parseMonth(r, h.today())
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	persons, err := h.ResolvePersons(ctx, r.URL.Query()["person"])
	if err != nil {
		writeDomainError(w, "Invalid persons", err)
		return
	}

	set, err := h.ComputeMonth(ctx, persons, year, month)
	if err != nil {
		writeDomainError(w, "Failed to compute calendar", err)
		return
	}

	period := generic.MonthPeriod(year, month)
	resp := CalendarResponse{
		Year:    year,
		Month:   int(month),
		Days:    period.Len(),
		Persons: make([]PersonCalendarDTO, len(persons)),
	}
	for i, p := range persons {
		days := make([]DayDTO, period.Len())
		for d := range days {
			days[d] = DayDTO{
				Day:    d + 1,
				Date:   period.Start.AddDays(d),
				States: set[p.ID][d+1],
			}
		}
		resp.Persons[i] = PersonCalendarDTO{PersonID: int64(p.ID), Name: p.Name, Days: days}
	}

	writeCachedJSON(w, r, resp)
}

// GetCalendarSummary returns per-person totals for the month.
func (h *Handler) GetCalendarSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, month, err := parseMonth(r, h.today())
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	persons, err := h.ResolvePersons(ctx, r.URL.Query()["person"])
	if err != nil {
		writeDomainError(w, "Invalid persons", err)
		return
	}

	set, err := h.ComputeMonth(ctx, persons, year, month)
	if err != nil {
		writeDomainError(w, "Failed to compute calendar", err)
		return
	}

	resp := SummaryResponse{Year: year, Month: int(month), Persons: make([]SummaryDTO, len(persons))}
	for i, p := range persons {
		s := planning.Summarize(p.ID, set[p.ID])
		resp.Persons[i] = SummaryDTO{
			PersonID:     int64(p.ID),
			Name:         p.Name,
			Days:         s.Days,
			OnSite:       s.OnSite,
			Resting:      s.Resting,
			Available:    s.Available,
			MedicalLeave: s.MedicalLeave,
			Vacation:     s.Vacation,
			Permit:       s.Permit,
			OtherAbsence: s.OtherAbsence,
			OnSiteShare:  s.OnSiteShare,
		}
	}

	writeCachedJSON(w, r, resp)
}

// ComputeMonth loads the month's snapshots for persons and runs the engine.
func (h *Handler) ComputeMonth(ctx context.Context, persons []planning.Person, year int, month time.Month) (planning.DayStateSet, error) {
	req := planning.MonthRequest{Year: year, Month: month}
	if year <= 0 || month < time.January || month > time.December {
		return nil, &planning.InvalidRequestError{Year: year, Month: month}
	}
	for _, p := range persons {
		req.PersonIDs = append(req.PersonIDs, p.ID)
	}

	// An empty ID list means "everybody" to the store
	if len(req.PersonIDs) > 0 {
		period := req.Period()
		var err error
		if req.Assignments, err = h.Store.ActiveAssignments(ctx, req.PersonIDs, period.End); err != nil {
			return nil, err
		}
		if req.Leaves, err = h.Store.LeavesOverlapping(ctx, req.PersonIDs, period); err != nil {
			return nil, err
		}
		if req.Absences, err = h.Store.AbsencesOverlapping(ctx, req.PersonIDs, period); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	set, err := h.Calendar.ComputeMonthParallel(ctx, req, h.Workers)
	if err != nil {
		return nil, err
	}
	h.Metrics.ObserveMonth(len(req.PersonIDs), time.Since(started))
	return set, nil
}

// ResolvePersons parses person IDs in order, dropping duplicates. No
// values means every active person.
func (h *Handler) ResolvePersons(ctx context.Context, raw []string) ([]planning.Person, error) {
	if len(raw) == 0 {
		return h.Store.ListPersons(ctx, true)
	}

	seen := make(map[planning.PersonID]bool, len(raw))
	persons := make([]planning.Person, 0, len(raw))
	for _, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: person %q", errBadParam, v)
		}
		id := planning.PersonID(n)
		if seen[id] {
			continue
		}
		seen[id] = true

		p, err := h.requirePerson(ctx, id)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *p)
	}
	return persons, nil
}

func (h *Handler) requirePerson(ctx context.Context, id planning.PersonID) (*planning.Person, error) {
	p, err := h.Store.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &generic.NotFoundError{Entity: "person", ID: int64(id)}
	}
	return p, nil
}

// parseMonth reads ?year and ?month, defaulting to today's month. Range
// checks are left to the engine.
func parseMonth(r *http.Request, today generic.Date) (int, time.Month, error) {
	q := r.URL.Query()
	year, month := today.Year(), today.Month()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: year %q", errBadParam, v)
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: month %q", errBadParam, v)
		}
		month = time.Month(n)
	}
	return year, month, nil
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListAuditLogs returns entries newest first.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := generic.AuditFilter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity"),
		Actor:      q.Get("actor"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		filter.Limit = n
	}
	if v := q.Get("entity_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid entity_id", err)
			return
		}
		filter.EntityID = &n
	}

	entries, err := h.Store.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}

	dtos := make([]AuditLogDTO, len(entries))
	for i, e := range entries {
		dtos[i] = auditLogDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PurgeAuditLogs deletes entries older than the retention period. A body
// may override retention_days; 0 deletes everything.
func (h *Handler) PurgeAuditLogs(w http.ResponseWriter, r *http.Request) {
	var req PurgeAuditRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	days := h.RetentionDays
	if req.RetentionDays != nil {
		if *req.RetentionDays < 0 {
			writeError(w, http.StatusBadRequest, "retention_days must not be negative", nil)
			return
		}
		days = *req.RetentionDays
	}

	cutoff := retentionCutoff(days, time.Now())
	n, err := h.Store.Purge(r.Context(), cutoff)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to purge audit log", err)
		return
	}
	h.Metrics.ObservePurge(n)
	h.Logger.Info("audit log purged", zap.Int64("deleted", n), zap.Int("retention_days", days))

	resp := PurgeAuditResponse{Deleted: n}
	if !cutoff.IsZero() {
		resp.Before = &cutoff
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeCachedJSON tags the body with an xxh3 ETag and answers 304 when the
// client already has it.
func writeCachedJSON(w http.ResponseWriter, r *http.Request, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode response", err)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == etag || candidate == "*" || candidate == "W/"+etag {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case planning.IsRejection(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case planning.IsClientError(err), errors.Is(err, errBadParam):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// writeStoreError maps unique-constraint violations to 409.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		writeError(w, http.StatusConflict, message, err)
		return
	}
	writeError(w, http.StatusInternalServerError, message, err)
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", errBadParam, name, raw)
	}
	return id, nil
}

func wantAll(r *http.Request) bool {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	return all
}
