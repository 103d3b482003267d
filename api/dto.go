/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  planning types so the engine can evolve without breaking clients.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  Calendar dates are "YYYY-MM-DD" strings in requests and generic.Date
  (same format) in responses. Audit timestamps are RFC3339.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rotation.go: RotationJSON (request body of POST /api/rotations)
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
)

// =============================================================================
// ROSTER
// =============================================================================

type RotationDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	WorkDays    int    `json:"work_days"`
	RestDays    int    `json:"rest_days"`
	CycleLength int    `json:"cycle_length"`
	Active      bool   `json:"active"`
}

func rotationDTO(r *planning.RotationSpec) *RotationDTO {
	if r == nil {
		return nil
	}
	return &RotationDTO{
		ID:          int64(r.ID),
		Name:        r.Label(),
		WorkDays:    r.WorkDays,
		RestDays:    r.RestDays,
		CycleLength: r.CycleLength(),
		Active:      r.Active,
	}
}

type SiteDTO struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Location        string        `json:"location,omitempty"`
	StartDate       generic.Date  `json:"start_date"`
	EndDate         *generic.Date `json:"end_date"`
	DefaultRotation *RotationDTO  `json:"default_rotation"`
	DurationDays    int           `json:"duration_days,omitempty"`
	ActiveToday     bool          `json:"active_today"`
	Active          bool          `json:"active"`
}

func siteDTO(s planning.Site, today generic.Date) SiteDTO {
	return SiteDTO{
		ID:              int64(s.ID),
		Name:            s.Name,
		Location:        s.Location,
		StartDate:       s.StartDate,
		EndDate:         s.EndDate,
		DefaultRotation: rotationDTO(s.DefaultRotation),
		DurationDays:    s.DurationDays(),
		ActiveToday:     s.ActiveOn(today),
		Active:          s.Active,
	}
}

type PersonDTO struct {
	ID     int64  `json:"id"`
	RUT    string `json:"rut"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Active bool   `json:"active"`
}

func personDTO(p planning.Person) PersonDTO {
	return PersonDTO{ID: int64(p.ID), RUT: p.RUT, Name: p.Name, Email: p.Email, Active: p.Active}
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// CreateAssignmentRequest creates an assignment, or edits one when ID is set.
type CreateAssignmentRequest struct {
	ID         int64  `json:"id,omitempty"`
	PersonID   int64  `json:"person_id"`
	SiteID     int64  `json:"site_id"`
	StartDate  string `json:"start_date"`
	RotationID *int64 `json:"rotation_id,omitempty"` // overrides the site default
	Notes      string `json:"notes,omitempty"`
	Actor      string `json:"actor,omitempty"`
}

// RemoveAssignmentRequest deactivates one site assignment, or all of the
// person's assignments when SiteID is omitted.
type RemoveAssignmentRequest struct {
	PersonID int64  `json:"person_id"`
	SiteID   *int64 `json:"site_id,omitempty"`
	Actor    string `json:"actor,omitempty"`
}

type AssignmentDTO struct {
	ID                int64        `json:"id"`
	PersonID          int64        `json:"person_id"`
	Site              SiteDTO      `json:"site"`
	StartDate         generic.Date `json:"start_date"`
	RotationOverride  *RotationDTO `json:"rotation_override"`
	EffectiveRotation *RotationDTO `json:"effective_rotation"`
	Active            bool         `json:"active"`
	Notes             string       `json:"notes,omitempty"`
}

func assignmentDTO(a planning.Assignment, today generic.Date) AssignmentDTO {
	return AssignmentDTO{
		ID:                int64(a.ID),
		PersonID:          int64(a.PersonID),
		Site:              siteDTO(a.Site, today),
		StartDate:         a.StartDate,
		RotationOverride:  rotationDTO(a.RotationOverride),
		EffectiveRotation: rotationDTO(planning.EffectiveRotation(a)),
		Active:            a.Active,
		Notes:             a.Notes,
	}
}

// AssignmentDetailDTO adds the derived window facts shown on the detail page.
type AssignmentDetailDTO struct {
	AssignmentDTO
	BoundedEnd         *generic.Date   `json:"bounded_end"` // null: open-ended
	CompleteCycles     *int            `json:"complete_cycles,omitempty"`
	DurationDays       int             `json:"duration_days"`
	NextRotationChange *generic.Date   `json:"next_rotation_change"`
	ActiveToday        bool            `json:"active_today"`
	WorkShare          decimal.Decimal `json:"work_share"`
}

// CreateAssignmentResponse reports what the write path did.
type CreateAssignmentResponse struct {
	Assignment    AssignmentDetailDTO `json:"assignment"`
	Created       bool                `json:"created"`
	Deactivated   []int64             `json:"deactivated"`
	WorkDaysTotal int                 `json:"work_days_total"`
}

type RemoveAssignmentResponse struct {
	Removed     int             `json:"removed"`
	Assignments []AssignmentDTO `json:"assignments"`
}

// =============================================================================
// LEAVES AND ABSENCES
// =============================================================================

type CreateLeaveRequest struct {
	PersonID     int64  `json:"person_id"`
	Type         string `json:"type"`
	Folio        string `json:"folio,omitempty"`
	IssueDate    string `json:"issue_date"`
	DurationDays int    `json:"duration_days"`
	Notes        string `json:"notes,omitempty"`
	Actor        string `json:"actor,omitempty"`
}

type LeaveDTO struct {
	ID           int64        `json:"id"`
	PersonID     int64        `json:"person_id"`
	Type         string       `json:"type"`
	Folio        string       `json:"folio,omitempty"`
	IssueDate    generic.Date `json:"issue_date"`
	DurationDays int          `json:"duration_days"`
	EndDate      generic.Date `json:"end_date"`
	Notes        string       `json:"notes,omitempty"`
}

type CreateAbsenceRequest struct {
	PersonID  int64  `json:"person_id"`
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Notes     string `json:"notes,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

type AbsenceDTO struct {
	ID        int64              `json:"id"`
	PersonID  int64              `json:"person_id"`
	Type      string             `json:"type"`
	Kind      planning.StateKind `json:"kind"`
	StartDate generic.Date       `json:"start_date"`
	EndDate   generic.Date       `json:"end_date"`
	Notes     string             `json:"notes,omitempty"`
}

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarResponse is one month for a batch of persons. Every person has
// every day of the month; each day has at least one state.
type CalendarResponse struct {
	Year    int                 `json:"year"`
	Month   int                 `json:"month"`
	Days    int                 `json:"days"`
	Persons []PersonCalendarDTO `json:"persons"`
}

type PersonCalendarDTO struct {
	PersonID int64    `json:"person_id"`
	Name     string   `json:"name"`
	Days     []DayDTO `json:"days"`
}

type DayDTO struct {
	Day    int                   `json:"day"`
	Date   generic.Date          `json:"date"`
	States []planning.StateEntry `json:"states"`
}

type SummaryDTO struct {
	PersonID     int64           `json:"person_id"`
	Name         string          `json:"name"`
	Days         int             `json:"days"`
	OnSite       int             `json:"on_site"`
	Resting      int             `json:"resting"`
	Available    int             `json:"available"`
	MedicalLeave int             `json:"medical_leave"`
	Vacation     int             `json:"vacation"`
	Permit       int             `json:"permit"`
	OtherAbsence int             `json:"other_absence"`
	OnSiteShare  decimal.Decimal `json:"on_site_share"`
}

type SummaryResponse struct {
	Year    int          `json:"year"`
	Month   int          `json:"month"`
	Persons []SummaryDTO `json:"persons"`
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditLogDTO struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Actor       string         `json:"actor,omitempty"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    int64          `json:"entity_id"`
	Description string         `json:"description"`
	Before      map[string]any `json:"before,omitempty"`
	After       map[string]any `json:"after,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

func auditLogDTO(e generic.AuditEntry) AuditLogDTO {
	return AuditLogDTO{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Actor:       e.Actor,
		Action:      string(e.Action),
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Description: e.Description,
		Before:      e.Before,
		After:       e.After,
		IPAddress:   e.IPAddress,
		Details:     e.Details,
	}
}

// PurgeAuditRequest overrides the configured retention for one purge.
type PurgeAuditRequest struct {
	RetentionDays *int `json:"retention_days,omitempty"`
}

type PurgeAuditResponse struct {
	Deleted int64      `json:"deleted"`
	Before  *time.Time `json:"before"` // null: everything was purged
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Month       string `json:"month"` // YYYY-MM worth opening first
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is returned for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
