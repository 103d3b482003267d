package audit

import (
	"github.com/GDiazF/calendario/planning"
)

// Entity types used in audit entries.
const (
	EntityAssignment   = "assignment"
	EntityMedicalLeave = "medical_leave"
	EntityAbsence      = "absence"
	EntityAuditLog     = "audit_log"
)

// AssignmentState is the before/after map of an assignment.
func AssignmentState(a planning.Assignment) map[string]any {
	state := map[string]any{
		"person_id":  int64(a.PersonID),
		"site_id":    int64(a.Site.ID),
		"site_name":  a.Site.Name,
		"start_date": a.StartDate.String(),
		"active":     a.Active,
	}
	if r := planning.EffectiveRotation(a); r != nil {
		state["rotation"] = r.Label()
	}
	if a.Notes != "" {
		state["notes"] = a.Notes
	}
	return state
}

func LeaveState(l planning.MedicalLeave) map[string]any {
	return map[string]any{
		"person_id":     int64(l.PersonID),
		"type":          l.Type,
		"folio":         l.Folio,
		"issue_date":    l.IssueDate.String(),
		"duration_days": l.DurationDays,
		"end_date":      l.EndDate().String(),
	}
}

func AbsenceState(a planning.Absence) map[string]any {
	return map[string]any{
		"person_id":  int64(a.PersonID),
		"type":       a.Type,
		"start_date": a.StartDate.String(),
		"end_date":   a.EndDate.String(),
	}
}
