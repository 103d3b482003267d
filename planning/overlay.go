/*
overlay.go - Per-day state merge

PURPOSE:
  Combines the base assignment states of one person on one day with the
  medical leaves and absences covering that day into a single ordered list.

PRIORITIES (lower renders first, every applicable entry is kept):
  1  Available, OnSite, Resting (including "descanso" absences)
  2  Vacation, Permit, OtherAbsence
  3  MedicalLeave

  Available is a placeholder: it appears only when nothing else applies.
  Entries of equal priority keep production order: assignment states,
  then leaves, then absences.

SEE ALSO:
  - calendar.go: Calls DayStates for every person and day of a month
*/
package planning

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/GDiazF/calendario/generic"
)

// =============================================================================
// STATE ENTRIES
// =============================================================================

type StateKind string

const (
	StateAvailable    StateKind = "available"
	StateOnSite       StateKind = "on_site"
	StateResting      StateKind = "resting"
	StateVacation     StateKind = "vacation"
	StatePermit       StateKind = "permit"
	StateOtherAbsence StateKind = "other_absence"
	StateMedicalLeave StateKind = "medical_leave"
)

const (
	PriorityBase    = 1
	PriorityAbsence = 2
	PriorityLeave   = 3
)

// SiteDetail identifies the assignment behind an OnSite or Resting entry.
type SiteDetail struct {
	AssignmentID    AssignmentID `json:"assignment_id"`
	SiteID          SiteID       `json:"site_id"`
	SiteName        string       `json:"site_name"`
	Rotation        string       `json:"rotation,omitempty"`
	AssignmentStart generic.Date `json:"assignment_start"`
}

// IntervalDetail describes the leave or absence behind an entry.
type IntervalDetail struct {
	ID    int64        `json:"id"`
	Type  string       `json:"type"`
	Start generic.Date `json:"start"`
	End   generic.Date `json:"end"`
}

// StateEntry is one status of a person on a day.
type StateEntry struct {
	Kind     StateKind       `json:"kind"`
	Priority int             `json:"priority"`
	Site     *SiteDetail     `json:"site,omitempty"`
	Interval *IntervalDetail `json:"interval,omitempty"`
}

// BaseState is the classification of a day by one assignment.
type BaseState struct {
	Kind DayKind
	Site SiteDetail
}

// =============================================================================
// ABSENCE CLASSIFICATION
// =============================================================================

// ClassifyAbsence maps a free-text absence type to a state kind and
// priority. Matching ignores case and accents.
func ClassifyAbsence(absenceType string) (StateKind, int) {
	folded := foldAccents(strings.ToLower(absenceType))
	switch {
	case strings.Contains(folded, "vacacion"):
		return StateVacation, PriorityAbsence
	case strings.Contains(folded, "descanso"):
		return StateResting, PriorityBase
	case strings.Contains(folded, "permiso"):
		return StatePermit, PriorityAbsence
	default:
		return StateOtherAbsence, PriorityAbsence
	}
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// =============================================================================
// OVERLAY ENGINE
// =============================================================================

// OverlayEngine merges day states. It holds no state.
type OverlayEngine struct{}

// DayStates builds the ordered entry list for one person on day. Leaves and
// absences that do not cover day are ignored, so callers may pass the
// person's full month.
func (OverlayEngine) DayStates(day generic.Date, base []BaseState, leaves []MedicalLeave, absences []Absence) []StateEntry {
	entries := make([]StateEntry, 0, len(base)+1)

	for _, b := range base {
		site := b.Site
		kind := StateOnSite
		if b.Kind == Rest {
			kind = StateResting
		}
		entries = append(entries, StateEntry{Kind: kind, Priority: PriorityBase, Site: &site})
	}

	for _, l := range leaves {
		if !l.Period().Contains(day) {
			continue
		}
		entries = append(entries, StateEntry{
			Kind:     StateMedicalLeave,
			Priority: PriorityLeave,
			Interval: &IntervalDetail{ID: int64(l.ID), Type: l.Type, Start: l.IssueDate, End: l.EndDate()},
		})
	}

	for _, a := range absences {
		if !a.Period().Contains(day) {
			continue
		}
		kind, priority := ClassifyAbsence(a.Type)
		entries = append(entries, StateEntry{
			Kind:     kind,
			Priority: priority,
			Interval: &IntervalDetail{ID: int64(a.ID), Type: a.Type, Start: a.StartDate, End: a.EndDate},
		})
	}

	if len(entries) == 0 {
		return []StateEntry{{Kind: StateAvailable, Priority: PriorityBase}}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority < entries[j].Priority
	})
	return entries
}
