package planning

import (
	"github.com/shopspring/decimal"
)

// MonthSummary counts one person's days by state kind. A day counts once
// per kind it holds, so two on-site entries on the same day are one on-site
// day while an on-site and a leave entry count towards both kinds.
type MonthSummary struct {
	PersonID     PersonID
	Days         int
	OnSite       int
	Resting      int
	Available    int
	MedicalLeave int
	Vacation     int
	Permit       int
	OtherAbsence int

	// OnSiteShare is OnSite / Days rounded to two places.
	OnSiteShare decimal.Decimal
}

// Summarize counts the days of a computed month per state kind.
func Summarize(id PersonID, month PersonMonth) MonthSummary {
	s := MonthSummary{PersonID: id, Days: len(month)}
	for _, entries := range month {
		seen := make(map[StateKind]bool, len(entries))
		for _, e := range entries {
			if seen[e.Kind] {
				continue
			}
			seen[e.Kind] = true
			switch e.Kind {
			case StateOnSite:
				s.OnSite++
			case StateResting:
				s.Resting++
			case StateAvailable:
				s.Available++
			case StateMedicalLeave:
				s.MedicalLeave++
			case StateVacation:
				s.Vacation++
			case StatePermit:
				s.Permit++
			case StateOtherAbsence:
				s.OtherAbsence++
			}
		}
	}
	s.OnSiteShare = decimal.Zero
	if s.Days > 0 {
		s.OnSiteShare = decimal.NewFromInt(int64(s.OnSite)).
			DivRound(decimal.NewFromInt(int64(s.Days)), 2)
	}
	return s
}

// SummarizeAll summarises every person in set, in the order of ids.
func SummarizeAll(ids []PersonID, set DayStateSet) []MonthSummary {
	out := make([]MonthSummary, 0, len(ids))
	for _, id := range uniquePersons(ids) {
		if month, ok := set[id]; ok {
			out = append(out, Summarize(id, month))
		}
	}
	return out
}
