package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/GDiazF/calendario/api"
	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/planning"
	"github.com/GDiazF/calendario/store/sqlite"
)

// stateSymbols is the one-letter legend of the month grid.
var stateSymbols = map[planning.StateKind]string{
	planning.StateOnSite:       "T",
	planning.StateResting:      "D",
	planning.StateAvailable:    ".",
	planning.StateMedicalLeave: "L",
	planning.StateVacation:     "V",
	planning.StatePermit:       "P",
	planning.StateOtherAbsence: "A",
}

func monthCmd() *cobra.Command {
	var (
		year, month int
		persons     []int64
		summary     bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Print a month calendar",
		Long:  "Print one letter per person and day: T on site, D resting, . available, L medical leave, V vacation, P permit, A other absence. Overlapping states show the highest priority.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today := generic.Today()
			if year == 0 {
				year = today.Year()
			}
			if month == 0 {
				month = int(today.Month())
			}

			store, err := sqlite.New(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			h := api.NewHandler(store, nil, logger)
			h.Workers = cfg.Calendar.Workers

			raw := make([]string, len(persons))
			for i, id := range persons {
				raw[i] = strconv.FormatInt(id, 10)
			}
			ctx := cmd.Context()
			people, err := h.ResolvePersons(ctx, raw)
			if err != nil {
				return err
			}
			set, err := h.ComputeMonth(ctx, people, year, time.Month(month))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(set)
			case summary:
				return printSummary(out, people, set)
			default:
				return printGrid(out, year, time.Month(month), people, set)
			}
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (default: current)")
	cmd.Flags().Int64SliceVar(&persons, "person", nil, "Person ID, repeatable (default: all active persons)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print per-person totals instead of the grid")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw day state set as JSON")
	return cmd
}

func printGrid(out io.Writer, year int, month time.Month, people []planning.Person, set planning.DayStateSet) error {
	days := generic.DaysInMonth(year, month)
	tw := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)

	header := make([]string, days)
	for d := range header {
		header[d] = fmt.Sprintf("%02d", d+1)
	}
	fmt.Fprintf(tw, "%s\t%s\n", generic.StartOfMonth(year, month).Time.Format("2006-01"), strings.Join(header, " "))

	for _, p := range people {
		row := make([]string, days)
		for d := range row {
			row[d] = " " + symbolOf(set[p.ID][d+1])
		}
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, strings.Join(row, " "))
	}
	return tw.Flush()
}

// symbolOf picks the highest-priority entry; ties keep the first.
func symbolOf(entries []planning.StateEntry) string {
	if len(entries) == 0 {
		return "?"
	}
	top := entries[0]
	for _, e := range entries[1:] {
		if e.Priority > top.Priority {
			top = e
		}
	}
	if s, ok := stateSymbols[top.Kind]; ok {
		return s
	}
	return "?"
}

func printSummary(out io.Writer, people []planning.Person, set planning.DayStateSet) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PERSON\tON SITE\tRESTING\tAVAILABLE\tLEAVE\tVACATION\tPERMIT\tOTHER\tON SITE %\t")
	for _, p := range people {
		s := planning.Summarize(p.ID, set[p.ID])
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t\n",
			p.Name, s.OnSite, s.Resting, s.Available, s.MedicalLeave, s.Vacation, s.Permit, s.OtherAbsence,
			s.OnSiteShare.Shift(2).StringFixed(0))
	}
	return tw.Flush()
}
