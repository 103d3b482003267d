package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <roster.yaml>",
		Short: "Check a YAML roster against the site window rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadRosterFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			errs := ds.CheckAssignments()
			for _, err := range errs {
				fmt.Fprintf(out, "  ✗ %v\n", err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d assignments rejected", len(errs), len(ds.Assignments))
			}

			fmt.Fprintf(out, "✓ %d assignments accepted\n", len(ds.Assignments))
			return nil
		},
	}
}
