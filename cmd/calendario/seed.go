package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GDiazF/calendario/api"
	"github.com/GDiazF/calendario/factory"
	"github.com/GDiazF/calendario/store/sqlite"
)

func seedCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed <roster.yaml>",
		Short: "Import a YAML roster",
		Long:  "Import rotations, sites, persons, assignments, leaves and absences. Every assignment is validated before anything is written.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadRosterFile(args[0])
			if err != nil {
				return err
			}
			if err := errors.Join(ds.CheckAssignments()...); err != nil {
				return fmt.Errorf("roster rejected:\n%w", err)
			}

			store, err := sqlite.New(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if reset {
				if err := store.Reset(ctx); err != nil {
					return err
				}
			}
			if err := api.ImportDataset(ctx, store, ds); err != nil {
				return err
			}

			logger.Info("roster imported",
				zap.String("file", args[0]),
				zap.String("database", cfg.Database.Path),
				zap.Bool("reset", reset),
				zap.Int("persons", len(ds.Persons)),
				zap.Int("assignments", len(ds.Assignments)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rotations, %d sites, %d persons, %d assignments, %d leaves, %d absences\n",
				len(ds.Rotations), len(ds.Sites), len(ds.Persons), len(ds.Assignments), len(ds.Leaves), len(ds.Absences))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all data before importing")
	return cmd
}

func loadRosterFile(path string) (*factory.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := factory.NewRotationFactory().LoadRoster(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
