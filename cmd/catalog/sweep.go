package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xelth-com/catalogbot/internal/catalog"
)

var sweepDays int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Hard-delete products soft-deleted more than --days ago",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		days := cfg.Retention.Days
		if cmd.Flags().Changed("days") {
			days = sweepDays
		}
		if days < 0 {
			return fmt.Errorf("--days must not be negative")
		}

		logger := newLogger()
		svc := catalog.NewService(db, catalog.WithLogger(logger), catalog.WithImagesDir(cfg.ImagesDir))
		removed, err := catalog.NewSweeper(db, svc, logger).Sweep(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d products deleted more than %d days ago\n", removed, days)
		return nil
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepDays, "days", 30, "Retention in days (defaults to RETENTION_DAYS)")
}
