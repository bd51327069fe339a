package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreboard/internal/calendar"
	"github.com/dukerupert/choreboard/internal/chore"
	"github.com/dukerupert/choreboard/internal/database"
	"github.com/dukerupert/choreboard/internal/store"
)

type dayOptions struct {
	familyID int64
	date     string
}

// newDayCommand prints a family's chores for one day, the same list GET
// /api/day returns.
func newDayCommand() *cobra.Command {
	opts := &dayOptions{}

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Print the chore list for a family and day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			family, err := store.NewFamilyStore(db).GetByID(opts.familyID)
			if err != nil {
				return err
			}
			if family == nil {
				return fmt.Errorf("family %d not found", opts.familyID)
			}

			day := calendar.Today(family.Location())
			if opts.date != "" {
				if day, err = calendar.Parse(opts.date); err != nil {
					return err
				}
			}

			svc := chore.NewService(store.NewChoreStore(db), slog.Default())
			items, err := svc.Day(family.ID, day)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s, %s\n", family.Name, day.Time().Format("Monday Jan 2, 2006"))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHORE\tPOINTS\tSTATUS\tAPPROVAL")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", it.Title, it.Points, it.Status, it.ApprovalStatus)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int64Var(&opts.familyID, "family", 0, "family id")
	cmd.Flags().StringVar(&opts.date, "date", "", "day to list (YYYY-MM-DD), defaults to today in the family timezone")
	cmd.MarkFlagRequired("family")
	return cmd
}
