package main

import (
	"errors"
	"fmt"

	"github.com/pbaille/tripplan/internal/checklist"
	"github.com/pbaille/tripplan/internal/domain"
	"github.com/spf13/cobra"
)

func reconciler() (*checklist.Reconciler, func(), error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}
	return checklist.NewReconciler(s, logger), func() { s.Close() }, nil
}

func checklistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checklist [plan-version-id]",
		Short: "Show the booking checklist of a plan version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.GetPlanVersion(cmd.Context(), args[0]); err != nil {
				return err
			}
			items, err := s.ListChecklistItems(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("Checklist is empty. Use 'tripplan seed' to fill it.")
				return nil
			}

			for _, it := range items {
				fmt.Println(formatItem(it))
			}
			total, paid := checklist.Totals(items)
			fmt.Printf("\nTotal %s, paid %s, outstanding %s\n",
				total.StringFixed(2), paid.StringFixed(2), total.Sub(paid).StringFixed(2))
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [plan-version-id]",
		Short: "Add checklist items for bookings and costs not tracked yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, done, err := reconciler()
			if err != nil {
				return err
			}
			defer done()

			report, err := rec.SeedPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Drafted %d, inserted %d\n", report.Drafted, report.Inserted)
			return nil
		},
	}
}

func duplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates [plan-version-id]",
		Short: "List cost items that duplicate an accommodation or transport booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, done, err := reconciler()
			if err != nil {
				return err
			}
			defer done()

			c, err := rec.Duplicates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(c.Candidates) == 0 {
				fmt.Println("No duplicates found.")
				return nil
			}

			fmt.Printf("Safe to remove (%d, %s):\n", len(c.Safe), c.SafeTotal.StringFixed(2))
			for _, it := range c.Safe {
				fmt.Println("  " + formatItem(it))
			}
			if len(c.Unsafe) > 0 {
				fmt.Printf("Edited, review by hand (%d):\n", len(c.Unsafe))
				for _, it := range c.Unsafe {
					fmt.Println("  " + formatItem(it))
				}
			}
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup [plan-version-id]",
		Short: "Remove duplicate cost items nobody has edited",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, done, err := reconciler()
			if err != nil {
				return err
			}
			defer done()

			report, err := rec.Cleanup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d items (%s)\n", report.Deleted, report.DeletedTotal.StringFixed(2))
			for _, it := range report.Unsafe {
				fmt.Printf("  kept %s\n", formatItem(it))
			}
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	var confirm string

	cmd := &cobra.Command{
		Use:   "reset [plan-version-id]",
		Short: "Delete the whole checklist, manual items and edits included, and seed again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, done, err := reconciler()
			if err != nil {
				return err
			}
			defer done()

			report, err := rec.Reset(cmd.Context(), args[0], confirm)
			if errors.Is(err, checklist.ErrConfirmationRequired) {
				return fmt.Errorf("%w (pass --confirm %s)", err, checklist.ResetConfirmation)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d, inserted %d\n", report.Removed, report.Inserted)
			return nil
		},
	}

	cmd.Flags().StringVar(&confirm, "confirm", "", "must be "+checklist.ResetConfirmation)
	return cmd
}

func formatItem(it domain.ChecklistItem) string {
	return fmt.Sprintf("%-10s  %-14s  %-30s  %10s  paid %10s",
		it.BookingStatus, truncate(it.Category, 14), truncate(it.Name, 30),
		it.TotalCost.StringFixed(2), it.AmountPaid.StringFixed(2))
}
