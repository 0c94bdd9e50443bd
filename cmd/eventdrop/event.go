package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/EventDrop/internal/events"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage events",
	}
	cmd.AddCommand(newEventCreateCmd())
	return cmd
}

func newEventCreateCmd() *cobra.Command {
	var (
		name  string
		date  string
		owner string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event and print its ID and admin secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var when *time.Time
			if date != "" {
				t, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				when = &t
			}
			rt, err := loadRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			e, err := events.New(rt.store, rt.log).Create(ctx, events.CreateParams{Name: name, Date: when, Owner: owner})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printf(out, "id:           %s\n", e.ID)
			printf(out, "admin secret: %s\n", e.AdminSecret)
			printf(out, "upload url:   %s/api/v1/events/%s/uploads\n", rt.cfg.PublicURL, e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Event name")
	cmd.Flags().StringVar(&date, "date", "", "Event date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner contact")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
