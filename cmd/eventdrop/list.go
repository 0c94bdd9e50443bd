package main

import (
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <event-id>",
		Short: "List an event's uploads, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.store.FindEvent(ctx, args[0]); err != nil {
				return err
			}
			records, err := rt.store.ListUploads(ctx, args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "CREATED\tGUEST\tNAME\tTYPE\tSIZE\tKEY\n")
			for _, r := range records {
				printf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", r.CreatedAt.Format(time.RFC3339), r.GuestName, r.OriginalName, r.ContentType, r.Size, r.StorageKey)
			}
			return tw.Flush()
		},
	}
}
