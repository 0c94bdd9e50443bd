package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/EventDrop/internal/export"
	"github.com/dharsanguruparan/EventDrop/internal/model"
)

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <event-id>",
		Short: "Write an event's uploads to a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			e, err := rt.store.FindEvent(ctx, args[0])
			if err != nil {
				return err
			}
			records, err := rt.store.ListUploads(ctx, e.ID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("%w: event has no uploads", model.ErrValidation)
			}
			if output == "" {
				output = export.ArchiveName(e)
			}

			tmp, err := os.CreateTemp(filepath.Dir(output), ".export-*.zip")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())
			sum, err := export.New(rt.storage.Backend, rt.log).Export(ctx, tmp, records)
			if err != nil {
				tmp.Close()
				return err
			}
			if err := tmp.Close(); err != nil {
				return err
			}
			if err := os.Rename(tmp.Name(), output); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "wrote %s (%d entries, %d skipped)\n", output, sum.Written, sum.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (defaults to {event-name}-{id}.zip)")
	return cmd
}
