package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/EventDrop/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var guest string
	cmd := &cobra.Command{
		Use:   "ingest <event-id> <file>...",
		Short: "Upload local files to an event as one batch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			files := make([]ingest.File, 0, len(args)-1)
			for _, path := range args[1:] {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				info, err := f.Stat()
				if err != nil {
					return err
				}
				ct, err := detectContentType(f)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				files = append(files, ingest.File{Name: filepath.Base(path), ContentType: ct, Size: info.Size(), Body: f})
			}

			svc := ingest.New(rt.storage.Backend, rt.store, ingest.Limits{
				MaxFiles:         rt.cfg.MaxFiles,
				MaxFileSize:      rt.cfg.MaxFileSize,
				WriteConcurrency: rt.cfg.WriteConcurrency,
			}, rt.log)
			res, err := svc.Ingest(ctx, args[0], guest, files)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "accepted %d file(s)\n", res.Accepted)
			return nil
		},
	}
	cmd.Flags().StringVar(&guest, "guest", "", "Guest name recorded on every file")
	return cmd
}

// detectContentType prefers the extension and falls back to sniffing.
func detectContentType(f *os.File) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(f.Name())); ct != "" {
		return ct, nil
	}
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
