// Package export streams an event's uploads as a single zip archive.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/metrics"
	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

// Summary counts what ended up in an archive.
type Summary struct {
	Written int
	Skipped int
}

// Exporter assembles archives from a storage backend.
type Exporter struct {
	backend storage.Backend
	log     *zap.Logger
}

// New returns an Exporter reading from backend.
func New(backend storage.Backend, log *zap.Logger) *Exporter {
	return &Exporter{backend: backend, log: log.Named("export")}
}

// Export writes records, in order, as a zip to w. Each object is opened only
// after the previous entry has been fully copied, so memory use does not grow
// with the archive. Objects missing from the backend are skipped or abort the
// export depending on the backend's MissingPolicy. On error the archive is
// left unterminated.
func (e *Exporter) Export(ctx context.Context, w io.Writer, records []model.UploadRecord) (Summary, error) {
	var sum Summary
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			metrics.RecordExport(false)
			return sum, err
		}
		written, err := e.writeEntry(ctx, zw, i, rec)
		if err != nil {
			metrics.RecordExportEntry("failed")
			metrics.RecordExport(false)
			return sum, err
		}
		if written {
			sum.Written++
			metrics.RecordExportEntry("written")
		} else {
			sum.Skipped++
			metrics.RecordExportEntry("skipped")
		}
	}
	if err := zw.Close(); err != nil {
		metrics.RecordExport(false)
		return sum, fmt.Errorf("finish archive: %w", err)
	}
	metrics.RecordExport(true)
	return sum, nil
}

func (e *Exporter) writeEntry(ctx context.Context, zw *zip.Writer, i int, rec model.UploadRecord) (bool, error) {
	rc, err := e.backend.Open(ctx, rec.Ref())
	if err != nil {
		if errors.Is(err, model.ErrObjectNotFound) && e.backend.MissingPolicy() == storage.SkipMissing {
			e.log.Warn("skipping missing object",
				zap.String("event_id", rec.EventID),
				zap.String("key", rec.StorageKey),
				zap.String("upload_id", rec.ID))
			return false, nil
		}
		return false, fmt.Errorf("open %s: %w", rec.StorageKey, err)
	}
	defer rc.Close()

	hdr := &zip.FileHeader{
		Name:     EntryName(i, rec),
		Method:   zip.Deflate,
		Modified: rec.CreatedAt,
	}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return false, fmt.Errorf("create entry %s: %w", hdr.Name, err)
	}
	if _, err := io.Copy(fw, &contextReader{ctx: ctx, r: rc}); err != nil {
		return false, fmt.Errorf("copy %s: %w", rec.StorageKey, err)
	}
	return true, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
