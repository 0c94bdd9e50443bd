package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/export"
	"github.com/dharsanguruparan/EventDrop/internal/ingest"
	"github.com/dharsanguruparan/EventDrop/internal/logging"
	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

// Parts beyond this stay on disk while the batch is validated.
const multipartMemory = 32 << 20

type galleryItem struct {
	model.UploadRecord
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type galleryResponse struct {
	Event   *model.Event  `json:"event"`
	Uploads []galleryItem `json:"uploads"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	limit := int64(s.cfg.MaxFiles)*s.cfg.MaxFileSize + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", model.ErrValidation, tooLarge.Limit))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: expecting multipart form: %v", model.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, r, fmt.Errorf("%w: open part %q: %v", model.ErrValidation, fh.Filename, err))
			return
		}
		defer f.Close()
		ct, err := partContentType(fh, f)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("%w: read part %q: %v", model.ErrValidation, fh.Filename, err))
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, ContentType: ct, Size: fh.Size, Body: f})
	}

	res, err := s.ingest.Ingest(r.Context(), eventID, r.FormValue("guestName"), files)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// partContentType trusts the declared media type unless it is missing or
// generic, in which case the first 512 bytes are sniffed.
func partContentType(fh *multipart.FileHeader, f multipart.File) (string, error) {
	ct := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if ct != "" && ct != "application/octet-stream" {
		return ct, nil
	}
	sniff := make([]byte, 512)
	n, err := io.ReadFull(f, sniff)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(sniff[:n]), nil
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	e := eventFrom(r.Context())
	records, err := s.store.ListUploads(r.Context(), e.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	refs := make([]model.ObjectRef, len(records))
	for i, rec := range records {
		refs[i] = rec.Ref()
	}
	creds, err := s.issuer.IssueBatch(r.Context(), refs, s.cfg.SignedURLTTL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	items := make([]galleryItem, len(records))
	for i, rec := range records {
		items[i] = galleryItem{UploadRecord: rec, URL: creds[i].URL}
		if !creds[i].ExpiresAt.IsZero() {
			exp := creds[i].ExpiresAt
			items[i].ExpiresAt = &exp
		}
	}
	respondJSON(w, http.StatusOK, galleryResponse{Event: e, Uploads: items})
}

// handleExport streams the event archive. Once any archive bytes have reached
// the client a failure can only be signalled by aborting the connection.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e := eventFrom(r.Context())
	log := logging.FromContext(r.Context(), s.log).With(zap.String("event_id", e.ID))
	records, err := s.store.ListUploads(r.Context(), e.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(records) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: event has no uploads", model.ErrValidation))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ArchiveName(e)))
	w.Header().Set("Cache-Control", "no-store")
	cw := &countingWriter{w: w}
	sum, err := s.exporter.Export(r.Context(), cw, records)
	if err != nil {
		if cw.n == 0 {
			w.Header().Del("Content-Disposition")
			s.respondError(w, r, err)
			return
		}
		log.Error("export aborted", zap.Int64("bytes", cw.n), zap.Error(err))
		panic(http.ErrAbortHandler)
	}
	log.Info("export finished", zap.Int("written", sum.Written), zap.Int("skipped", sum.Skipped), zap.Int64("bytes", cw.n))
}

// handleMedia serves one object behind a local capability URL. The signature
// proves the URL was issued; admin access is still checked on every request.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	eventID, name := chi.URLParam(r, "eventID"), chi.URLParam(r, "name")
	ref := model.ObjectRef{Key: eventID + "/" + name}
	if err := storage.CheckKey(ref.Key); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !s.media.Verify(eventID, name, r.URL.Query().Get("sig")) {
		s.respondError(w, r, fmt.Errorf("%w: bad signature", model.ErrForbidden))
		return
	}
	e, err := s.store.FindEvent(r.Context(), eventID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.auth.Authorize(r, e); err != nil {
		s.respondError(w, r, err)
		return
	}
	rc, err := s.backend.Open(r.Context(), ref)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Cache-Control", "private, no-store")
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(r.Context(), s.log).Warn("media copy failed", zap.String("key", ref.Key), zap.Error(err))
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
