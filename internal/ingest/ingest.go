// Package ingest accepts guest upload batches. A batch is validated up front,
// written to the storage backend with bounded concurrency, and committed to
// the metadata store as one unit; if any step fails every object already
// written is removed again.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/EventDrop/internal/metrics"
	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

// File is one guest-submitted payload. Body is consumed exactly once.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Result reports an accepted batch.
type Result struct {
	Accepted int                  `json:"accepted"`
	Records  []model.UploadRecord `json:"uploads"`
}

// Store is the slice of the metadata store ingestion needs.
type Store interface {
	FindEvent(ctx context.Context, id string) (*model.Event, error)
	CommitUploads(ctx context.Context, records []model.UploadRecord) error
}

// AuditPublisher schedules a post-commit storage check for a batch.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, eventID string, refs []model.ObjectRef) error
}

// Limits bound a single batch.
type Limits struct {
	MaxFiles         int
	MaxFileSize      int64
	WriteConcurrency int
}

// Service runs upload transactions.
type Service struct {
	backend storage.Backend
	store   Store
	limits  Limits
	audit   AuditPublisher
	log     *zap.Logger
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithAudit publishes an audit task after every committed batch.
func WithAudit(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New wires a Service.
func New(backend storage.Backend, store Store, limits Limits, log *zap.Logger, opts ...Option) *Service {
	if limits.WriteConcurrency <= 0 {
		limits.WriteConcurrency = 1
	}
	s := &Service{
		backend: backend,
		store:   store,
		limits:  limits,
		log:     log.Named("ingest"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest stores files for eventID and commits their metadata. Either every
// file is stored and listed afterwards, or none is.
func (s *Service) Ingest(ctx context.Context, eventID, guestName string, files []File) (Result, error) {
	if err := s.validate(files); err != nil {
		metrics.RecordUploadBatch("rejected", len(files), 0)
		return Result{}, err
	}
	if _, err := s.store.FindEvent(ctx, eventID); err != nil {
		metrics.RecordUploadBatch("rejected", len(files), 0)
		return Result{}, err
	}
	log := s.log.With(zap.String("event_id", eventID), zap.Int("files", len(files)))

	undo := &saga{}
	refs := make([]model.ObjectRef, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limits.WriteConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			ref, err := s.backend.Write(gctx, eventID, f.Body, f.Size, f.ContentType, f.Name)
			if err != nil {
				return fmt.Errorf("store %q: %w", f.Name, err)
			}
			refs[i] = ref
			undo.push(ref.Key, s.removeObject(ref))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.compensate(ctx, log, undo)
		metrics.RecordUploadBatch("failed", len(files), 0)
		return Result{}, err
	}

	now := s.now().UTC()
	guestName = strings.TrimSpace(guestName)
	records := make([]model.UploadRecord, len(files))
	var total int64
	for i, f := range files {
		records[i] = model.UploadRecord{
			ID:           uuid.NewString(),
			EventID:      eventID,
			GuestName:    guestName,
			OriginalName: f.Name,
			StorageKey:   refs[i].Key,
			ContentType:  f.ContentType,
			Size:         f.Size,
			CreatedAt:    now,
		}
		total += f.Size
	}

	if err := s.store.CommitUploads(ctx, records); err != nil {
		s.compensate(ctx, log, undo)
		metrics.RecordUploadBatch("failed", len(files), 0)
		if !errors.Is(err, model.ErrMetadataCommit) {
			err = fmt.Errorf("%w: %w", model.ErrMetadataCommit, err)
		}
		return Result{}, err
	}
	metrics.RecordUploadBatch("accepted", len(files), total)
	log.Info("batch accepted", zap.Int64("bytes", total))

	if s.audit != nil {
		if err := s.audit.PublishAudit(ctx, eventID, refs); err != nil {
			log.Warn("enqueue audit failed", zap.Error(err))
		}
	}
	return Result{Accepted: len(records), Records: records}, nil
}

func (s *Service) validate(files []File) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: no files in batch", model.ErrValidation)
	}
	if s.limits.MaxFiles > 0 && len(files) > s.limits.MaxFiles {
		return fmt.Errorf("%w: %d files exceeds the limit of %d", model.ErrValidation, len(files), s.limits.MaxFiles)
	}
	for _, f := range files {
		switch {
		case f.Body == nil || f.Size <= 0:
			return fmt.Errorf("%w: %q is empty", model.ErrValidation, f.Name)
		case s.limits.MaxFileSize > 0 && f.Size > s.limits.MaxFileSize:
			return fmt.Errorf("%w: %q is %d bytes, limit is %d", model.ErrValidation, f.Name, f.Size, s.limits.MaxFileSize)
		case !AllowedContentType(f.ContentType):
			return fmt.Errorf("%w: %q has unsupported type %q", model.ErrValidation, f.Name, f.ContentType)
		}
	}
	return nil
}

// AllowedContentType accepts image and video media types.
func AllowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}

// removeObject undoes one write and confirms the object is gone.
func (s *Service) removeObject(ref model.ObjectRef) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		s.backend.Remove(ctx, ref)
		exists, err := s.backend.Exists(ctx, ref)
		if err != nil {
			return err
		}
		if exists {
			return errors.New("object still present after remove")
		}
		return nil
	}
}

// compensate removes everything the batch wrote. It runs detached from ctx so
// a client that went away does not leave orphans behind.
func (s *Service) compensate(ctx context.Context, log *zap.Logger, undo *saga) {
	n := undo.len()
	if n == 0 {
		return
	}
	log.Warn("rolling back batch", zap.Int("objects", n))
	undo.rollback(context.WithoutCancel(ctx), func(key string, err error) {
		metrics.RecordCompensation(err == nil)
		if err != nil {
			log.Error("compensation failed", zap.String("key", key), zap.Error(err))
		}
	})
}
