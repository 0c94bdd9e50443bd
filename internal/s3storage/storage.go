// Package s3storage implements the storage backend and credential issuer on
// an S3-compatible object store through the MinIO client.
package s3storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/config"
	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

// S3 caps presigned URLs at seven days.
const maxPresignTTL = 7 * 24 * time.Hour

// Storage wraps MinIO/S3 interactions for guest media. All objects of all
// events share one bucket; keys carry the event namespace.
type Storage struct {
	client     *minio.Client
	bucket     string
	region     string
	defaultTTL time.Duration
	http       *http.Client
	log        *zap.Logger
	now        func() time.Time
}

var (
	_ storage.Backend = (*Storage)(nil)
	_ storage.Issuer  = (*Storage)(nil)
)

// New creates a MinIO client from the Config. The region is passed explicitly
// so presigning never needs a bucket location round trip.
func New(cfg *config.Config, log *zap.Logger) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:     client,
		bucket:     cfg.S3Bucket,
		region:     cfg.S3Region,
		defaultTTL: cfg.SignedURLTTL,
		http:       &http.Client{},
		log:        log.Named("storage.remote"),
		now:        time.Now,
	}, nil
}

// EnsureBucket makes sure the media bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
		s.log.Info("created bucket", zap.String("bucket", s.bucket))
	}
	return nil
}

// Write uploads body as a single PutObject with the declared size; the object
// becomes visible only once the store has accepted all of it.
func (s *Storage) Write(ctx context.Context, eventID string, body io.Reader, size int64, contentType, originalName string) (model.ObjectRef, error) {
	key, err := storage.NewKey(eventID, originalName, s.now())
	if err != nil {
		return model.ObjectRef{}, err
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, body, size, opts); err != nil {
		return model.ObjectRef{}, fmt.Errorf("%w: put %s: %w", model.ErrStorageWrite, key, err)
	}
	return model.ObjectRef{Key: key, ContentType: contentType}, nil
}

// Open issues a fresh credential for ref and streams the object over HTTP.
// The response body is returned unread.
func (s *Storage) Open(ctx context.Context, ref model.ObjectRef) (io.ReadCloser, error) {
	cred, err := s.Issue(ctx, ref, s.defaultTTL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cred.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %w", model.ErrStorageRead, ref.Key, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", model.ErrStorageRead, ref.Key, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", model.ErrObjectNotFound, ref.Key)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: fetch %s: unexpected status %s", model.ErrStorageRead, ref.Key, resp.Status)
	}
}

// Remove deletes the object, logging failures.
func (s *Storage) Remove(ctx context.Context, ref model.ObjectRef) {
	if err := storage.CheckKey(ref.Key); err != nil {
		s.log.Warn("refusing to remove invalid key", zap.String("key", ref.Key), zap.Error(err))
		return
	}
	if err := s.client.RemoveObject(ctx, s.bucket, ref.Key, minio.RemoveObjectOptions{}); err != nil {
		s.log.Warn("remove object failed", zap.String("key", ref.Key), zap.Error(err))
	}
}

// Exists stats the object.
func (s *Storage) Exists(ctx context.Context, ref model.ObjectRef) (bool, error) {
	if err := storage.CheckKey(ref.Key); err != nil {
		return false, err
	}
	_, err := s.client.StatObject(ctx, s.bucket, ref.Key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %s: %w", model.ErrStorageRead, ref.Key, err)
	}
	return true, nil
}

// MissingPolicy fails the export: a listed object that the store cannot serve
// means the archive would be silently incomplete.
func (s *Storage) MissingPolicy() storage.MissingPolicy {
	return storage.FailOnMissing
}

// Issue returns a presigned GET URL valid for ttl. A non-positive ttl falls
// back to the configured default.
func (s *Storage) Issue(ctx context.Context, ref model.ObjectRef, ttl time.Duration) (storage.Credential, error) {
	if err := storage.CheckKey(ref.Key); err != nil {
		return storage.Credential{}, err
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > maxPresignTTL {
		ttl = maxPresignTTL
	}
	issued := s.now()
	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref.Key, ttl, url.Values{})
	if err != nil {
		return storage.Credential{}, fmt.Errorf("%w: presign %s: %w", model.ErrStorageRead, ref.Key, err)
	}
	return storage.Credential{URL: u.String(), ExpiresAt: issued.Add(ttl)}, nil
}

// IssueBatch presigns every ref in input order.
func (s *Storage) IssueBatch(ctx context.Context, refs []model.ObjectRef, ttl time.Duration) ([]storage.Credential, error) {
	return storage.IssueAll(ctx, s, refs, ttl)
}
