// Package app selects the storage backend and metadata store from
// configuration. The binaries call it once at startup; everything downstream
// only sees interfaces.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/config"
	"github.com/dharsanguruparan/EventDrop/internal/database"
	"github.com/dharsanguruparan/EventDrop/internal/repository"
	"github.com/dharsanguruparan/EventDrop/internal/s3storage"
	"github.com/dharsanguruparan/EventDrop/internal/signing"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

// Storage bundles the selected backend with its credential issuer. Media is
// non-nil only for the local backend, whose capability URLs are served by
// this process.
type Storage struct {
	Backend storage.Backend
	Issuer  storage.Issuer
	Media   *storage.LocalIssuer
}

// OpenStorage builds the backend named by cfg.StorageBackend.
func OpenStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendLocal:
		local, err := storage.NewLocal(cfg.LocalRoot, log)
		if err != nil {
			return nil, err
		}
		media := storage.NewLocalIssuer(signing.NewSigner(cfg.SigningSecret), cfg.PublicURL)
		log.Info("using local storage", zap.String("root", local.Root()))
		return &Storage{Backend: local, Issuer: media, Media: media}, nil
	case config.BackendRemote:
		remote, err := s3storage.New(cfg, log)
		if err != nil {
			return nil, err
		}
		if err := remote.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		log.Info("using remote storage", zap.String("endpoint", cfg.S3Endpoint), zap.String("bucket", cfg.S3Bucket))
		return &Storage{Backend: remote, Issuer: remote}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// OpenStore builds the metadata store named by cfg.MetadataDriver. The
// returned close function releases its resources.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, func(), error) {
	switch cfg.MetadataDriver {
	case config.MetadataFile:
		store, err := repository.OpenFileStore(cfg.MetadataFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using file metadata store", zap.String("path", cfg.MetadataFile))
		return store, func() {}, nil
	case config.MetadataPostgres:
		version, err := database.Migrate(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using postgres metadata store", zap.Uint("schema_version", version))
		return repository.NewPostgresStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata driver %q", cfg.MetadataDriver)
	}
}
