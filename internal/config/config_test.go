package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EVENTDROP_SIGNING_SECRET", "")
	t.Setenv("EVENTDROP_STORAGE_BACKEND", "")
	t.Setenv("EVENTDROP_METADATA_DRIVER", "")
	t.Setenv("EVENTDROP_SIGNED_URL_TTL", "")
	t.Setenv("EVENTDROP_MAX_FILES", "")
	t.Setenv("EVENTDROP_CORS_ORIGINS", "")
	t.Setenv("EVENTDROP_REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendLocal, cfg.StorageBackend)
	require.Equal(t, MetadataFile, cfg.MetadataDriver)
	require.Equal(t, time.Hour, cfg.SignedURLTTL)
	require.Equal(t, defaultMaxFiles, cfg.MaxFiles)
	require.Len(t, cfg.SigningSecret, 32)
	require.False(t, cfg.AuditEnabled())
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EVENTDROP_STORAGE_BACKEND", "REMOTE")
	t.Setenv("EVENTDROP_SIGNED_URL_TTL", "120")
	t.Setenv("EVENTDROP_MAX_FILE_BYTES", "1024")
	t.Setenv("EVENTDROP_MAX_FILES", "-3")
	t.Setenv("EVENTDROP_S3_USE_SSL", "true")
	t.Setenv("EVENTDROP_SIGNING_SECRET", "s3cr3t")
	t.Setenv("EVENTDROP_PUBLIC_URL", "https://drop.example.com/")
	t.Setenv("EVENTDROP_REDIS_ADDR", "localhost:6379")
	t.Setenv("EVENTDROP_CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendRemote, cfg.StorageBackend)
	require.Equal(t, 2*time.Minute, cfg.SignedURLTTL)
	require.Equal(t, int64(1024), cfg.MaxFileSize)
	require.Equal(t, defaultMaxFiles, cfg.MaxFiles)
	require.True(t, cfg.S3UseSSL)
	require.Equal(t, []byte("s3cr3t"), cfg.SigningSecret)
	require.Equal(t, "https://drop.example.com", cfg.PublicURL)
	require.True(t, cfg.AuditEnabled())
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoadDurationTTL(t *testing.T) {
	t.Setenv("EVENTDROP_SIGNED_URL_TTL", "15m")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cfg.SignedURLTTL)
}

func TestLoadRejectsUnknownSelectors(t *testing.T) {
	t.Setenv("EVENTDROP_STORAGE_BACKEND", "ftp")
	_, err := Load()
	require.ErrorContains(t, err, "unknown storage backend")

	t.Setenv("EVENTDROP_STORAGE_BACKEND", "local")
	t.Setenv("EVENTDROP_METADATA_DRIVER", "mongo")
	_, err = Load()
	require.ErrorContains(t, err, "unknown metadata driver")
}
