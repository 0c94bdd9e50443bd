package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

// LocalBackend implements Backend on the local filesystem. Objects live at
// {root}/{eventID}/{name}; event directories are created on demand.
type LocalBackend struct {
	root string
	log  *zap.Logger
	now  func() time.Time
}

// NewLocal creates the root directory if needed and returns a LocalBackend.
func NewLocal(root string, log *zap.Logger) (*LocalBackend, error) {
	if root == "" {
		return nil, errors.New("local storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create root %s: %w", abs, err)
	}
	return &LocalBackend{root: abs, log: log.Named("storage.local"), now: time.Now}, nil
}

// Root returns the absolute directory objects are stored under.
func (b *LocalBackend) Root() string {
	return b.root
}

func (b *LocalBackend) fullPath(key string) (string, error) {
	if err := CheckKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(b.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, b.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: key %q escapes storage root", model.ErrValidation, key)
	}
	return p, nil
}

// Write copies body into a temp file inside the event directory and renames it
// into place, so readers never observe a partial object.
func (b *LocalBackend) Write(ctx context.Context, eventID string, body io.Reader, size int64, contentType, originalName string) (model.ObjectRef, error) {
	key, err := NewKey(eventID, originalName, b.now())
	if err != nil {
		return model.ObjectRef{}, err
	}
	path, err := b.fullPath(key)
	if err != nil {
		return model.ObjectRef{}, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return model.ObjectRef{}, fmt.Errorf("%w: create dir for %s: %w", model.ErrStorageWrite, key, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*.tmp")
	if err != nil {
		return model.ObjectRef{}, fmt.Errorf("%w: create temp for %s: %w", model.ErrStorageWrite, key, err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (model.ObjectRef, error) {
		tmp.Close()
		os.Remove(tmpName)
		return model.ObjectRef{}, fmt.Errorf("%w: write %s: %w", model.ErrStorageWrite, key, err)
	}

	written, err := io.Copy(tmp, contextReader{ctx: ctx, r: body})
	if err != nil {
		return fail(err)
	}
	if size >= 0 && written != size {
		return fail(fmt.Errorf("short write: %d of %d bytes", written, size))
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return model.ObjectRef{}, fmt.Errorf("%w: close temp for %s: %w", model.ErrStorageWrite, key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return model.ObjectRef{}, fmt.Errorf("%w: rename temp to %s: %w", model.ErrStorageWrite, key, err)
	}
	return model.ObjectRef{Key: key, ContentType: contentType}, nil
}

// Open opens the object file for reading.
func (b *LocalBackend) Open(_ context.Context, ref model.ObjectRef) (io.ReadCloser, error) {
	path, err := b.fullPath(ref.Key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrObjectNotFound, ref.Key)
		}
		return nil, fmt.Errorf("%w: open %s: %w", model.ErrStorageRead, ref.Key, err)
	}
	return f, nil
}

// Remove unlinks the object file. A missing file is not an error.
func (b *LocalBackend) Remove(_ context.Context, ref model.ObjectRef) {
	path, err := b.fullPath(ref.Key)
	if err != nil {
		b.log.Warn("refusing to remove invalid key", zap.String("key", ref.Key), zap.Error(err))
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		b.log.Warn("remove object failed", zap.String("key", ref.Key), zap.Error(err))
	}
}

// Exists checks if the object file is present.
func (b *LocalBackend) Exists(_ context.Context, ref model.ObjectRef) (bool, error) {
	path, err := b.fullPath(ref.Key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %s: %w", model.ErrStorageRead, ref.Key, err)
	}
	return true, nil
}

// MissingPolicy skips files that vanished from disk; metadata stays the source
// of truth for what was uploaded.
func (b *LocalBackend) MissingPolicy() MissingPolicy {
	return SkipMissing
}

// contextReader stops a copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
