package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/signing"
)

func newLocal(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := NewLocal(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return b
}

func TestLocalWriteOpenRemove(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	payload := []byte("jpeg bytes")
	ref, err := b.Write(ctx, "evt1", bytes.NewReader(payload), int64(len(payload)), "image/jpeg", "beach.JPG")
	require.NoError(t, err)
	require.Equal(t, "evt1", ref.EventID())
	require.Equal(t, "image/jpeg", ref.ContentType)
	require.True(t, strings.HasSuffix(ref.Key, ".jpg"))

	ok, err := b.Exists(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)

	rc, err := b.Open(ctx, ref)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, payload, got)

	b.Remove(ctx, ref)
	ok, err = b.Exists(ctx, ref)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = b.Open(ctx, ref)
	require.True(t, errors.Is(err, model.ErrObjectNotFound))

	// Removing twice is harmless.
	b.Remove(ctx, ref)
}

func TestLocalWriteLeavesNoPartialObject(t *testing.T) {
	b := newLocal(t)
	_, err := b.Write(context.Background(), "evt1", strings.NewReader("short"), 100, "image/png", "a.png")
	require.True(t, errors.Is(err, model.ErrStorageWrite))

	entries, err := os.ReadDir(filepath.Join(b.Root(), "evt1"))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestLocalWriteHonoursCancellation(t *testing.T) {
	b := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Write(ctx, "evt1", strings.NewReader("data"), 4, "image/png", "a.png")
	require.True(t, errors.Is(err, model.ErrStorageWrite))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	_, err := b.Write(ctx, "../evil", strings.NewReader("x"), 1, "image/png", "a.png")
	require.True(t, errors.Is(err, model.ErrValidation))

	_, err = b.Open(ctx, model.ObjectRef{Key: "../../etc/passwd"})
	require.True(t, errors.Is(err, model.ErrValidation))

	_, err = b.Exists(ctx, model.ObjectRef{Key: "evt1/../../x"})
	require.Error(t, err)
}

func TestLocalMissingPolicy(t *testing.T) {
	require.Equal(t, SkipMissing, newLocal(t).MissingPolicy())
}

func TestLocalIssuer(t *testing.T) {
	ctx := context.Background()
	iss := NewLocalIssuer(signing.NewSigner([]byte("k")), "http://drop.test")

	refs := []model.ObjectRef{
		{Key: "evt1/1-aa.jpg"},
		{Key: "evt1/2-bb.mp4"},
		{Key: "evt1/3-cc.png"},
	}
	creds, err := iss.IssueBatch(ctx, refs, 0)
	require.NoError(t, err)
	require.Len(t, creds, len(refs))

	for i, cred := range creds {
		require.True(t, cred.ExpiresAt.IsZero())
		u, err := url.Parse(cred.URL)
		require.NoError(t, err)
		require.Equal(t, MediaPathPrefix+refs[i].Key, u.Path)
		require.True(t, iss.Verify("evt1", refs[i].Name(), u.Query().Get("sig")))
	}
	// Signatures are bound to their object.
	u, _ := url.Parse(creds[0].URL)
	require.False(t, iss.Verify("evt1", refs[1].Name(), u.Query().Get("sig")))

	_, err = iss.Issue(ctx, model.ObjectRef{Key: "../x"}, 0)
	require.Error(t, err)
}

func TestNewLocalRequiresRoot(t *testing.T) {
	_, err := NewLocal("", zap.NewNop())
	require.Error(t, err)
}
