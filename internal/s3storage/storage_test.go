package s3storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dharsanguruparan/EventDrop/internal/config"
	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

const testBucket = "media"

type putRecord struct {
	key         string
	contentType string
	length      int64
}

// fakeS3 answers the handful of path-style S3 calls the backend makes.
type fakeS3 struct {
	mu         sync.Mutex
	objects    map[string][]byte
	puts       []putRecord
	signedGets int
	failGets   bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		// Plain HTTP uploads are chunk-signed, so only the decoded length is
		// meaningful here.
		_, _ = io.Copy(io.Discard, r.Body)
		length := r.ContentLength
		if v := r.Header.Get("X-Amz-Decoded-Content-Length"); v != "" {
			length, _ = strconv.ParseInt(v, 10, 64)
		}
		f.puts = append(f.puts, putRecord{key: key, contentType: r.Header.Get("Content-Type"), length: length})
		f.objects[key] = []byte{}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if r.URL.Query().Get("X-Amz-Signature") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		f.signedGets++
		if f.failGets {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code></Error>`)
			return
		}
		_, _ = w.Write(data)
	case http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) seed(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3) failAllGets() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGets = true
}

func (f *fakeS3) snapshot() ([]putRecord, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]putRecord(nil), f.puts...), f.signedGets
}

func newTestStorage(t *testing.T) (*Storage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	s, err := New(&config.Config{
		S3Endpoint:   u.Host,
		S3AccessKey:  "access",
		S3SecretKey:  "secret",
		S3Bucket:     testBucket,
		S3Region:     "us-east-1",
		SignedURLTTL: time.Hour,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, fake
}

func TestWriteUploadsWithDeclaredSize(t *testing.T) {
	s, fake := newTestStorage(t)
	payload := []byte("mp4 payload")

	ref, err := s.Write(context.Background(), "evt1", bytes.NewReader(payload), int64(len(payload)), "video/mp4", "clip.MP4")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref.Key, "evt1/"))
	require.True(t, strings.HasSuffix(ref.Key, ".mp4"))

	puts, _ := fake.snapshot()
	require.Len(t, puts, 1)
	assert.Equal(t, ref.Key, puts[0].key)
	assert.Equal(t, "video/mp4", puts[0].contentType)
	assert.Equal(t, int64(len(payload)), puts[0].length)
}

func TestWriteRejectsInvalidEventID(t *testing.T) {
	s, fake := newTestStorage(t)
	_, err := s.Write(context.Background(), "../evt", strings.NewReader("x"), 1, "image/png", "a.png")
	require.ErrorIs(t, err, model.ErrValidation)
	puts, _ := fake.snapshot()
	require.Empty(t, puts)
}

func TestWriteCancelled(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Write(ctx, "evt1", strings.NewReader("x"), 1, "image/png", "a.png")
	require.ErrorIs(t, err, model.ErrStorageWrite)
}

func TestOpenFetchesThroughFreshCredential(t *testing.T) {
	s, fake := newTestStorage(t)
	fake.seed("evt1/1-aa.jpg", []byte("jpeg bytes"))
	ref := model.ObjectRef{Key: "evt1/1-aa.jpg", ContentType: "image/jpeg"}

	for i := 0; i < 2; i++ {
		rc, err := s.Open(context.Background(), ref)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.Equal(t, "jpeg bytes", string(data))
	}
	_, gets := fake.snapshot()
	require.Equal(t, 2, gets)
}

func TestOpenMissingAndFailing(t *testing.T) {
	s, fake := newTestStorage(t)
	ref := model.ObjectRef{Key: "evt1/1-aa.jpg"}

	_, err := s.Open(context.Background(), ref)
	require.ErrorIs(t, err, model.ErrObjectNotFound)

	fake.seed(ref.Key, []byte("x"))
	fake.failAllGets()
	_, err = s.Open(context.Background(), ref)
	require.ErrorIs(t, err, model.ErrStorageRead)
	require.NotErrorIs(t, err, model.ErrObjectNotFound)
}

func TestExistsAndRemove(t *testing.T) {
	s, fake := newTestStorage(t)
	ctx := context.Background()
	ref := model.ObjectRef{Key: "evt1/1-aa.jpg"}

	ok, err := s.Exists(ctx, ref)
	require.NoError(t, err)
	require.False(t, ok)

	fake.seed(ref.Key, []byte("x"))
	ok, err = s.Exists(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)

	s.Remove(ctx, ref)
	ok, err = s.Exists(ctx, ref)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Exists(ctx, model.ObjectRef{Key: "../etc/passwd"})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestIssueBatchPreservesOrderAndTTL(t *testing.T) {
	s, _ := newTestStorage(t)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	refs := []model.ObjectRef{{Key: "evt1/3-cc.png"}, {Key: "evt1/1-aa.jpg"}, {Key: "evt1/2-bb.mp4"}}
	creds, err := s.IssueBatch(context.Background(), refs, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, creds, len(refs))
	for i, c := range creds {
		u, err := url.Parse(c.URL)
		require.NoError(t, err)
		assert.Equal(t, "/"+testBucket+"/"+refs[i].Key, u.Path)
		assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
		assert.Equal(t, fixed.Add(10*time.Minute), c.ExpiresAt)
	}

	cred, err := s.Issue(context.Background(), refs[0], 0)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour), cred.ExpiresAt)
}

func TestMissingPolicyFails(t *testing.T) {
	s, _ := newTestStorage(t)
	require.Equal(t, storage.FailOnMissing, s.MissingPolicy())
}
