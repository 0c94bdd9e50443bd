package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

// FileStore keeps all metadata in one JSON document that is rewritten on every
// change. Writers are serialized by a mutex and the document is replaced via
// rename, so concurrent requests cannot lose each other's updates and a crash
// never leaves a half-written file. It does not coordinate between processes.
type FileStore struct {
	mu   sync.RWMutex
	path string
	doc  document
}

type document struct {
	Events  map[string]storedEvent `json:"events"`
	Uploads []storedUpload         `json:"uploads"`
}

type storedEvent struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Date        *time.Time `json:"date,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	AdminSecret string     `json:"admin_secret"`
	CreatedAt   time.Time  `json:"created_at"`
}

type storedUpload struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	GuestName    string    `json:"guest_name,omitempty"`
	OriginalName string    `json:"original_name"`
	StorageKey   string    `json:"storage_key"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

// OpenFileStore loads the document at path, starting empty when it does not
// exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	s := &FileStore{path: path, doc: document{Events: map[string]storedEvent{}}}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	if s.doc.Events == nil {
		s.doc.Events = map[string]storedEvent{}
	}
	return s, nil
}

// CreateEvent inserts e.
func (s *FileStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Events[e.ID]; ok {
		return model.ErrEventExists
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	next := document{Events: make(map[string]storedEvent, len(s.doc.Events)+1), Uploads: s.doc.Uploads}
	for k, v := range s.doc.Events {
		next.Events[k] = v
	}
	next.Events[e.ID] = storedEvent{
		ID:          e.ID,
		Name:        e.Name,
		Date:        e.Date,
		Owner:       e.Owner,
		AdminSecret: e.AdminSecret,
		CreatedAt:   e.CreatedAt,
	}
	if err := s.persist(next); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	s.doc = next
	return nil
}

// FindEvent returns a copy of the event.
func (s *FileStore) FindEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.doc.Events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	return &model.Event{
		ID:          e.ID,
		Name:        e.Name,
		Date:        e.Date,
		Owner:       e.Owner,
		AdminSecret: e.AdminSecret,
		CreatedAt:   e.CreatedAt,
	}, nil
}

// CommitUploads appends records as one document rewrite. The in-memory copy is
// only replaced after the file has been written, so a failed commit leaves no
// record visible.
func (s *FileStore) CommitUploads(_ context.Context, records []model.UploadRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]struct{}, len(s.doc.Uploads)+len(records))
	for _, u := range s.doc.Uploads {
		keys[u.StorageKey] = struct{}{}
	}
	next := document{Events: s.doc.Events, Uploads: make([]storedUpload, len(s.doc.Uploads), len(s.doc.Uploads)+len(records))}
	copy(next.Uploads, s.doc.Uploads)
	for _, r := range records {
		if _, ok := s.doc.Events[r.EventID]; !ok {
			return fmt.Errorf("%w: %w: %s", model.ErrMetadataCommit, model.ErrEventNotFound, r.EventID)
		}
		if _, dup := keys[r.StorageKey]; dup {
			return fmt.Errorf("%w: storage key %s already referenced", model.ErrMetadataCommit, r.StorageKey)
		}
		keys[r.StorageKey] = struct{}{}
		next.Uploads = append(next.Uploads, storedUpload(r))
	}
	if err := s.persist(next); err != nil {
		return fmt.Errorf("%w: %w", model.ErrMetadataCommit, err)
	}
	s.doc = next
	return nil
}

// ListUploads returns the event's uploads newest-first. Records with equal
// timestamps keep reverse insertion order.
func (s *FileStore) ListUploads(_ context.Context, eventID string) ([]model.UploadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.UploadRecord
	for i := len(s.doc.Uploads) - 1; i >= 0; i-- {
		if u := s.doc.Uploads[i]; u.EventID == eventID {
			out = append(out, model.UploadRecord(u))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// persist writes doc to a temp file next to the target and renames it over the
// old document. Callers hold s.mu.
func (s *FileStore) persist(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp metadata: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace metadata: %w", err)
	}
	return nil
}
