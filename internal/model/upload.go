// Package model contains the records shared by storage, ingestion and export.
package model

import (
	"path"
	"time"
)

// Event is a single photo/video collection campaign. Events are immutable once
// created.
type Event struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Date        *time.Time `json:"date,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	AdminSecret string     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// UploadRecord describes one guest-submitted object. It is persisted only after
// the object behind StorageKey has been fully written.
type UploadRecord struct {
	ID           string    `json:"id"`
	EventID      string    `json:"eventId"`
	GuestName    string    `json:"guestName,omitempty"`
	OriginalName string    `json:"originalName"`
	StorageKey   string    `json:"-"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Ref returns the storage handle of the record.
func (r UploadRecord) Ref() ObjectRef {
	return ObjectRef{Key: r.StorageKey, ContentType: r.ContentType}
}

// ObjectRef is a backend-opaque handle to a stored payload. Key is a relative
// path for the local backend and a bucket key for the remote one; both have the
// form "{eventID}/{name}".
type ObjectRef struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

// EventID returns the namespace segment of the key.
func (r ObjectRef) EventID() string {
	dir := path.Dir(r.Key)
	if dir == "." {
		return ""
	}
	return dir
}

// Name returns the file segment of the key.
func (r ObjectRef) Name() string {
	return path.Base(r.Key)
}
