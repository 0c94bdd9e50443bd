// Package storage defines the backend contract for guest media and the local
// filesystem implementation. The remote implementation lives in s3storage.
//
// Ingestion and export code paths only ever talk to Backend and Issuer; the
// concrete variant is chosen once at startup.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

// MissingPolicy tells the archive exporter what to do when an object listed
// in metadata is absent from the backend.
type MissingPolicy int

const (
	// SkipMissing drops the entry and keeps exporting.
	SkipMissing MissingPolicy = iota
	// FailOnMissing aborts the whole export.
	FailOnMissing
)

// Backend stores binary payloads under event-namespaced keys.
type Backend interface {
	// Write persists body and returns its handle once the write is complete.
	// A handle is never returned for a partially written object.
	Write(ctx context.Context, eventID string, body io.Reader, size int64, contentType, originalName string) (model.ObjectRef, error)

	// Open returns a lazy stream over one object. The caller must close it.
	Open(ctx context.Context, ref model.ObjectRef) (io.ReadCloser, error)

	// Remove deletes an object. Failures are logged, never returned.
	Remove(ctx context.Context, ref model.ObjectRef)

	// Exists reports whether the object is present.
	Exists(ctx context.Context, ref model.ObjectRef) (bool, error)

	// MissingPolicy is the export behaviour for absent objects.
	MissingPolicy() MissingPolicy
}

// Credential authorizes a single fetch of one object without further
// authentication. ExpiresAt is zero when the credential does not expire.
type Credential struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Issuer produces credentials for stored objects.
type Issuer interface {
	Issue(ctx context.Context, ref model.ObjectRef, ttl time.Duration) (Credential, error)
	// IssueBatch returns one credential per ref, in input order.
	IssueBatch(ctx context.Context, refs []model.ObjectRef, ttl time.Duration) ([]Credential, error)
}

// IssueAll issues credentials one by one, keeping out[i] paired with refs[i].
func IssueAll(ctx context.Context, iss Issuer, refs []model.ObjectRef, ttl time.Duration) ([]Credential, error) {
	out := make([]Credential, len(refs))
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cred, err := iss.Issue(ctx, ref, ttl)
		if err != nil {
			return nil, err
		}
		out[i] = cred
	}
	return out, nil
}
