// Package repository persists events and upload metadata. Two stores satisfy
// Store: a Postgres store for production and a single JSON document for
// single-node deployments.
package repository

import (
	"context"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

// Store is the metadata store consumed by ingestion, export and the API.
type Store interface {
	// CreateEvent inserts a new event; model.ErrEventExists on ID collision.
	CreateEvent(ctx context.Context, e *model.Event) error
	// FindEvent returns model.ErrEventNotFound when the event does not exist.
	FindEvent(ctx context.Context, id string) (*model.Event, error)
	// CommitUploads persists every record or none of them.
	CommitUploads(ctx context.Context, records []model.UploadRecord) error
	// ListUploads returns the event's uploads newest-first.
	ListUploads(ctx context.Context, eventID string) ([]model.UploadRecord, error)
}
