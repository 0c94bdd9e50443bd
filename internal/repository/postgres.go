package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

// DB is the subset of *pgxpool.Pool the Postgres store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore wraps all SQL used by the API, the CLI and the worker.
type PostgresStore struct {
	db DB
}

// NewPostgresStore constructs a store over an open pool.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateEvent inserts e.
func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO events (id, name, event_date, owner, admin_secret, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.Name, e.Date, e.Owner, e.AdminSecret, e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEventExists
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// FindEvent returns an event by id.
func (s *PostgresStore) FindEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	row := s.db.QueryRow(ctx, `
		SELECT id, name, event_date, owner, admin_secret, created_at
		FROM events WHERE id=$1
	`, id)
	if err := row.Scan(&e.ID, &e.Name, &e.Date, &e.Owner, &e.AdminSecret, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("select event: %w", err)
	}
	return &e, nil
}

// CommitUploads inserts every record in one transaction.
func (s *PostgresStore) CommitUploads(ctx context.Context, records []model.UploadRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", model.ErrMetadataCommit, err)
	}
	// Rollback after a successful commit is a no-op.
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, r := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO uploads (id, event_id, guest_name, original_name, storage_key, content_type, size, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, r.ID, r.EventID, r.GuestName, r.OriginalName, r.StorageKey, r.ContentType, r.Size, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: insert upload %s: %w", model.ErrMetadataCommit, r.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", model.ErrMetadataCommit, err)
	}
	return nil
}

// ListUploads returns the event's uploads newest-first. Records of one batch
// share created_at and come back in reverse insertion order.
func (s *PostgresStore) ListUploads(ctx context.Context, eventID string) ([]model.UploadRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, event_id, guest_name, original_name, storage_key, content_type, size, created_at
		FROM uploads WHERE event_id=$1
		ORDER BY created_at DESC, seq DESC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []model.UploadRecord
	for rows.Next() {
		var r model.UploadRecord
		if err := rows.Scan(&r.ID, &r.EventID, &r.GuestName, &r.OriginalName, &r.StorageKey, &r.ContentType, &r.Size, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
