package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func TestPostgresCreateEventDuplicate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO events").
		WithArgs("abc", "Gala", pgxmock.AnyArg(), "", "secret", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.CreateEvent(context.Background(), &model.Event{ID: "abc", Name: "Gala", AdminSecret: "secret"})
	require.ErrorIs(t, err, model.ErrEventExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindEventNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, name, event_date").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "event_date", "owner", "admin_secret", "created_at"}))

	_, err := store.FindEvent(context.Background(), "nope")
	require.ErrorIs(t, err, model.ErrEventNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCommitUploadsSingleTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	records := []model.UploadRecord{record("a", "evt1", now), record("b", "evt1", now)}

	mock.ExpectBegin()
	for _, r := range records {
		mock.ExpectExec("INSERT INTO uploads").
			WithArgs(r.ID, r.EventID, r.GuestName, r.OriginalName, r.StorageKey, r.ContentType, r.Size, r.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.CommitUploads(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCommitUploadsRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	records := []model.UploadRecord{record("a", "evt1", now), record("b", "evt1", now)}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO uploads").
		WithArgs(uploadArgs(records[0])...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO uploads").
		WithArgs(uploadArgs(records[1])...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.CommitUploads(context.Background(), records)
	require.ErrorIs(t, err, model.ErrMetadataCommit)
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListUploads(t *testing.T) {
	store, mock := newMockStore(t)
	later := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)
	rows := pgxmock.NewRows([]string{"id", "event_id", "guest_name", "original_name", "storage_key", "content_type", "size", "created_at"}).
		AddRow("b", "evt1", "Ana", "b.jpg", "evt1/2-bb.jpg", "image/jpeg", int64(20), later).
		AddRow("a", "evt1", "", "a.mp4", "evt1/1-aa.mp4", "video/mp4", int64(10), earlier)
	mock.ExpectQuery(`FROM uploads WHERE event_id=\$1\s+ORDER BY created_at DESC, seq DESC`).WithArgs("evt1").WillReturnRows(rows)

	got, err := store.ListUploads(context.Background(), "evt1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].ID)
	require.Equal(t, "evt1/1-aa.mp4", got[1].StorageKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func uploadArgs(r model.UploadRecord) []interface{} {
	return []interface{}{r.ID, r.EventID, r.GuestName, r.OriginalName, r.StorageKey, r.ContentType, r.Size, r.CreatedAt}
}
