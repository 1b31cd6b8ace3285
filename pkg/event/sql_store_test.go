package event

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prodige/prodige/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	clock := &utils.ManualClock{Current: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	return NewSQLStore(db, clock), mock
}

func eventRows(events ...Event) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "title", "start_time", "end_time", "client", "description",
		"status", "assigned_to", "created_by", "is_shared", "created_at", "updated_at",
	})
	for _, e := range events {
		rows.AddRow(
			e.ID, e.Title, e.Start, e.End, e.Client, nullString(e.Description),
			string(e.Status), nullString(e.AssignedTo), e.CreatedBy, e.IsShared,
			e.CreatedAt, e.UpdatedAt,
		)
	}
	return rows
}

func TestSQLStore_Create(t *testing.T) {
	store, mock := newTestSQLStore(t)

	mock.ExpectExec("INSERT INTO events").
		WithArgs(
			sqlmock.AnyArg(), // generated id
			"Kitchen renovation",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"Dupont",
			sql.NullString{},
			string(StatusPending),
			sql.NullString{},
			"user-1",
			true,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := store.Create(context.Background(), validEvent())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateInvalidRunsNoSQL(t *testing.T) {
	store, mock := newTestSQLStore(t)

	draft := validEvent()
	draft.Title = ""
	draft.End = draft.Start

	_, err := store.Create(context.Background(), draft)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	// Validation happens before the database is touched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetNotFound(t *testing.T) {
	store, mock := newTestSQLStore(t)

	mock.ExpectQuery("SELECT (.+) FROM events WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Get(t *testing.T) {
	store, mock := newTestSQLStore(t)

	stored := validEvent()
	stored.ID = "evt-1"
	stored.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stored.UpdatedAt = stored.CreatedAt

	mock.ExpectQuery("SELECT (.+) FROM events WHERE id").
		WithArgs("evt-1").
		WillReturnRows(eventRows(stored))

	got, err := store.Get(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindWindowAndViewer(t *testing.T) {
	store, mock := newTestSQLStore(t)

	from, to := MonthWindow(2025, time.February)
	mock.ExpectQuery("SELECT (.+) FROM events WHERE start_time <= (.+) AND end_time >= (.+) AND \\(created_by = (.+) OR assigned_to = (.+) OR is_shared\\) ORDER BY start_time").
		WithArgs(to, from, "user-1").
		WillReturnRows(eventRows())

	events, err := store.Find(context.Background(), Filter{From: from, To: to, Viewer: "user-1"})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindUnfiltered(t *testing.T) {
	store, mock := newTestSQLStore(t)

	a := validEvent()
	a.ID = "a"
	a.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a.UpdatedAt = a.CreatedAt
	b := a
	b.ID = "b"
	b.Start = a.Start.Add(time.Hour)
	b.End = a.End.Add(time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM events ORDER BY start_time").
		WillReturnRows(eventRows(a, b))

	events, err := store.Find(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Update(t *testing.T) {
	store, mock := newTestSQLStore(t)

	stored := validEvent()
	stored.ID = "evt-1"
	stored.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stored.UpdatedAt = stored.CreatedAt

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM events WHERE id = (.+) FOR UPDATE").
		WithArgs("evt-1").
		WillReturnRows(eventRows(stored))
	mock.ExpectExec("UPDATE events").
		WithArgs(
			stored.Title,
			stored.Start,
			stored.End,
			stored.Client,
			sql.NullString{},
			string(StatusCompleted),
			sql.NullString{},
			stored.IsShared,
			sqlmock.AnyArg(), // updated_at
			"evt-1",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status := StatusCompleted
	updated, err := store.Update(context.Background(), "evt-1", Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.True(t, updated.UpdatedAt.After(stored.UpdatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateNotFound(t *testing.T) {
	store, mock := newTestSQLStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM events WHERE id = (.+) FOR UPDATE").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	status := StatusConfirmed
	_, err := store.Update(context.Background(), "missing", Patch{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateInvalidPatchRollsBack(t *testing.T) {
	store, mock := newTestSQLStore(t)

	stored := validEvent()
	stored.ID = "evt-1"
	stored.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stored.UpdatedAt = stored.CreatedAt

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM events WHERE id = (.+) FOR UPDATE").
		WithArgs("evt-1").
		WillReturnRows(eventRows(stored))
	mock.ExpectRollback()

	badStart := stored.End.Add(time.Hour)
	_, err := store.Update(context.Background(), "evt-1", Patch{Start: &badStart})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DeleteNotFound(t *testing.T) {
	store, mock := newTestSQLStore(t)

	mock.ExpectExec("DELETE FROM events WHERE id").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.Delete(context.Background(), "missing"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Delete(t *testing.T) {
	store, mock := newTestSQLStore(t)

	mock.ExpectExec("DELETE FROM events WHERE id").
		WithArgs("evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Delete(context.Background(), "evt-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
