package user

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

func userRows(u User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "created_at", "updated_at",
	}).AddRow(u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
}

func TestSQLStore_Create(t *testing.T) {
	store, mock := newTestSQLStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "Alice", "alice@example.com", "hash", "user", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := store.Create(context.Background(), User{
		Name:         "Alice",
		Email:        "  Alice@Example.COM ",
		PasswordHash: "hash",
		Role:         RoleUser,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateEmailTaken(t *testing.T) {
	store, mock := newTestSQLStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := store.Create(context.Background(), User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetByEmail(t *testing.T) {
	store, mock := newTestSQLStore(t)

	stored := User{
		ID: "u1", Name: "Alice", Email: "alice@example.com",
		PasswordHash: "hash", Role: RoleAdmin,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(userRows(stored))

	got, err := store.GetByEmail(context.Background(), " ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetByIDNotFound(t *testing.T) {
	store, mock := newTestSQLStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
