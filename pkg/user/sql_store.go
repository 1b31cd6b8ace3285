package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prodige/prodige/internal/utils"
	log "github.com/sirupsen/logrus"
)

type SQLStore struct {
	db    *sql.DB
	clock utils.Clock
}

func NewSQLStore(db *sql.DB, clock utils.Clock) *SQLStore {
	return &SQLStore{db: db, clock: clock}
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func (s *SQLStore) Create(ctx context.Context, u User) (User, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))

	// Check-then-insert instead of sniffing constraint violation codes; the
	// unique index on email still backstops races.
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		err = fmt.Errorf("could not check email availability: %w", err)
		log.Error(err)
		return User{}, err
	}
	if exists {
		return User{}, ErrEmailTaken
	}

	now := s.clock.Now()
	u.ID = uuid.New().String()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		err = fmt.Errorf("could not insert user: %w", err)
		log.Error(err)
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *SQLStore) getBy(ctx context.Context, query string, arg any) (User, error) {
	var (
		u    User
		role string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		err = fmt.Errorf("could not query user: %w", err)
		log.Error(err)
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

var _ Store = (*SQLStore)(nil)
