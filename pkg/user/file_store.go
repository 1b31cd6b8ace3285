package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prodige/prodige/internal/utils"
	log "github.com/sirupsen/logrus"
)

const usersFileName = "users.json"

// FileStore mirrors the user set to dir/users.json with the same discipline
// as the event file store: full load at init, mutex-serialized mutations,
// wholesale pretty-printed rewrite, corrupt-file quarantine.
type FileStore struct {
	path  string
	clock utils.Clock

	mu    sync.Mutex
	users []User
}

func NewFileStore(dir string, clock utils.Clock) (*FileStore, error) {
	s := &FileStore{
		path:  filepath.Join(dir, usersFileName),
		clock: clock,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.users = []User{}
		return s.persist()
	}
	if err != nil {
		return fmt.Errorf("could not read %s: %w", s.path, err)
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		backup := fmt.Sprintf("%s.corrupt.%s", s.path, s.clock.Now().UTC().Format("20060102T150405"))
		log.Warnf("users file %s is corrupt (%v), moving it to %s and starting empty", s.path, err, backup)
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return fmt.Errorf("could not quarantine corrupt users file: %w", renameErr)
		}
		s.users = []User{}
		return s.persist()
	}

	s.users = users
	return nil
}

func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("could not serialize users: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("could not write users file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("could not replace users file: %w", err)
	}
	return nil
}

func (s *FileStore) Create(ctx context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == email {
			return User{}, ErrEmailTaken
		}
	}

	now := s.clock.Now()
	u.ID = uuid.New().String()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users = append(s.users, u)
	if err := s.persist(); err != nil {
		s.users = s.users[:len(s.users)-1]
		return User{}, err
	}
	return u, nil
}

func (s *FileStore) GetByID(ctx context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *FileStore) GetByEmail(ctx context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

var _ Store = (*FileStore)(nil)
