package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prodige/prodige/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials covers both unknown email and wrong password so login
// failures don't reveal which one it was.
var ErrBadCredentials = errors.New("invalid email or password")

// ErrInvalidInput is returned for malformed registration requests.
type ErrInvalidInput struct {
	Reason string
}

func (e *ErrInvalidInput) Error() string {
	return e.Reason
}

const (
	maxNameLength     = 50
	minPasswordLength = 6
	bcryptCost        = 10
)

// Service registers and authenticates users and issues their tokens.
type Service struct {
	store  Store
	tokens *auth.Tokens
}

func NewService(store Store, tokens *auth.Tokens) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register creates a new account with the default role and returns it with
// a signed token.
func (s *Service) Register(ctx context.Context, name, email, password string) (User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return User{}, "", &ErrInvalidInput{Reason: "name is required"}
	}
	if len(name) > maxNameLength {
		return User{}, "", &ErrInvalidInput{Reason: fmt.Sprintf("name cannot exceed %d characters", maxNameLength)}
	}
	if email == "" || !strings.Contains(email, "@") {
		return User{}, "", &ErrInvalidInput{Reason: "a valid email is required"}
	}
	if len(password) < minPasswordLength {
		return User{}, "", &ErrInvalidInput{Reason: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return User{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.store.Create(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleUser,
	})
	if err != nil {
		return User{}, "", err
	}

	token, err := s.tokens.Issue(created.ID, created.Name, string(created.Role))
	if err != nil {
		return User{}, "", err
	}
	return created, token, nil
}

// Login verifies the credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrBadCredentials
		}
		return User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, "", ErrBadCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Name, string(u.Role))
	if err != nil {
		return User{}, "", err
	}
	return u, token, nil
}

// GetByID loads a user by id, for the auth middleware.
func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.store.GetByID(ctx, id)
}
