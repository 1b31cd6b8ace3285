package user

import (
	"context"
	"errors"
)

type contextKey string

const userKey contextKey = "user"

// ErrNoUser is returned when no authenticated user is attached to the context.
var ErrNoUser = errors.New("no authenticated user in context")

// WithUser returns a context carrying the authenticated user. Set by the
// auth middleware after token verification.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// Current returns the authenticated user from the context, or ErrNoUser.
func Current(ctx context.Context) (User, error) {
	u, ok := ctx.Value(userKey).(User)
	if !ok {
		return User{}, ErrNoUser
	}
	return u, nil
}
