package user

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account that can own, be assigned to, and view events.
// PasswordHash is a bcrypt hash; it is persisted by the stores but never
// leaves the API (handlers encode DTOs, not this struct).
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user may modify events created by others.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
