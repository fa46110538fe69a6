package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleAuthor can create and edit their own exam papers.
	UserRoleAuthor UserRole = "author"
	// UserRoleAdmin can additionally manage users.
	UserRoleAdmin UserRole = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r UserRole) bool {
	return r == UserRoleAuthor || r == UserRoleAdmin
}

// User represents a system user. ID is the stable opaque identifier that
// scopes paper ownership.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Difficulty is the difficulty requested from the generation service.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ValidDifficulty reports whether d is one of the supported levels.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// SourceDocument is a project document whose text can feed question generation.
type SourceDocument struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"userId"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	BasePath         string
	SecureCookies    bool
	StoreTimeout     time.Duration
	GenerateTimeout  time.Duration
	DraftTTL         time.Duration
	DefaultSessionID string
}
