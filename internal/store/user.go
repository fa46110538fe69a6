package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/exampaper/internal/model"
)

// ErrUsernameTaken is returned when creating a user with an existing username.
var ErrUsernameTaken = errors.New("username already exists")

// CreateUser inserts a new user and returns its ID.
func (s *Store) CreateUser(u model.User) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO users (id, username, display_name, password_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.DisplayName, u.PasswordHash, u.Role, u.Active, time.Now().UTC(),
	)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		if IsUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrUsernameTaken, u.Username)
		}
		return "", err
	}
	slog.Info("created user", "id", u.ID, "username", u.Username, "role", u.Role)
	return u.ID, nil
}

const userColumns = `id, username, display_name, password_hash, role, active, created_at`

func scanUser(sc interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := sc.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername returns a user by username, or nil if none exists.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

// GetUserByID returns a user by ID, or nil if none exists.
func (s *Store) GetUserByID(id string) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// ListUsers returns all users.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ToggleUserActive flips the active flag on a user.
func (s *Store) ToggleUserActive(id string) error {
	res, err := s.db.Exec(`UPDATE users SET active = NOT active WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
