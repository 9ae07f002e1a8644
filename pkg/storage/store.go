package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/antibyte/basicterm/pkg/configuration"
	"github.com/antibyte/basicterm/pkg/logger"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
)

// Store provides user accounts on top of the SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for components that share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

func validUsername(username string) bool {
	minLen := configuration.GetInt("Authentication", "min_username_length", 3)
	maxLen := configuration.GetInt("Authentication", "max_username_length", 20)
	if len(username) < minLen || len(username) > maxLen {
		return false
	}
	for i := 0; i < len(username); i++ {
		ch := username[i]
		ok := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '_' || ch == '-'
		if !ok {
			return false
		}
	}
	return true
}

func validPassword(password string) bool {
	minLen := configuration.GetInt("Authentication", "min_password_length", 6)
	maxLen := configuration.GetInt("Authentication", "max_password_length", 100)
	return len(password) >= minLen && len(password) <= maxLen
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (s *Store) CreateUser(username, password string) error {
	if !validUsername(username) {
		return ErrInvalidUsername
	}
	if !validPassword(password) {
		return ErrInvalidPassword
	}

	cost := configuration.GetInt("Authentication", "password_hash_cost", 12)
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)",
		username, string(hashed), time.Now().Unix(),
	)
	if err != nil {
		var exists bool
		if qerr := s.db.QueryRow(
			"SELECT COUNT(*) > 0 FROM users WHERE username = ?", username,
		).Scan(&exists); qerr == nil && exists {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.AuthInfo("user %s registered", username)
	return nil
}

// Authenticate verifies the password for an account and records the login
// time. A missing user and a wrong password are indistinguishable to the
// caller.
func (s *Store) Authenticate(username, password string) error {
	var hashed string
	err := s.db.QueryRow(
		"SELECT password FROM users WHERE username = ?", username,
	).Scan(&hashed)
	if err == sql.ErrNoRows {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to query user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) != nil {
		logger.AuthWarn("failed login attempt for user %s", username)
		return ErrInvalidCredentials
	}

	if _, err := s.db.Exec(
		"UPDATE users SET last_login = ? WHERE username = ?",
		time.Now().Unix(), username,
	); err != nil {
		logger.AuthWarn("failed to record login time for %s: %v", username, err)
	}

	logger.AuthInfo("user %s logged in", username)
	return nil
}

// UserExists reports whether the username is registered.
func (s *Store) UserExists(username string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		"SELECT COUNT(*) > 0 FROM users WHERE username = ?", username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query user: %w", err)
	}
	return exists, nil
}
