package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antibyte/basicterm/pkg/configuration"
	"github.com/antibyte/basicterm/pkg/logger"
)

var (
	ErrProgramNotFound = errors.New("program not found")
	ErrTooManyPrograms = errors.New("saved program limit reached")
	ErrProgramTooBig   = errors.New("program exceeds size limit")
)

// ProgramStore gives one user access to their saved BASIC programs. It
// implements the interpreter's source store boundary.
type ProgramStore struct {
	db       *sql.DB
	username string
}

// ProgramsFor returns the program store scoped to one user. Guests share
// the per-session username they were assigned, so their programs vanish
// with the session name.
func (s *Store) ProgramsFor(username string) *ProgramStore {
	return &ProgramStore{db: s.db, username: username}
}

// LoadProgram returns the stored source text for the named program.
func (ps *ProgramStore) LoadProgram(name string) (string, error) {
	var source string
	err := ps.db.QueryRow(
		"SELECT source FROM basic_programs WHERE username = ? AND name = ?",
		ps.username, name,
	).Scan(&source)
	if err == sql.ErrNoRows {
		return "", ErrProgramNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load program: %w", err)
	}
	return source, nil
}

// SaveProgram stores the source text under the given name, replacing any
// previous version. Per-user count and size limits apply.
func (ps *ProgramStore) SaveProgram(name, source string) error {
	maxSize := configuration.GetInt("Basic", "max_program_size_kb", 64) * 1024
	if len(source) > maxSize {
		return ErrProgramTooBig
	}

	var exists bool
	if err := ps.db.QueryRow(
		"SELECT COUNT(*) > 0 FROM basic_programs WHERE username = ? AND name = ?",
		ps.username, name,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to query programs: %w", err)
	}

	if !exists {
		maxPrograms := configuration.GetInt("Basic", "max_saved_programs", 50)
		var count int
		if err := ps.db.QueryRow(
			"SELECT COUNT(*) FROM basic_programs WHERE username = ?", ps.username,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to count programs: %w", err)
		}
		if count >= maxPrograms {
			return ErrTooManyPrograms
		}
	}

	_, err := ps.db.Exec(
		`INSERT OR REPLACE INTO basic_programs (username, name, source, updated_at)
		 VALUES (?, ?, ?, ?)`,
		ps.username, name, source, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save program: %w", err)
	}

	logger.StorageDebug("user %s saved program %q (%d bytes)", ps.username, name, len(source))
	return nil
}

// ListPrograms returns the user's saved program names, newest first.
func (ps *ProgramStore) ListPrograms() ([]string, error) {
	rows, err := ps.db.Query(
		"SELECT name FROM basic_programs WHERE username = ? ORDER BY updated_at DESC",
		ps.username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan program name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
