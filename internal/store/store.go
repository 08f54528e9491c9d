// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"errors"
	"strings"
)

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need to run their own
// transactions alongside store methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

var (
	ErrNotFound      = errors.New("record not found")
	ErrNameConflict  = errors.New("name already in use")
	ErrTvgIDConflict = errors.New("tvg-id already in use")
)

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
