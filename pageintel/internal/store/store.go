// Package store is the persistence layer of the extraction pipeline: the
// product record table (upsert by URL), the extraction run log, and the
// append-only canonical-name table backing the schema registry.
package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a record or run does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps an already-opened database (see dbopen).
type Store struct {
	DB *sql.DB
}

// New creates a Store from an open database connection.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}
