package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store owns the embedded database file. Construct one at process start and
// pass it to the repositories; there is no package-level handle.
type Store struct {
	path string

	mu sync.Mutex
	db *sqlx.DB
}

// NewStore creates a store for the database file at path without opening it.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Open opens and initializes a store at path. Shorthand for NewStore + Open.
func Open(path string) (*Store, error) {
	s := NewStore(path)
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open establishes the connection and brings the schema up to date. It is
// idempotent and safe to call concurrently: callers racing the first open
// share one initialization, and a failed open leaves the store clean so a
// later call can retry.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return fmt.Errorf("failed to apply %q: %v", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the database connection. The store may be reopened later.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// handle returns the live connection, failing if the store is not open.
func (s *Store) handle() (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	return s.db, nil
}

// withTx runs fn inside a transaction, rolling back on any error so partial
// writes are never visible to readers.
func (s *Store) withTx(fn func(tx *sqlx.Tx) error) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}
