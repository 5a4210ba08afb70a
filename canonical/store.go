// Package canonical is a SQLite-backed reference implementation of the
// engine's CanonicalState: durable per-document geometry and override log.
// Hosts with their own persistence keep using it through the same interface;
// this package exists so a bare deployment has a working durable state out
// of the box.
package canonical

import (
	"database/sql"
	"log/slog"

	"github.com/hazyhaar/domcanvas/dbopen"
)

// Store is the canonical state database handle.
type Store struct {
	DB     *sql.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens (or creates) the canonical state database at path and applies
// the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbopen.Open(path,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewStore wraps an already-open database, applying the schema. Used by
// tests and hosts sharing one database file.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}
	s := &Store{DB: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
