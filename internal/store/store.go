// Package store implements the embedded relational store: an SQLite
// database accessed through database/sql and the pure-Go
// modernc.org/sqlite driver, holding accounts, transfers, their
// derived aggregate stats, sync bookkeeping, and saved investigations.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the underlying *sql.DB with the migration and
// bulk-import-mode helpers the graph engine needs.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if absent) the SQLite database at path and
// applies the schema migration.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; one conn avoids SQLITE_BUSY under concurrent writes

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.setDurableMode(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for packages (graphquery,
// investigation) that need to compose their own queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) setDurableMode(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL;`)
	return err
}

// BeginBulkImport relaxes durability for a bulk-load pass: asynchronous
// journaling, no fsync on every commit. Callers MUST call
// EndBulkImport when the import finishes, even on error, to restore
// durable settings before the store serves traffic.
func (s *Store) BeginBulkImport(ctx context.Context) error {
	s.log.Info().Msg("entering bulk-import mode: relaxing durability")
	_, err := s.db.ExecContext(ctx, `PRAGMA journal_mode = MEMORY; PRAGMA synchronous = OFF;`)
	return err
}

// EndBulkImport restores durable settings and runs ANALYZE/VACUUM so
// the query planner has fresh statistics before serving traffic.
func (s *Store) EndBulkImport(ctx context.Context) error {
	if err := s.setDurableMode(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE;`); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM;`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	s.log.Info().Msg("bulk-import complete: durability restored, analyzed and vacuumed")
	return nil
}
