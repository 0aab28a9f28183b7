// Package library is the host's content store: songs with their lyrics,
// scripture translations, presentation themes, and the service schedule.
package library

import (
	"database/sql"
	"sync"

	"github.com/rs/zerolog"

	// SQLite driver, registered for side effects. modernc.org/sqlite is pure
	// Go, so the host cross-compiles without CGO.
	_ "modernc.org/sqlite"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/logging"
)

// Store is a SQLite-backed library. It creates and seeds the database on
// first use and is safe for concurrent use.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex // Guards all database operations.
	log zerolog.Logger
}

// Open opens or creates the library at path and applies migrations.
// Use ":memory:" for a throwaway library.
func Open(path string) (*Store, error) {
	log := logging.Component("library")
	log.Info().Str("path", path).Msg("opening library")

	// Foreign keys keep lyrics tied to their songs. The busy timeout covers
	// a CLI and a running host touching the same file.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeLibraryOpenFailed, "open library", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.CodeLibraryOpenFailed, "ping library", err)
	}

	s := &Store{db: db, log: log}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.CodeLibraryOpenFailed, "init library schema", err)
	}

	log.Info().Int("schema_version", currentSchemaVersion).Msg("library ready")
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	s.log.Debug().Msg("closing library")
	return s.db.Close()
}
