package library

import (
	"database/sql"
	"fmt"
	"time"
)

// currentSchemaVersion is the current database schema version.
// Increment this when making schema changes and add migration logic.
const currentSchemaVersion = 2

// initSchema brings the database up to currentSchemaVersion.
func (s *Store) initSchema() error {
	const schemaVersionTable = `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}

	if version < 1 {
		if err := s.migrate(1, migrateToV1); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if version < 2 {
		if err := s.migrate(2, seedContent); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}

	return nil
}

// migrate applies one migration and records it in the same transaction.
func (s *Store) migrate(version int, apply func(tx *sql.Tx) error) error {
	s.log.Info().Int("schema_version", version).Msg("applying migration")

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := apply(tx); err != nil {
		return err
	}

	_, err = tx.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		version,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

// migrateToV1 creates the content tables.
func migrateToV1(tx *sql.Tx) error {
	const tables = `
		CREATE TABLE IF NOT EXISTS songs (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT ''
		);

		-- One row per slide, in display order.
		CREATE TABLE IF NOT EXISTS lyric_sections (
			song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			label TEXT NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (song_id, position)
		);

		CREATE TABLE IF NOT EXISTS translations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			abbreviation TEXT NOT NULL UNIQUE,
			is_default INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS verses (
			translation_id TEXT NOT NULL REFERENCES translations(id) ON DELETE CASCADE,
			book TEXT NOT NULL,
			chapter INTEGER NOT NULL,
			verse INTEGER NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (translation_id, book, chapter, verse)
		);

		CREATE TABLE IF NOT EXISTS themes (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			is_default INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS schedule_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position INTEGER NOT NULL,
			type TEXT NOT NULL,
			song_id INTEGER REFERENCES songs(id) ON DELETE SET NULL,
			book TEXT NOT NULL DEFAULT '',
			chapter INTEGER NOT NULL DEFAULT 0,
			verse INTEGER NOT NULL DEFAULT 0,
			version TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			added_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_schedule_position ON schedule_items(position);
	`
	if _, err := tx.Exec(tables); err != nil {
		return fmt.Errorf("create content tables: %w", err)
	}
	return nil
}
