// Package store persists workspace audit results in SQLite so a
// re-audit can skip files whose content has not changed. The database
// is derived data: an incompatible schema or dataset is rebuilt, never
// migrated.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is bumped whenever the table layout changes. A store
// written by a different version is reset on open.
const schemaVersion = "1"

const metaSchemaVersion = "schema_version"

// Store is the SQLite data access layer for audit results.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled and
// brings the schema up to date.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", dbPath, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for callers that run their own queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate creates the tables and reconciles the schema version.
// Idempotent.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	current, err := s.Meta(metaSchemaVersion)
	if err != nil {
		return err
	}
	switch current {
	case schemaVersion:
		return nil
	case "":
		return s.SetMeta(metaSchemaVersion, schemaVersion)
	}
	// Audit results are reproducible, so an old layout is dropped and
	// rebuilt rather than migrated.
	if err := s.reset(); err != nil {
		return err
	}
	return s.SetMeta(metaSchemaVersion, schemaVersion)
}

func (s *Store) reset() error {
	drop := `
DROP TABLE IF EXISTS findings;
DROP TABLE IF EXISTS files;
DROP TABLE IF EXISTS metadata;
`
	if _, err := s.db.Exec(drop); err != nil {
		return fmt.Errorf("reset: drop: %w", err)
	}
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("reset: recreate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id             INTEGER PRIMARY KEY,
  path           TEXT NOT NULL UNIQUE,
  language       TEXT NOT NULL,
  hash           TEXT NOT NULL,
  size_bytes     INTEGER NOT NULL DEFAULT 0,
  line_count     INTEGER NOT NULL DEFAULT 0,
  feature_count  INTEGER NOT NULL DEFAULT 0,
  partial        BOOLEAN NOT NULL DEFAULT FALSE,
  last_audited   TIMESTAMP
);

CREATE TABLE IF NOT EXISTS findings (
  id             INTEGER PRIMARY KEY,
  file_id        INTEGER NOT NULL REFERENCES files(id),
  feature_id     TEXT,
  feature_name   TEXT,
  reason         TEXT NOT NULL,
  severity       TEXT NOT NULL,
  message        TEXT NOT NULL,
  rule           TEXT,
  start_line     INTEGER,
  start_col      INTEGER,
  end_line       INTEGER,
  end_col        INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key            TEXT PRIMARY KEY,
  value          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
CREATE INDEX IF NOT EXISTS idx_findings_file ON findings(file_id);
CREATE INDEX IF NOT EXISTS idx_findings_feature ON findings(feature_id);
CREATE INDEX IF NOT EXISTS idx_findings_reason ON findings(reason);
`

// SetMeta writes a metadata key, replacing any previous value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Meta reads a metadata key. A missing key returns "".
func (s *Store) Meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("meta %s: %w", key, err)
	}
	return value, nil
}
