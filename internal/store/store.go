package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-process database that lives as long as the Store.
const MemoryPath = ":memory:"

// Store is the SQLite data access layer behind the type registry.
//
// The pool is pinned to a single connection: an in-memory database exists
// only on the connection that created it, and the registry serializes writes
// anyway. Callers must not hold a *sql.Rows open while issuing another query.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath. File databases use WAL mode;
// MemoryPath opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	dsn := dbPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"
	if dbPath == MemoryPath {
		dsn = MemoryPath + "?_foreign_keys=ON"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS units (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT,
  loaded_at       TIMESTAMP
);

CREATE TABLE IF NOT EXISTS types (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER REFERENCES units(id),
  name            TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  abstract        BOOLEAN NOT NULL DEFAULT FALSE,
  instantiable    BOOLEAN NOT NULL DEFAULT FALSE,
  parent          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS type_capabilities (
  id              INTEGER PRIMARY KEY,
  type_id         INTEGER NOT NULL REFERENCES types(id),
  capability      TEXT NOT NULL,
  direct          BOOLEAN NOT NULL DEFAULT FALSE,
  UNIQUE (type_id, capability)
);

CREATE TABLE IF NOT EXISTS type_ancestors (
  id              INTEGER PRIMARY KEY,
  type_id         INTEGER NOT NULL REFERENCES types(id),
  ancestor        TEXT NOT NULL,
  depth           INTEGER NOT NULL,
  UNIQUE (type_id, ancestor)
);

CREATE TABLE IF NOT EXISTS type_methods (
  id              INTEGER PRIMARY KEY,
  type_id         INTEGER NOT NULL REFERENCES types(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  UNIQUE (type_id, name, kind)
);

CREATE INDEX IF NOT EXISTS idx_types_unit ON types(unit_id);
CREATE INDEX IF NOT EXISTS idx_types_parent ON types(parent);
CREATE INDEX IF NOT EXISTS idx_types_kind ON types(kind);
CREATE INDEX IF NOT EXISTS idx_type_capabilities_capability ON type_capabilities(capability);
CREATE INDEX IF NOT EXISTS idx_type_ancestors_ancestor ON type_ancestors(ancestor);
CREATE INDEX IF NOT EXISTS idx_type_methods_type ON type_methods(type_id);
`
