// Package catalog implements the Catalog component (§4.5): a bulk store
// for Commits/Changes plus an indexed catalog store for Files, Edges,
// RenameLineage, ComponentEdges, and Snapshots, behind a single-writer/
// multi-reader contract where one run's artifacts become visible
// atomically or not at all.
//
// Grounded on the teacher's internal/storage package (SQLiteStore,
// PostgresStore behind a shared sqlx.DB access pattern) and
// internal/graph's Neo4j backend for the optional graph-index mirror.
package catalog

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/lfca/lfca/internal/lfcaerrors"
)

// Backend names the SQL dialect a Store is bound to.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Store is a handle to one catalog database, SQLite or Postgres. All
// reads and writes go through sqlx with driver-appropriate bind
// rewriting (db.Rebind), so query text is written once against `?`
// placeholders regardless of backend.
type Store struct {
	db      *sqlx.DB
	backend Backend
	logger  *logrus.Logger

	// graphIndex mirrors Edge writes into an optional Neo4j graph-index
	// backend; nil when none is configured (§4.5's graph index is
	// explicitly optional).
	graphIndex *GraphIndexWriter
}

// OpenSQLite opens (creating if necessary) a SQLite catalog at path and
// ensures its schema exists. WAL mode is enabled for multi-reader
// concurrency per §5's single-writer/multi-reader model.
func OpenSQLite(path string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to open sqlite catalog at %s", path)
	}
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, lfcaerrors.IOf(err, "failed to initialize sqlite schema")
	}

	return &Store{db: db, backend: BackendSQLite, logger: logger}, nil
}

// OpenPostgres opens a Postgres catalog via pgx's database/sql driver and
// ensures its schema exists.
func OpenPostgres(dsn string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to open postgres catalog")
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, lfcaerrors.IOf(err, "failed to initialize postgres schema")
	}

	return &Store{db: db, backend: BackendPostgres, logger: logger}, nil
}

// WithGraphIndex attaches an optional Neo4j graph-index writer; Edge
// writes made through WriteRun are mirrored into it after the SQL
// transaction commits.
func (s *Store) WithGraphIndex(w *GraphIndexWriter) *Store {
	s.graphIndex = w
	return s
}

// Close releases the underlying connection(s).
func (s *Store) Close() error {
	if s.graphIndex != nil {
		s.graphIndex.Close(context.Background())
	}
	return s.db.Close()
}

// Backend reports which SQL dialect this Store is bound to.
func (s *Store) Backend() Backend { return s.backend }

// rebind rewrites a `?`-placeholder query for the active backend's bind
// syntax (no-op for SQLite, `?` -> `$1, $2, ...` for Postgres).
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}
