package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the SQLite-backed booking store.
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// New opens (creating if needed) the database at path and runs migrations.
// Transactions take the write lock up front (_txlock=immediate) so two
// writers contend at BEGIN, where the busy timeout applies, instead of
// deadlocking on a mid-transaction lock upgrade.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_loc=auto&_txlock=immediate", path)
	if path == ":memory:" {
		// A pooled connection would otherwise get its own empty database.
		dsn = "file::memory:?cache=shared&_busy_timeout=5000&_loc=auto&_txlock=immediate"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	log := logger.With().Str("component", "database").Logger()
	log.Info().Str("path", path).Msg("database initialized")

	return &DB{DB: db, log: log}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            resource_id TEXT NOT NULL,
            subject_id TEXT NOT NULL,
            start DATETIME NOT NULL,
            duration_minutes INTEGER NOT NULL,
            kind TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'SCHEDULED',
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_resource_id ON bookings(resource_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_subject_id ON bookings(subject_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start ON bookings(start)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("executing %q: %w", query, err)
		}
	}
	return nil
}
