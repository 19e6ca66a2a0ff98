package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

// DefaultDirName is the directory created under the working directory for
// default backends.
const DefaultDirName = ".miniperscache"

// DefaultDBName is the file name of the default SQLite database.
const DefaultDBName = "miniperscache.db"

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database location or ":memory:" for a private in-memory
	// database. It may reference environment variables as ${NAME}.
	// Default: <DefaultDir()>/miniperscache.db
	Path string

	// BusyTimeout configures sqlite busy timeout via PRAGMA busy_timeout.
	// Default: 5s
	BusyTimeout time.Duration

	// MaxOpenConns controls the pool size exposed by database/sql.
	// Forced to 1 for in-memory databases.
	// Default: 0 (database/sql default)
	MaxOpenConns int
}

// SQLite stores entries in a single table keyed by (tag, key).
type SQLite struct {
	db   *sql.DB
	path string
}

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS cache (tag TEXT NOT NULL, key BLOB NOT NULL, value BLOB NOT NULL)`
	createIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS cache_tag_key_idx ON cache (tag, key)`
	selectSQL      = `SELECT value FROM cache WHERE tag = ? AND key = ?`
	upsertSQL      = `INSERT INTO cache (tag, key, value) VALUES (?, ?, ?) ON CONFLICT (tag, key) DO UPDATE SET value = excluded.value`
	deleteTagSQL   = `DELETE FROM cache WHERE tag = ?`
)

// DefaultDir returns the default storage directory under the working
// directory.
func DefaultDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("storage: resolve working directory: %w", err)
	}
	return filepath.Join(wd, DefaultDirName), nil
}

var defaultSQLite = sync.OnceValues(func() (*SQLite, error) {
	return OpenSQLite(context.Background(), SQLiteConfig{})
})

// Default returns the process-wide default backend, opening it on first use.
func Default() (*SQLite, error) {
	return defaultSQLite()
}

// OpenSQLite opens (creating if necessary) a SQLite backend.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLite, error) {
	if err := expandAll(&cfg.Path); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	if cfg.Path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.Path = filepath.Join(dir, DefaultDBName)
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	memory := cfg.Path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s, err := NewSQLite(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.path = cfg.Path
	return s, nil
}

// NewSQLite prepares the schema on an existing handle opened with the
// "sqlite" driver.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if db == nil {
		return nil, errors.New("sqlite: db is nil")
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("sqlite: create table: %w", err)
	}
	if _, err := db.ExecContext(ctx, createIndexSQL); err != nil {
		return nil, fmt.Errorf("sqlite: create index: %w", err)
	}
	return &SQLite{db: db}, nil
}

func buildDSN(cfg SQLiteConfig) string {
	pragmas := fmt.Sprintf("_pragma=busy_timeout(%d)", cfg.BusyTimeout.Milliseconds())
	if cfg.Path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	return "file:" + cfg.Path + "?" + pragmas + "&_pragma=journal_mode(WAL)"
}

// Path returns the database location.
func (s *SQLite) Path() string {
	return s.path
}

// Get selects the value stored under (tag, digest).
func (s *SQLite) Get(ctx context.Context, tag string, digest []byte) ([]byte, bool, error) {
	var value []byte
	if err := s.db.QueryRowContext(ctx, selectSQL, tag, digest).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite: get entry: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Set upserts the value stored under (tag, digest).
func (s *SQLite) Set(ctx context.Context, tag string, digest, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, tag, digest, value); err != nil {
		return fmt.Errorf("sqlite: set entry: %w", err)
	}
	return nil
}

// DeleteAllWithTag deletes every row under tag.
func (s *SQLite) DeleteAllWithTag(ctx context.Context, tag string) error {
	if _, err := s.db.ExecContext(ctx, deleteTagSQL, tag); err != nil {
		return fmt.Errorf("sqlite: delete tag: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var (
	_ Storage = (*SQLite)(nil)
	_ Pinger  = (*SQLite)(nil)
)
