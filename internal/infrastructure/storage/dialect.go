package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the differences between supported SQL backends.
type Dialect struct {
	Name        string
	driver      string
	placeholder sq.PlaceholderFormat
	primaryKey  string
}

var (
	Postgres = Dialect{Name: "postgres", driver: "postgres", placeholder: sq.Dollar, primaryKey: "BIGSERIAL PRIMARY KEY"}
	SQLite   = Dialect{Name: "sqlite", driver: "sqlite", placeholder: sq.Question, primaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT"}
)

// DialectByName resolves a configured driver name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	if dialect.Name == SQLite.Name {
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(dialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}

	if dialect.Name == SQLite.Name {
		// foreign_keys is per-connection; pin the pool to the one that gets it.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	return db, nil
}
