// Package sqlite is the single-file persistence backend used for local
// development and field laptops. It implements wells.Store on top of
// mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"wellwatch/internal/db"
)

//go:embed sql/migrations/*.sql
var migrationFS embed.FS

// Open connects to the database at path and applies pending migrations.
// A path of ":memory:" yields a private in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	conn, err := Connect(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := Migrate(ctx, conn, logger); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Connect opens (creating if needed) the database at path without touching
// the schema.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// One writer at a time; an in-memory database also vanishes per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return conn, nil
}

func buildDSN(path string) (string, error) {
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
	}
	if path == ":memory:" {
		return "file::memory:?" + strings.Join(params, "&"), nil
	}
	params = append(params, "_journal_mode=WAL")

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// Migrate applies embedded migrations not yet recorded in db.MigrationTable
// and returns the file names it applied.
func Migrate(ctx context.Context, conn *sql.DB, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+db.MigrationTable+` (
		filename   TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`); err != nil {
		return nil, fmt.Errorf("creating %s: %w", db.MigrationTable, err)
	}

	files, _ := fs.Sub(migrationFS, "sql/migrations")
	names, err := db.MigrationFiles(files)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range names {
		var n int
		if err := conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM `+db.MigrationTable+` WHERE filename = ?`, name,
		).Scan(&n); err != nil {
			return applied, fmt.Errorf("checking migration %s: %w", name, err)
		}
		if n > 0 {
			continue
		}

		body, err := fs.ReadFile(files, name)
		if err != nil {
			return applied, fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := apply(ctx, conn, name, db.SplitStatements(string(body))); err != nil {
			return applied, err
		}
		logger.InfoContext(ctx, "migration applied", "file", name, "driver", "sqlite")
		applied = append(applied, name)
	}
	return applied, nil
}

func apply(ctx context.Context, conn *sql.DB, name string, statements []string) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+db.MigrationTable+` (filename) VALUES (?)`, name); err != nil {
		return fmt.Errorf("recording migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", name, err)
	}
	return nil
}

// Probe reports database reachability to the health endpoint.
type Probe struct {
	DB *sql.DB
}

func (p Probe) Name() string { return "database" }

func (p Probe) Check(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}
