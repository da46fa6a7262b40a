package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the embedded PostgreSQL migrations.
func Migrations() fs.FS {
	sub, _ := fs.Sub(migrationFS, "migrations")
	return sub
}

// MigrationTable records applied migration files by name.
const MigrationTable = "_migrations"

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Migrator applies *.sql files in lexical order, each in its own
// transaction, skipping files already recorded in MigrationTable.
type Migrator struct {
	db     TxBeginner
	files  fs.FS
	logger *slog.Logger
}

// NewMigrator creates a Migrator applying the *.sql files in files.
func NewMigrator(db TxBeginner, files fs.FS, logger *slog.Logger) *Migrator {
	if files == nil {
		files = Migrations()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: db, files: files, logger: logger}
}

// Up applies pending migrations and returns the names it applied.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if _, err := m.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+MigrationTable+` (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MigrationTable, err)
	}

	names, err := MigrationFiles(m.files)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range names {
		var done bool
		if err := m.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+MigrationTable+` WHERE filename = $1)`, name,
		).Scan(&done); err != nil {
			return applied, fmt.Errorf("checking migration %s: %w", name, err)
		}
		if done {
			continue
		}

		body, err := fs.ReadFile(m.files, name)
		if err != nil {
			return applied, fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := m.apply(ctx, name, SplitStatements(string(body))); err != nil {
			return applied, err
		}
		m.logger.InfoContext(ctx, "migration applied", "file", name)
		applied = append(applied, name)
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, name string, statements []string) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO `+MigrationTable+` (filename) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("recording migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing migration %s: %w", name, err)
	}
	return nil
}

// MigrationFiles lists the *.sql files at the root of files in lexical order.
func MigrationFiles(files fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(path.Ext(e.Name()), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// SplitStatements splits a migration on semicolons that end a line. Comment
// lines are dropped.
func SplitStatements(body string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()

	for i, s := range out {
		out[i] = strings.TrimSuffix(s, ";")
	}
	return out
}
