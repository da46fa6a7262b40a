// Command migrate applies pending schema migrations for the configured
// database driver and prints the files it applied.
//
// Usage:
//
//	migrate [--list]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"wellwatch/internal/config"
	"wellwatch/internal/db"
	"wellwatch/internal/db/sqlite"
	"wellwatch/internal/logging"
)

const migrateTimeout = 5 * time.Minute

func main() {
	listFlag := flag.Bool("list", false, "List embedded PostgreSQL migration files and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Apply pending migrations for DB_DRIVER (postgres or sqlite).\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *listFlag {
		files, err := db.MigrationFiles(db.Migrations())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return
	}

	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, "migrate")

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	applied, err := migrate(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("migration failed", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}

	if len(applied) == 0 {
		fmt.Println("schema is up to date")
		return
	}
	for _, name := range applied {
		fmt.Printf("applied %s\n", name)
	}
}

func migrate(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) ([]string, error) {
	if cfg.Driver == "sqlite" {
		conn, err := sqlite.Connect(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return sqlite.Migrate(ctx, conn, logger)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer pool.Close()
	return db.NewMigrator(pool, db.Migrations(), logger).Up(ctx)
}
