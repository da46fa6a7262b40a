// Command import-file runs a bulk import from local files, bypassing S3 and
// Lambda. It is intended for seeding local databases and replaying exports.
//
// Usage:
//
//	import-file [--concurrency N] FILE...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"wellwatch/internal/bulkimport"
	"wellwatch/internal/config"
	"wellwatch/internal/logging"
	"wellwatch/internal/platform"
	"wellwatch/internal/wells"
)

// localFiles serves ObjectGetter from the filesystem; bucket is ignored.
type localFiles struct{}

func (localFiles) GetObject(_ context.Context, _, key string) (io.ReadCloser, error) {
	return os.Open(key)
}

func main() {
	concurrency := flag.Int("concurrency", 0, "Wells ingested in parallel (default IMPORT_CONCURRENCY)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: import-file [flags] FILE...\n\n")
		fmt.Fprintf(os.Stderr, "Import readings from .csv, .jsonl, .json or .xlsx files (optionally .zst).\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "error: at least one file is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*concurrency, flag.Args()))
}

// run imports each file and returns the process exit code.
func run(concurrency int, files []string) int {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading configuration: %v\n", err)
		return 1
	}
	logger := logging.New(cfg, "import-file")
	if concurrency <= 0 {
		concurrency = cfg.AWS.ImportConcurrency
	}

	ctx := context.Background()
	store, err := platform.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening well store: %v\n", err)
		return 1
	}
	defer store.Close()

	service := wells.NewService(store, nil, wells.OptionsFromConfig(cfg), logger)
	importer := bulkimport.NewImporter(localFiles{}, service, nil, concurrency, logger)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	failed := false
	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		report, err := importer.ImportObject(ctx, "local", abs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", path, err)
			failed = true
			continue
		}
		if report.FailedRows > 0 {
			failed = true
		}
		_ = enc.Encode(report)
	}
	if failed {
		return 1
	}
	return 0
}
