// Package main is the entrypoint for the Bulk Importer Lambda function.
//
// S3 ObjectCreated notifications on the import bucket invoke it. Each object
// is decoded (CSV, JSON lines, JSON or XLSX, optionally zstd-compressed) and
// every row is ingested through the same path as device and manual readings,
// so cached statuses and status-change events stay consistent.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"wellwatch/internal/bulkimport"
	"wellwatch/internal/config"
	"wellwatch/internal/logging"
	"wellwatch/internal/platform"
	"wellwatch/internal/queue"
	"wellwatch/internal/telemetry"
	"wellwatch/internal/wells"
)

type eventImporter interface {
	HandleS3Event(ctx context.Context, evt events.S3Event) ([]*bulkimport.Report, error)
}

type flusher interface {
	Flush(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, "bulk-importer")
	logger.Info("BulkImporter Lambda initializing (cold start)")

	ctx := context.Background()

	store, err := platform.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open well store", "error", err)
		os.Exit(1)
	}

	awsCfg, err := platform.AWSConfig(ctx, cfg.AWS)
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	var publisher wells.AlertPublisher
	if cfg.AWS.StatusQueueURL != "" {
		publisher = queue.NewStatusPublisher(sqs.NewFromConfig(awsCfg), cfg.AWS.StatusQueueURL, logger)
	}
	service := wells.NewService(store, publisher, wells.OptionsFromConfig(cfg), logger)

	var (
		recorder bulkimport.Recorder
		flush    flusher
	)
	if cfg.Observability.EnableMetrics {
		m := telemetry.NewMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
		recorder, flush = m, m
	}

	importer := bulkimport.NewImporter(
		bulkimport.NewS3Objects(platform.S3Client(awsCfg, cfg.AWS)),
		service,
		recorder,
		cfg.AWS.ImportConcurrency,
		logger,
	)

	logger.Info("BulkImporter Lambda initialized",
		"import_bucket", cfg.AWS.ImportBucket,
		"concurrency", cfg.AWS.ImportConcurrency,
	)
	lambda.Start(newHandler(importer, flush, logger))
}

// newHandler imports the notified objects and flushes buffered ingest
// metrics before the invocation returns, since the sandbox may be frozen
// afterwards. flush may be nil.
func newHandler(importer eventImporter, flush flusher, logger *slog.Logger) func(ctx context.Context, evt events.S3Event) ([]*bulkimport.Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, evt events.S3Event) ([]*bulkimport.Report, error) {
		logger.InfoContext(ctx, "BulkImporter handler invoked", "records", len(evt.Records))

		reports, err := importer.HandleS3Event(ctx, evt)
		if flush != nil {
			if ferr := flush.Flush(context.WithoutCancel(ctx)); ferr != nil {
				logger.WarnContext(ctx, "metric flush failed", "error", ferr)
			}
		}
		if err != nil {
			logger.ErrorContext(ctx, "bulk import failed", "error", err, "completed", len(reports))
			return reports, err
		}
		return reports, nil
	}
}
