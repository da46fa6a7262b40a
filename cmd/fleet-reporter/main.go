// Package main is the entrypoint for the Fleet Reporter Lambda function.
//
// An EventBridge schedule invokes it periodically. Each run computes the
// fleet status summary (optionally for one owner) and publishes one
// WellsByStatus gauge per status to CloudWatch.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"wellwatch/internal/config"
	"wellwatch/internal/logging"
	"wellwatch/internal/platform"
	"wellwatch/internal/telemetry"
	"wellwatch/internal/wells"
)

// ReportInput is the scheduled payload. An empty OwnerID reports the whole
// fleet.
type ReportInput struct {
	OwnerID string `json:"owner_id,omitempty"`
}

type fleetSummarizer interface {
	FleetSummary(ctx context.Context, filter wells.WellFilter) (*wells.Summary, error)
}

type summaryPublisher interface {
	PublishFleetSummary(ctx context.Context, sum *wells.Summary) error
}

func main() {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, "fleet-reporter")
	logger.Info("FleetReporter Lambda initializing (cold start)")

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

	service := wells.NewService(store, nil, wells.OptionsFromConfig(cfg), logger)
	metrics := telemetry.NewMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)

	lambda.Start(newHandler(service, metrics, logger))
}

func newHandler(summarizer fleetSummarizer, publisher summaryPublisher, logger *slog.Logger) func(ctx context.Context, input ReportInput) (*wells.Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, input ReportInput) (*wells.Summary, error) {
		sum, err := summarizer.FleetSummary(ctx, wells.WellFilter{OwnerID: input.OwnerID})
		if err != nil {
			logger.ErrorContext(ctx, "fleet summary failed", "owner_id", input.OwnerID, "error", err)
			return nil, fmt.Errorf("computing fleet summary: %w", err)
		}

		if err := publisher.PublishFleetSummary(ctx, sum); err != nil {
			logger.ErrorContext(ctx, "publishing fleet summary failed", "error", err)
			return nil, fmt.Errorf("publishing fleet summary: %w", err)
		}

		logger.InfoContext(ctx, "fleet summary published",
			"owner_id", input.OwnerID,
			"total", sum.Total,
			"by_status", sum.ByStatus,
		)
		return sum, nil
	}
}
