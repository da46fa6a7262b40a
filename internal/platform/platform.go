// Package platform builds the shared process dependencies used by every
// binary: the AWS SDK config and the well store for the configured driver.
package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"wellwatch/internal/config"
	"wellwatch/internal/core"
	"wellwatch/internal/db"
	"wellwatch/internal/db/sqlite"
	"wellwatch/internal/wells"
)

// AWSConfig loads the SDK configuration for cfg.Region. A non-empty
// EndpointURL (LocalStack) overrides every service endpoint.
func AWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config (region=%s): %w", cfg.Region, err)
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}
	return awsCfg, nil
}

// S3Client returns an S3 client. Path-style addressing is forced when a
// custom endpoint is configured.
func S3Client(awsCfg aws.Config, cfg config.AWSConfig) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.EndpointURL != ""
	})
}

// Store is an opened well store with its health probe and release hook.
type Store struct {
	wells.Store
	Probe core.HealthProbe
	Close func() error
}

// OpenStore connects to the configured driver and wraps the result in a
// circuit breaker. SQLite databases are migrated on open; Postgres schemas are
// managed by cmd/migrate.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	var (
		base    wells.Store
		probe   core.HealthProbe
		closeFn func() error
	)

	switch cfg.Driver {
	case "sqlite":
		conn, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		base = sqlite.NewStore(conn)
		probe = sqlite.Probe{DB: conn}
		closeFn = conn.Close
	default:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		base = db.NewSource(pool)
		probe = db.PoolProbe{DB: pool}
		closeFn = func() error {
			pool.Close()
			return nil
		}
	}

	guarded := wells.NewGuardedStore(base, wells.BreakerSettings{
		Name:                cfg.Driver,
		ConsecutiveFailures: cfg.BreakerFailures,
		Timeout:             cfg.BreakerTimeout,
	}, logger)

	logger.Info("well store ready", "driver", cfg.Driver)
	return &Store{Store: guarded, Probe: probe, Close: closeFn}, nil
}
