// Package main is the entry point for the WellWatch API server.
//
// It loads the configuration, opens the well store for the configured
// driver, wires the optional SQS status publisher, CloudWatch metrics and
// MQTT device subscriber, and serves the versioned HTTP API.
//
// In Lambda mode the chi router is served through API Gateway HTTP API
// events. Otherwise it runs as a standard HTTP server with graceful
// shutdown on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"wellwatch/internal/api/handlers"
	"wellwatch/internal/config"
	"wellwatch/internal/core"
	"wellwatch/internal/ingest"
	"wellwatch/internal/logging"
	"wellwatch/internal/platform"
	"wellwatch/internal/queue"
	"wellwatch/internal/telemetry"
	"wellwatch/internal/wells"
)

const (
	metricsFlushInterval = time.Minute
	mqttConnectTimeout   = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(cfg, "api")
	logger.Info("wellwatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		lambda.Start(core.LambdaHandler(a.srv.Handler()))
		return nil
	}
	return runHTTPServer(a.srv, cfg, logger)
}

// app holds the wired server and the long-lived components started with it.
type app struct {
	srv     *core.Server
	service *wells.Service
	metrics *telemetry.Metrics
}

// buildApp wires every dependency onto a mounted core.Server. Background
// goroutines (metrics flushing) stop when ctx is cancelled.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	store, err := platform.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening well store: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, store.Probe)
	srv.Closers = append(srv.Closers, store.Close)

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := platform.AWSConfig(ctx, cfg.AWS)
			if err != nil {
				return aws.Config{}, err
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	var publisher wells.AlertPublisher
	if cfg.AWS.StatusQueueURL != "" {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		p := queue.NewStatusPublisher(sqs.NewFromConfig(c), cfg.AWS.StatusQueueURL, logger)
		publisher = p
		srv.HealthProbes = append(srv.HealthProbes, p)
	}

	a := &app{srv: srv}
	var recorder ingest.Recorder
	if cfg.Observability.EnableMetrics {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		a.metrics = telemetry.NewMetrics(cloudwatch.NewFromConfig(c), cfg.Observability.MetricNamespace, logger)
		srv.Metrics = a.metrics
		recorder = a.metrics
		go a.metrics.Run(ctx, metricsFlushInterval)
	}

	a.service = wells.NewService(store, publisher, wells.OptionsFromConfig(cfg), logger)

	if cfg.MQTT.Enabled {
		sub := ingest.NewSubscriber(cfg.MQTT, a.service, recorder, logger)
		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := sub.Connect(connectCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("connecting MQTT subscriber: %w", err)
		}
		srv.HealthProbes = append(srv.HealthProbes, sub)
		srv.Closers = append(srv.Closers, func() error {
			sub.Disconnect()
			return nil
		})
	}

	wellHandler := handlers.NewWellHandler(a.service, srv.Validator, logger)
	readingHandler := handlers.NewReadingHandler(a.service, logger)
	routeHandler := handlers.NewRouteHandler(a.service, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		wellHandler.RegisterRoutes,
		readingHandler.RegisterRoutes,
		routeHandler.RegisterRoutes,
	)

	if err := srv.MountRoutes(); err != nil {
		return nil, fmt.Errorf("mounting routes: %w", err)
	}
	return a, nil
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Store pools, MQTT connection.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
