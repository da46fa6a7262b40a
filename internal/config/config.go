// Package config defines the process configuration for the WellWatch services.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"time"

	"wellwatch/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the sub-struct they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"wellwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	MQTT          MQTTConfig
	Health        HealthConfig
	Forecast      ForecastConfig
	Route         RouteConfig
	Observability ObservabilityConfig

	// Build metadata, injected via ldflags rather than the environment.
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	// MaxBatchSize caps the number of wells accepted by one upsert request.
	MaxBatchSize int `envconfig:"MAX_BATCH_SIZE" default:"500" validate:"min=1"`
}

// DatabaseConfig selects and tunes the persistence backend.
type DatabaseConfig struct {
	Driver string `envconfig:"DB_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`

	// Resolved from SSM or Env. Required for the postgres driver.
	URL SecretString `envconfig:"DATABASE_URL" validate:"required_if=Driver postgres"`

	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/wellwatch.db"`

	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`

	// Circuit breaker around the data source.
	BreakerFailures uint32        `envconfig:"DB_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"DB_BREAKER_TIMEOUT" default:"30s"`
}

// AWSConfig holds AWS resource identifiers.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// StatusQueueURL receives StatusChangeEvents. Empty disables publishing.
	StatusQueueURL string `envconfig:"SQS_STATUS_EVENTS" validate:"omitempty,url"`

	// ImportBucket is the default bucket read by the bulk importer.
	ImportBucket string `envconfig:"IMPORT_BUCKET"`

	// ImportConcurrency bounds how many wells a bulk import ingests at once.
	ImportConcurrency int `envconfig:"IMPORT_CONCURRENCY" default:"8" validate:"min=1,max=64"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// MQTTConfig configures device ingestion.
type MQTTConfig struct {
	Enabled  bool         `envconfig:"MQTT_ENABLED" default:"false"`
	Broker   string       `envconfig:"MQTT_BROKER" default:"localhost"`
	Port     int          `envconfig:"MQTT_PORT" default:"1883" validate:"min=1,max=65535"`
	ClientID string       `envconfig:"MQTT_CLIENT_ID" default:"wellwatch-api"`
	Topic    string       `envconfig:"MQTT_TOPIC" default:"wells/+/readings"`
	Username string       `envconfig:"MQTT_USERNAME"`
	Password SecretString `envconfig:"MQTT_PASSWORD"`
}

// HealthConfig holds the classification thresholds and the status windows.
// One-sided parameters have no lower bound; "-Inf" disables a bound.
type HealthConfig struct {
	PHCriticalBelow float64 `envconfig:"HEALTH_PH_CRITICAL_BELOW" default:"5.5"`
	PHWarningBelow  float64 `envconfig:"HEALTH_PH_WARNING_BELOW" default:"6.0"`
	PHWarningAbove  float64 `envconfig:"HEALTH_PH_WARNING_ABOVE" default:"9.0"`
	PHCriticalAbove float64 `envconfig:"HEALTH_PH_CRITICAL_ABOVE" default:"9.5"`

	TDSWarningAbove  float64 `envconfig:"HEALTH_TDS_WARNING_ABOVE" default:"500"`
	TDSCriticalAbove float64 `envconfig:"HEALTH_TDS_CRITICAL_ABOVE" default:"1000"`

	TurbidityWarningAbove  float64 `envconfig:"HEALTH_TURBIDITY_WARNING_ABOVE" default:"5"`
	TurbidityCriticalAbove float64 `envconfig:"HEALTH_TURBIDITY_CRITICAL_ABOVE" default:"10"`

	TemperatureCriticalBelow float64 `envconfig:"HEALTH_TEMPERATURE_CRITICAL_BELOW" default:"5"`
	TemperatureWarningBelow  float64 `envconfig:"HEALTH_TEMPERATURE_WARNING_BELOW" default:"10"`
	TemperatureWarningAbove  float64 `envconfig:"HEALTH_TEMPERATURE_WARNING_ABOVE" default:"30"`
	TemperatureCriticalAbove float64 `envconfig:"HEALTH_TEMPERATURE_CRITICAL_ABOVE" default:"35"`

	NitrateWarningAbove  float64 `envconfig:"HEALTH_NITRATE_WARNING_ABOVE" default:"10"`
	NitrateCriticalAbove float64 `envconfig:"HEALTH_NITRATE_CRITICAL_ABOVE" default:"50"`

	FluorideWarningAbove  float64 `envconfig:"HEALTH_FLUORIDE_WARNING_ABOVE" default:"1.5"`
	FluorideCriticalAbove float64 `envconfig:"HEALTH_FLUORIDE_CRITICAL_ABOVE" default:"2.5"`

	ArsenicWarningAbove  float64 `envconfig:"HEALTH_ARSENIC_WARNING_ABOVE" default:"0.01"`
	ArsenicCriticalAbove float64 `envconfig:"HEALTH_ARSENIC_CRITICAL_ABOVE" default:"0.05"`

	LeadWarningAbove  float64 `envconfig:"HEALTH_LEAD_WARNING_ABOVE" default:"0.01"`
	LeadCriticalAbove float64 `envconfig:"HEALTH_LEAD_CRITICAL_ABOVE" default:"0.015"`

	IronWarningAbove  float64 `envconfig:"HEALTH_IRON_WARNING_ABOVE" default:"0.3"`
	IronCriticalAbove float64 `envconfig:"HEALTH_IRON_CRITICAL_ABOVE" default:"1"`

	// InactivityWindow is how old the latest reading may be before a well
	// is shown as offline.
	InactivityWindow time.Duration `envconfig:"HEALTH_INACTIVITY_WINDOW" default:"2h" validate:"gt=0"`

	// HistoryWindow bounds the readings returned for history and forecasts.
	HistoryWindow time.Duration `envconfig:"HEALTH_HISTORY_WINDOW" default:"24h" validate:"gt=0"`
}

// ForecastConfig bounds the water-level forecast horizon, in hours.
type ForecastConfig struct {
	DefaultHorizon int `envconfig:"FORECAST_DEFAULT_HORIZON" default:"12" validate:"min=0"`
	MaxHorizon     int `envconfig:"FORECAST_MAX_HORIZON" default:"168" validate:"min=1,gtefield=DefaultHorizon"`
}

// RouteConfig tunes the field-route planner.
type RouteConfig struct {
	AverageSpeedKmh float64 `envconfig:"ROUTE_AVERAGE_SPEED_KMH" default:"40" validate:"gt=0"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"WellWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
