// Package wells orchestrates the well registry, reading ingestion and the
// health, status, forecast and route engines on top of a Store.
package wells

import (
	"context"
	"time"

	"wellwatch/internal/types"
)

// WellFilter narrows well and reading queries. Empty fields match everything.
type WellFilter struct {
	OwnerID string
	IDs     []string
}

// DataSource is the read side of persistence.
type DataSource interface {
	ListWells(ctx context.Context, filter WellFilter) ([]types.Well, error)
	GetWell(ctx context.Context, id string) (*types.Well, error)
	// LatestReadings returns the newest reading per well keyed by well ID.
	// Ties on recorded_at go to the highest reading ID.
	LatestReadings(ctx context.Context, filter WellFilter) (map[string]types.MetricReading, error)
	// ReadingsSince returns readings at or after since, oldest first.
	ReadingsSince(ctx context.Context, wellID string, since time.Time) ([]types.MetricReading, error)
}

// Store is the full persistence contract implemented by the postgres and
// sqlite backends.
type Store interface {
	DataSource

	// UpsertWell inserts or replaces the well keyed by ID and returns the
	// stored row with server-side timestamps.
	UpsertWell(ctx context.Context, w *types.Well) (*types.Well, error)
	RenameWell(ctx context.Context, id, name string) (*types.Well, error)
	DeleteWell(ctx context.Context, id string) error
	// InsertReading appends r and sets r.ID.
	InsertReading(ctx context.Context, r *types.MetricReading) error
	UpdateWellStatus(ctx context.Context, id string, status types.WellStatus) error
}

// AlertPublisher hands status transitions to the external alerting system.
type AlertPublisher interface {
	PublishStatusChange(ctx context.Context, evt types.StatusChangeEvent) error
}
