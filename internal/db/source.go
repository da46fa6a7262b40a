package db

import (
	"context"
	"time"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

// Source composes the repositories into a wells.Store.
type Source struct {
	Wells    *WellRepository
	Readings *ReadingRepository
}

var _ wells.Store = (*Source)(nil)

// NewSource composes the well and reading repositories over db.
func NewSource(db DBTX) *Source {
	return &Source{
		Wells:    NewWellRepository(db),
		Readings: NewReadingRepository(db),
	}
}

func (s *Source) ListWells(ctx context.Context, filter wells.WellFilter) ([]types.Well, error) {
	return s.Wells.List(ctx, filter)
}

func (s *Source) GetWell(ctx context.Context, id string) (*types.Well, error) {
	return s.Wells.GetByID(ctx, id)
}

func (s *Source) LatestReadings(ctx context.Context, filter wells.WellFilter) (map[string]types.MetricReading, error) {
	return s.Readings.Latest(ctx, filter)
}

func (s *Source) ReadingsSince(ctx context.Context, wellID string, since time.Time) ([]types.MetricReading, error) {
	return s.Readings.Since(ctx, wellID, since)
}

func (s *Source) UpsertWell(ctx context.Context, w *types.Well) (*types.Well, error) {
	return s.Wells.Upsert(ctx, w)
}

func (s *Source) RenameWell(ctx context.Context, id, name string) (*types.Well, error) {
	return s.Wells.Rename(ctx, id, name)
}

func (s *Source) DeleteWell(ctx context.Context, id string) error {
	return s.Wells.Delete(ctx, id)
}

func (s *Source) InsertReading(ctx context.Context, r *types.MetricReading) error {
	return s.Readings.Insert(ctx, r)
}

func (s *Source) UpdateWellStatus(ctx context.Context, id string, status types.WellStatus) error {
	return s.Wells.UpdateStatus(ctx, id, status)
}
