package wells

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"wellwatch/internal/types"
)

// BreakerSettings tunes GuardedStore.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	Timeout             time.Duration
}

// GuardedStore wraps a Store in a circuit breaker. While the breaker is open
// calls fail fast with ErrCodeUpstreamDatastore. Domain errors such as
// not-found or validation do not count as failures.
type GuardedStore struct {
	next    Store
	breaker *gobreaker.CircuitBreaker[any]
}

var _ Store = (*GuardedStore)(nil)

// NewGuardedStore wraps next in a circuit breaker.
func NewGuardedStore(next Store, settings BreakerSettings, logger *slog.Logger) *GuardedStore {
	if settings.Name == "" {
		settings.Name = "datastore"
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("datastore circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &GuardedStore{next: next, breaker: cb}
}

// isBreakerSuccess treats client-side outcomes as healthy calls.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus() < 500
	}
	return false
}

func guard[T any](g *GuardedStore, fn func() (T, error)) (T, error) {
	res, err := g.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, types.NewAppError(types.ErrCodeUpstreamDatastore, "datastore temporarily unavailable", err)
		}
		return zero, err
	}
	return res.(T), nil
}

func guardErr(g *GuardedStore, fn func() error) error {
	_, err := guard(g, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// State exposes the breaker state for health probes.
func (g *GuardedStore) State() gobreaker.State {
	return g.breaker.State()
}

func (g *GuardedStore) ListWells(ctx context.Context, filter WellFilter) ([]types.Well, error) {
	return guard(g, func() ([]types.Well, error) { return g.next.ListWells(ctx, filter) })
}

func (g *GuardedStore) GetWell(ctx context.Context, id string) (*types.Well, error) {
	return guard(g, func() (*types.Well, error) { return g.next.GetWell(ctx, id) })
}

func (g *GuardedStore) LatestReadings(ctx context.Context, filter WellFilter) (map[string]types.MetricReading, error) {
	return guard(g, func() (map[string]types.MetricReading, error) { return g.next.LatestReadings(ctx, filter) })
}

func (g *GuardedStore) ReadingsSince(ctx context.Context, wellID string, since time.Time) ([]types.MetricReading, error) {
	return guard(g, func() ([]types.MetricReading, error) { return g.next.ReadingsSince(ctx, wellID, since) })
}

func (g *GuardedStore) UpsertWell(ctx context.Context, w *types.Well) (*types.Well, error) {
	return guard(g, func() (*types.Well, error) { return g.next.UpsertWell(ctx, w) })
}

func (g *GuardedStore) RenameWell(ctx context.Context, id, name string) (*types.Well, error) {
	return guard(g, func() (*types.Well, error) { return g.next.RenameWell(ctx, id, name) })
}

func (g *GuardedStore) DeleteWell(ctx context.Context, id string) error {
	return guardErr(g, func() error { return g.next.DeleteWell(ctx, id) })
}

func (g *GuardedStore) InsertReading(ctx context.Context, r *types.MetricReading) error {
	return guardErr(g, func() error { return g.next.InsertReading(ctx, r) })
}

func (g *GuardedStore) UpdateWellStatus(ctx context.Context, id string, st types.WellStatus) error {
	return guardErr(g, func() error { return g.next.UpdateWellStatus(ctx, id, st) })
}
