package db

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

// ReadingRepository provides append-only access to the readings table.
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository creates a ReadingRepository.
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

var (
	metricColumns  = metricColumnList()
	readingColumns = "id, well_id, recorded_at, source, notes, verdict, " + metricColumns
)

func metricColumnList() string {
	cols := make([]string, len(types.AllMetricFields))
	for i, f := range types.AllMetricFields {
		cols[i] = string(f)
	}
	return strings.Join(cols, ", ")
}

func scanReading(row pgx.Row) (*types.MetricReading, error) {
	var r types.MetricReading
	dest := []any{&r.ID, &r.WellID, &r.RecordedAt, &r.Source, &r.Notes, &r.Verdict}
	for _, f := range types.AllMetricFields {
		dest = append(dest, r.Measurements.Ptr(f))
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	r.RecordedAt = r.RecordedAt.UTC()
	return &r, nil
}

// Insert appends r and sets r.ID.
func (rr *ReadingRepository) Insert(ctx context.Context, r *types.MetricReading) error {
	args := []any{r.WellID, r.RecordedAt, r.Source, r.Notes, r.Verdict}
	placeholders := make([]string, 0, len(args)+len(types.AllMetricFields))
	for i := range args {
		placeholders = append(placeholders, "$"+strconv.Itoa(i+1))
	}
	for _, f := range types.AllMetricFields {
		args = append(args, r.Get(f))
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}

	err := rr.db.QueryRow(ctx, `
		INSERT INTO readings (well_id, recorded_at, source, notes, verdict, `+metricColumns+`)
		VALUES (`+strings.Join(placeholders, ", ")+`)
		RETURNING id`,
		args...,
	).Scan(&r.ID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert reading", err)
	}
	return nil
}

// Latest returns the newest reading per well. Ties on recorded_at go to the
// highest id.
func (rr *ReadingRepository) Latest(ctx context.Context, filter wells.WellFilter) (map[string]types.MetricReading, error) {
	rows, err := rr.db.Query(ctx, `
		SELECT DISTINCT ON (r.well_id) `+prefixed("r.", readingColumns)+`
		FROM readings r
		JOIN wells w ON w.id = r.well_id
		WHERE ($1 = '' OR w.owner_id = $1)
		  AND (cardinality($2::text[]) = 0 OR r.well_id = ANY($2::text[]))
		ORDER BY r.well_id, r.recorded_at DESC, r.id DESC`,
		filter.OwnerID, ids(filter),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query latest readings", err)
	}
	defer rows.Close()

	out := make(map[string]types.MetricReading)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reading", err)
		}
		out[r.WellID] = *r
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate readings", err)
	}
	return out, nil
}

// Since returns a well's readings at or after since, oldest first.
func (rr *ReadingRepository) Since(ctx context.Context, wellID string, since time.Time) ([]types.MetricReading, error) {
	rows, err := rr.db.Query(ctx, `
		SELECT `+readingColumns+`
		FROM readings
		WHERE well_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at, id`,
		wellID, since,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query readings", err)
	}
	defer rows.Close()

	out := []types.MetricReading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reading", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate readings", err)
	}
	return out, nil
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}
