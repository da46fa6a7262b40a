package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

//go:embed sql/list-wells.sql
var listWellsSQL string

//go:embed sql/get-well.sql
var getWellSQL string

//go:embed sql/upsert-well.sql
var upsertWellSQL string

//go:embed sql/rename-well.sql
var renameWellSQL string

//go:embed sql/update-well-status.sql
var updateWellStatusSQL string

//go:embed sql/delete-well.sql
var deleteWellSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/latest-readings.sql
var latestReadingsSQL string

//go:embed sql/readings-since.sql
var readingsSinceSQL string

// Store implements wells.Store. Timestamps are persisted as UTC unix
// nanoseconds.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ wells.Store = (*Store)(nil)

// NewStore returns a Store over an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWell(row scanner) (*types.Well, error) {
	var (
		w                              types.Well
		panchayat, village, contactTel sql.NullString
		created, updated               int64
	)
	err := row.Scan(
		&w.ID,
		&w.OwnerID,
		&w.Name,
		&panchayat,
		&village,
		&contactTel,
		&w.Lat,
		&w.Lng,
		&w.Status,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	w.PanchayatName = panchayat.String
	w.VillageName = village.String
	w.ContactPhone = contactTel.String
	w.CreatedAt = fromNanos(created)
	w.UpdatedAt = fromNanos(updated)
	return &w, nil
}

func scanReading(row scanner) (types.MetricReading, error) {
	var (
		r        types.MetricReading
		recorded int64
	)
	dest := []any{&r.ID, &r.WellID, &recorded, &r.Source, &r.Notes, &r.Verdict}
	for _, f := range types.AllMetricFields {
		dest = append(dest, r.Measurements.Ptr(f))
	}
	if err := row.Scan(dest...); err != nil {
		return types.MetricReading{}, err
	}
	r.RecordedAt = fromNanos(recorded)
	return r, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// idList encodes filter IDs for json_each. An empty filter encodes as [].
func idList(f wells.WellFilter) string {
	if len(f.IDs) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(f.IDs)
	return string(b)
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "query", what, "error", err)
	}
}

func (s *Store) ListWells(ctx context.Context, filter wells.WellFilter) ([]types.Well, error) {
	rows, err := s.db.QueryContext(ctx, listWellsSQL, filter.OwnerID, idList(filter))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list wells", err)
	}
	defer closeRows(rows, "list-wells")

	out := []types.Well{}
	for rows.Next() {
		w, err := scanWell(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan well", err)
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate wells", err)
	}
	return out, nil
}

func (s *Store) GetWell(ctx context.Context, id string) (*types.Well, error) {
	w, err := scanWell(s.db.QueryRowContext(ctx, getWellSQL, id))
	if err != nil {
		return nil, mapWellErr(err, "failed to retrieve well")
	}
	return w, nil
}

func (s *Store) UpsertWell(ctx context.Context, w *types.Well) (*types.Well, error) {
	stored, err := scanWell(s.db.QueryRowContext(ctx, upsertWellSQL,
		w.ID, w.OwnerID, w.Name,
		nullable(w.PanchayatName), nullable(w.VillageName), nullable(w.ContactPhone),
		w.Lat, w.Lng, w.Status, s.now().UnixNano(),
	))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to upsert well", err)
	}
	return stored, nil
}

func (s *Store) RenameWell(ctx context.Context, id, name string) (*types.Well, error) {
	w, err := scanWell(s.db.QueryRowContext(ctx, renameWellSQL, id, name, s.now().UnixNano()))
	if err != nil {
		return nil, mapWellErr(err, "failed to rename well")
	}
	return w, nil
}

func (s *Store) UpdateWellStatus(ctx context.Context, id string, status types.WellStatus) error {
	res, err := s.db.ExecContext(ctx, updateWellStatusSQL, id, status, s.now().UnixNano())
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update well status", err)
	}
	return requireAffected(res)
}

// DeleteWell removes the well. Readings cascade through the foreign key,
// which Open enables on every connection.
func (s *Store) DeleteWell(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, deleteWellSQL, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete well", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to read affected rows", err)
	}
	if n == 0 {
		return types.NewAppError(types.ErrCodeNotFoundWell, "well not found", nil)
	}
	return nil
}

func (s *Store) InsertReading(ctx context.Context, r *types.MetricReading) error {
	args := []any{r.WellID, r.RecordedAt.UnixNano(), r.Source, r.Notes, r.Verdict}
	for _, f := range types.AllMetricFields {
		args = append(args, r.Get(f))
	}
	res, err := s.db.ExecContext(ctx, insertReadingSQL, args...)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert reading", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to read reading id", err)
	}
	r.ID = id
	return nil
}

func (s *Store) LatestReadings(ctx context.Context, filter wells.WellFilter) (map[string]types.MetricReading, error) {
	rows, err := s.db.QueryContext(ctx, latestReadingsSQL, filter.OwnerID, idList(filter))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load latest readings", err)
	}
	defer closeRows(rows, "latest-readings")

	out := make(map[string]types.MetricReading)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reading", err)
		}
		out[r.WellID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate readings", err)
	}
	return out, nil
}

func (s *Store) ReadingsSince(ctx context.Context, wellID string, since time.Time) ([]types.MetricReading, error) {
	rows, err := s.db.QueryContext(ctx, readingsSinceSQL, wellID, since.UnixNano())
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load reading history", err)
	}
	defer closeRows(rows, "readings-since")

	out := []types.MetricReading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reading", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate readings", err)
	}
	return out, nil
}

func mapWellErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewAppError(types.ErrCodeNotFoundWell, "well not found", nil)
	}
	return types.NewAppError(types.ErrCodeInternalDB, msg, err)
}
