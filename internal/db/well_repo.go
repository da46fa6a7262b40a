package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

// WellRepository provides data access for the wells table.
type WellRepository struct {
	db DBTX
}

// NewWellRepository creates a WellRepository.
func NewWellRepository(db DBTX) *WellRepository {
	return &WellRepository{db: db}
}

const wellColumns = `id, owner_id, name, panchayat_name, village_name, contact_phone,
	lat, lng, status, created_at, updated_at`

// scanWell reads one row in wellColumns order. pgx.Rows satisfies pgx.Row.
func scanWell(row pgx.Row) (*types.Well, error) {
	var (
		w                              types.Well
		panchayat, village, contactTel *string
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
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.PanchayatName = deref(panchayat)
	w.VillageName = deref(village)
	w.ContactPhone = deref(contactTel)
	return &w, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ids is never nil so that cardinality() sees an empty array rather than NULL.
func ids(f wells.WellFilter) []string {
	if f.IDs == nil {
		return []string{}
	}
	return f.IDs
}

// List returns wells matching filter ordered by creation time.
func (r *WellRepository) List(ctx context.Context, filter wells.WellFilter) ([]types.Well, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+wellColumns+`
		FROM wells
		WHERE ($1 = '' OR owner_id = $1)
		  AND (cardinality($2::text[]) = 0 OR id = ANY($2::text[]))
		ORDER BY created_at, id`,
		filter.OwnerID, ids(filter),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list wells", err)
	}
	defer rows.Close()

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

// GetByID returns ErrCodeNotFoundWell when the row does not exist.
func (r *WellRepository) GetByID(ctx context.Context, id string) (*types.Well, error) {
	w, err := scanWell(r.db.QueryRow(ctx, `SELECT `+wellColumns+` FROM wells WHERE id = $1`, id))
	if err != nil {
		return nil, mapWellErr(err, "failed to retrieve well")
	}
	return w, nil
}

// Upsert inserts the well or replaces every mutable column of an existing one.
func (r *WellRepository) Upsert(ctx context.Context, w *types.Well) (*types.Well, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO wells (id, owner_id, name, panchayat_name, village_name, contact_phone, lat, lng, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name           = EXCLUDED.name,
			panchayat_name = EXCLUDED.panchayat_name,
			village_name   = EXCLUDED.village_name,
			contact_phone  = EXCLUDED.contact_phone,
			lat            = EXCLUDED.lat,
			lng            = EXCLUDED.lng,
			status         = EXCLUDED.status,
			updated_at     = now()
		RETURNING `+wellColumns,
		w.ID, w.OwnerID, w.Name,
		nullable(w.PanchayatName), nullable(w.VillageName), nullable(w.ContactPhone),
		w.Lat, w.Lng, w.Status,
	)
	stored, err := scanWell(row)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to upsert well", err)
	}
	return stored, nil
}

// Rename changes a well's display name.
func (r *WellRepository) Rename(ctx context.Context, id, name string) (*types.Well, error) {
	w, err := scanWell(r.db.QueryRow(ctx, `
		UPDATE wells SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+wellColumns,
		id, name,
	))
	if err != nil {
		return nil, mapWellErr(err, "failed to rename well")
	}
	return w, nil
}

// UpdateStatus sets the cached status of a well.
func (r *WellRepository) UpdateStatus(ctx context.Context, id string, status types.WellStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE wells SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update well status", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundWell, "well not found", nil)
	}
	return nil
}

// Delete hard-deletes the well. Readings go with it via ON DELETE CASCADE.
func (r *WellRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM wells WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete well", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundWell, "well not found", nil)
	}
	return nil
}

func mapWellErr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return types.NewAppError(types.ErrCodeNotFoundWell, "well not found", nil)
	}
	return types.NewAppError(types.ErrCodeInternalDB, msg, err)
}
