package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

var testTime = time.Date(2025, 5, 4, 8, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func fPtr(f float64) *float64 { return &f }

// wellRow returns values in wellColumns order.
func wellRow(id, owner string, lat, lng *float64, status types.WellStatus) []any {
	return []any{id, owner, "Well " + id, strPtr("Hosakote"), nil, strPtr("+91 98450 00000"),
		lat, lng, status, testTime, testTime}
}

func requireAppCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestWellRepository_GetByID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"w1"}).
		Return(&mockRow{values: wellRow("w1", "o1", fPtr(13.1), fPtr(77.8), types.WellStatusWarning)})

	w, err := repo.GetByID(context.Background(), "w1")
	require.NoError(t, err)

	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, "o1", w.OwnerID)
	assert.Equal(t, "Hosakote", w.PanchayatName)
	assert.Equal(t, "", w.VillageName)
	assert.Equal(t, 13.1, *w.Lat)
	assert.Equal(t, types.WellStatusWarning, w.Status)
	db.AssertExpectations(t)
}

func TestWellRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(context.Background(), "missing")
	requireAppCode(t, err, types.ErrCodeNotFoundWell)
}

func TestWellRepository_GetByID_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)
	boom := errors.New("conn reset")

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: boom})

	_, err := repo.GetByID(context.Background(), "w1")
	requireAppCode(t, err, types.ErrCodeInternalDB)
	assert.ErrorIs(t, err, boom)
}

func TestWellRepository_List(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)

	rows := newMockRows(
		wellRow("w1", "o1", fPtr(1), fPtr(2), types.WellStatusActive),
		wellRow("w2", "o1", nil, nil, types.WellStatusCritical),
	)
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{"o1", []string{}}).Return(rows, nil)

	got, err := repo.List(context.Background(), wells.WellFilter{OwnerID: "o1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[1].Lat)
	assert.True(t, rows.closed)
	db.AssertExpectations(t)
}

func TestWellRepository_List_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("timeout"))

	_, err := repo.List(context.Background(), wells.WellFilter{})
	requireAppCode(t, err, types.ErrCodeInternalDB)
}

func TestWellRepository_Upsert(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)

	in := &types.Well{ID: "w1", OwnerID: "o1", Name: "Well w1", PanchayatName: "Hosakote",
		Lat: fPtr(1), Lng: fPtr(2), Status: types.WellStatusActive}

	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return assert.Contains(t, sql, "ON CONFLICT (id) DO UPDATE")
	}), mock.MatchedBy(func(args []any) bool {
		// empty optional strings are written as NULL
		return args[0] == "w1" && args[4] == (*string)(nil) && *args[3].(*string) == "Hosakote"
	})).Return(&mockRow{values: wellRow("w1", "o1", fPtr(1), fPtr(2), types.WellStatusActive)})

	stored, err := repo.Upsert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, testTime, stored.CreatedAt)
	db.AssertExpectations(t)
}

func TestWellRepository_Rename_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.Rename(context.Background(), "w1", "New name")
	requireAppCode(t, err, types.ErrCodeNotFoundWell)
}

func TestWellRepository_UpdateStatusAndDelete(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)
	ctx := context.Background()

	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return sql == `UPDATE wells SET status = $2, updated_at = now() WHERE id = $1`
	}), []any{"w1", types.WellStatusCritical}).Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	db.On("Exec", mock.Anything, `DELETE FROM wells WHERE id = $1`, []any{"w1"}).
		Return(pgconn.NewCommandTag("DELETE 1"), nil).Once()
	db.On("Exec", mock.Anything, `DELETE FROM wells WHERE id = $1`, []any{"w1"}).
		Return(pgconn.NewCommandTag("DELETE 0"), nil).Once()

	require.NoError(t, repo.UpdateStatus(ctx, "w1", types.WellStatusCritical))
	require.NoError(t, repo.Delete(ctx, "w1"))
	requireAppCode(t, repo.Delete(ctx, "w1"), types.ErrCodeNotFoundWell)
	db.AssertExpectations(t)
}

func TestWellRepository_UpdateStatus_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWellRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	requireAppCode(t, repo.UpdateStatus(context.Background(), "nope", types.WellStatusActive), types.ErrCodeNotFoundWell)
}
