package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

// readingRow returns values in readingColumns order with pH and water level
// set and every other metric NULL.
func readingRow(id int64, wellID string, ph, level float64) []any {
	row := []any{id, wellID, testTime, types.SourceDevice, "", types.VerdictHealthy}
	for _, f := range types.AllMetricFields {
		switch f {
		case types.FieldPH:
			row = append(row, fPtr(ph))
		case types.FieldWaterLevel:
			row = append(row, fPtr(level))
		default:
			row = append(row, nil)
		}
	}
	return row
}

func TestReadingRepository_Insert(t *testing.T) {
	db := new(mockDBTX)
	repo := NewReadingRepository(db)

	r := &types.MetricReading{
		WellID:       "w1",
		RecordedAt:   testTime,
		Source:       types.SourceManual,
		Verdict:      types.VerdictWarning,
		Measurements: types.Measurements{TDS: fPtr(640)},
	}

	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "RETURNING id") && strings.Contains(sql, "$21")
	}), mock.MatchedBy(func(args []any) bool {
		return len(args) == 5+len(types.AllMetricFields) &&
			args[0] == "w1" &&
			*args[6].(*float64) == 640 && // tds
			args[5].(*float64) == nil // ph
	})).Return(&mockRow{values: []any{int64(42)}})

	require.NoError(t, repo.Insert(context.Background(), r))
	assert.Equal(t, int64(42), r.ID)
	db.AssertExpectations(t)
}

func TestReadingRepository_Insert_Error(t *testing.T) {
	db := new(mockDBTX)
	repo := NewReadingRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("fk violation")})

	err := repo.Insert(context.Background(), &types.MetricReading{WellID: "ghost"})
	requireAppCode(t, err, types.ErrCodeInternalDB)
}

func TestReadingRepository_Latest(t *testing.T) {
	db := new(mockDBTX)
	repo := NewReadingRepository(db)

	rows := newMockRows(readingRow(9, "w1", 7.1, 44), readingRow(3, "w2", 6.4, 38))
	db.On("Query", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "DISTINCT ON (r.well_id)") &&
			strings.Contains(sql, "r.recorded_at DESC, r.id DESC")
	}), []any{"", []string{"w1", "w2"}}).Return(rows, nil)

	got, err := repo.Latest(context.Background(), wells.WellFilter{IDs: []string{"w1", "w2"}})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, int64(9), got["w1"].ID)
	assert.Equal(t, 7.1, *got["w1"].PH)
	assert.Equal(t, 38.0, *got["w2"].WaterLevel)
	assert.Nil(t, got["w2"].TDS)
	db.AssertExpectations(t)
}

func TestReadingRepository_Since(t *testing.T) {
	db := new(mockDBTX)
	repo := NewReadingRepository(db)

	rows := newMockRows(readingRow(1, "w1", 7, 40), readingRow(2, "w1", 7.2, 39.5))
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{"w1", testTime}).Return(rows, nil)

	got, err := repo.Since(context.Background(), "w1", testTime)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.SourceDevice, got[0].Source)
	assert.Equal(t, 39.5, *got[1].WaterLevel)
}

func TestReadingRepository_Since_RowsError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewReadingRepository(db)

	rows := newMockRows()
	rows.errVal = errors.New("stream broken")
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	_, err := repo.Since(context.Background(), "w1", testTime)
	requireAppCode(t, err, types.ErrCodeInternalDB)
}

func TestSource_ImplementsStore(t *testing.T) {
	db := new(mockDBTX)
	src := NewSource(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconnTag("UPDATE 1"), nil)

	require.NoError(t, src.UpdateWellStatus(context.Background(), "w1", types.WellStatusWarning))
	db.AssertExpectations(t)
}
