package bulkimport

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func compressZstd(t *testing.T, data []byte) []byte {
	t.Helper()
	w, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	require.NoError(t, err)
	defer w.Close()
	return w.EncodeAll(data, nil)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		key        string
		format     Format
		compressed bool
		wantErr    bool
	}{
		{"readings.csv", FormatCSV, false, false},
		{"2026/03/Readings.CSV.zst", FormatCSV, true, false},
		{"dump.ndjson", FormatJSONL, false, false},
		{"dump.jsonl.zstd", FormatJSONL, true, false},
		{"export.json", FormatJSON, false, false},
		{"survey.xlsx", FormatXLSX, false, false},
		{"notes.txt", "", false, true},
		{"noext", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			format, compressed, err := DetectFormat(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.compressed, compressed)
		})
	}
}

func TestDecodeRowsCSV(t *testing.T) {
	body := "\uFEFFwell_id, ph ,tds,notes\nw1,7.2,,ok\n\nw2, 6.5 ,300\n"

	rows, err := DecodeRows("in.csv", []byte(body))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, map[string]any{"well_id": "w1", "ph": "7.2", "notes": "ok"}, rows[0])
	assert.Equal(t, map[string]any{"well_id": "w2", "ph": "6.5", "tds": "300"}, rows[1])
}

func TestDecodeRowsCompressed(t *testing.T) {
	body := compressZstd(t, []byte("well_id,ph\nw1,7\n"))

	rows, err := DecodeRows("in.csv.zst", body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0]["ph"])
}

func TestDecompressLimit(t *testing.T) {
	body := compressZstd(t, bytes.Repeat([]byte("w1,7\n"), 1000))

	out, err := decompress(body, 5000)
	require.NoError(t, err)
	assert.Len(t, out, 5000)

	_, err = decompress(body, 4999)
	assert.ErrorIs(t, err, ErrObjectTooLarge)
}

func TestDecodeRowsCompressedPastCap(t *testing.T) {
	body := compressZstd(t, make([]byte, MaxObjectBytes+1))
	require.Less(t, len(body), 1<<20)

	_, err := DecodeRows("bomb.csv.zst", body)
	assert.ErrorIs(t, err, ErrObjectTooLarge)
}

func TestDecodeRowsCorruptZstd(t *testing.T) {
	_, err := DecodeRows("in.csv.zst", []byte("not zstd"))
	assert.ErrorContains(t, err, "zstd")
}

func TestDecodeRowsJSONLines(t *testing.T) {
	body := `{"well_id":"w1","ph":7.25}

{"well_id":"w2","metrics":{"tds":410}}
`
	rows, err := DecodeRows("in.jsonl", []byte(body))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, json.Number("7.25"), rows[0]["ph"])

	_, err = DecodeRows("in.jsonl", []byte("{\"a\":1}\n[1,2]\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestDecodeRowsJSON(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		rows, err := DecodeRows("in.json", []byte(`[{"well_id":"w1"},{"well_id":"w2"}]`))
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
	t.Run("wrapped", func(t *testing.T) {
		rows, err := DecodeRows("in.json", []byte(`{"readings":[{"well_id":"w1"}]}`))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
	t.Run("wrong shape", func(t *testing.T) {
		_, err := DecodeRows("in.json", []byte(`{"wells":[]}`))
		assert.Error(t, err)
	})
	t.Run("non-object item", func(t *testing.T) {
		_, err := DecodeRows("in.json", []byte(`[{"well_id":"w1"}, 3]`))
		assert.ErrorContains(t, err, "item 1")
	})
}

func TestDecodeRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"well_id", "ph", "water_level"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"w1", "7.1", "12.5"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"w2", "", "9"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := DecodeRows("survey.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"well_id": "w1", "ph": "7.1", "water_level": "12.5"}, rows[0])
	assert.Equal(t, map[string]any{"well_id": "w2", "water_level": "9"}, rows[1])
}

func TestDecodeRowsUnsupported(t *testing.T) {
	_, err := DecodeRows("x.parquet", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
