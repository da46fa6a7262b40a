package bulkimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/xuri/excelize/v2"
)

// Format is the row encoding of an import file, picked from its extension.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	FormatXLSX  Format = "xlsx"
)

// maxLineBytes bounds a single JSON-lines record.
const maxLineBytes = 1 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported import format")
	ErrObjectTooLarge    = errors.New("import object too large")
)

var decoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
		}
		return d
	},
}

// DetectFormat maps a key such as "2026/03/readings.csv.zst" to its row
// format and whether the payload is zstd-compressed.
func DetectFormat(key string) (Format, bool, error) {
	name := strings.ToLower(path.Base(key))
	compressed := false
	for _, suffix := range []string{".zst", ".zstd"} {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			compressed = true
			break
		}
	}
	switch path.Ext(name) {
	case ".csv":
		return FormatCSV, compressed, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, compressed, nil
	case ".json":
		return FormatJSON, compressed, nil
	case ".xlsx":
		return FormatXLSX, compressed, nil
	}
	return "", compressed, fmt.Errorf("%w: %s", ErrUnsupportedFormat, key)
}

// DecodeRows turns an import object into raw row maps keyed by header.
func DecodeRows(key string, body []byte) ([]map[string]any, error) {
	format, compressed, err := DetectFormat(key)
	if err != nil {
		return nil, err
	}
	if compressed {
		if body, err = decompress(body, MaxObjectBytes); err != nil {
			return nil, err
		}
	}

	switch format {
	case FormatCSV:
		return decodeCSV(body)
	case FormatJSONL:
		return decodeJSONLines(body)
	case FormatJSON:
		return decodeJSON(body)
	default:
		return decodeXLSX(body)
	}
}

// decompress inflates a zstd payload, failing with ErrObjectTooLarge once
// the output passes limit bytes.
func decompress(data []byte, limit int64) ([]byte, error) {
	d := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(d)

	if err := d.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	out, err := io.ReadAll(io.LimitReader(d, limit+1))
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: decompressed size exceeds %d bytes", ErrObjectTooLarge, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	return out, nil
}

func decodeCSV(body []byte) ([]map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte("\uFEFF"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return tableRows(records), nil
}

func decodeXLSX(body []byte) ([]map[string]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []map[string]any{}, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return tableRows(records), nil
}

// tableRows uses the first record as the header. Blank cells are left out so
// that they normalize to "not measured".
func tableRows(records [][]string) []map[string]any {
	rows := []map[string]any{}
	if len(records) == 0 {
		return rows
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, cell := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				row[header[i]] = cell
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

func decodeJSONLines(body []byte) ([]map[string]any, error) {
	rows := []map[string]any{}
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		row, err := decodeObject(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading json lines: %w", err)
	}
	return rows, nil
}

// decodeJSON accepts a top-level array or {"readings": [...]}.
func decodeJSON(body []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	if obj, ok := doc.(map[string]any); ok {
		doc = obj["readings"]
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, errors.New(`json import must be an array or {"readings": [...]}`)
	}

	rows := make([]map[string]any, 0, len(list))
	for i, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.New("record is not an object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after record")
	}
	return row, nil
}
