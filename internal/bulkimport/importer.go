// Package bulkimport loads historical readings from CSV, JSON-lines, JSON
// and XLSX files in S3 and feeds them through the normal ingest path.
package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/sync/errgroup"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

const (
	// MaxObjectBytes caps the size of one import file, both as downloaded
	// and after decompression.
	MaxObjectBytes = 64 << 20
	// maxReportedErrors bounds Report.Failed.
	maxReportedErrors = 100
)

// Ingester is satisfied by *wells.Service.
type Ingester interface {
	IngestReading(ctx context.Context, req wells.IngestRequest) (*wells.IngestResult, error)
}

// Recorder counts ingested readings.
type Recorder interface {
	RecordIngest(source types.ReadingSource, n int)
}

// RowError describes one row that could not be ingested. Row is 1-based and
// counts data rows only.
type RowError struct {
	Row    int    `json:"row"`
	WellID string `json:"well_id,omitempty"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// Report summarizes one imported object.
type Report struct {
	Bucket     string     `json:"bucket"`
	Key        string     `json:"key"`
	Rows       int        `json:"rows"`
	Ingested   int        `json:"ingested"`
	FailedRows int        `json:"failed_rows"`
	Failed     []RowError `json:"failed,omitempty"`
}

// Importer decodes import objects and ingests their rows.
type Importer struct {
	objects     ObjectGetter
	ingester    Ingester
	recorder    Recorder
	concurrency int
	logger      *slog.Logger
}

// NewImporter creates an Importer. concurrency bounds how many wells are
// ingested at once; values below 1 mean 1. recorder may be nil.
func NewImporter(objects ObjectGetter, ingester Ingester, recorder Recorder, concurrency int, logger *slog.Logger) *Importer {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		objects:     objects,
		ingester:    ingester,
		recorder:    recorder,
		concurrency: concurrency,
		logger:      logger,
	}
}

type indexedRow struct {
	n   int
	req wells.IngestRequest
}

// ImportObject downloads, decodes and ingests one object. Rows of the same
// well are ingested in file order so that the cached status ends on the last
// row; different wells proceed concurrently. Row failures are collected in
// the report and do not fail the import.
func (im *Importer) ImportObject(ctx context.Context, bucket, key string) (*Report, error) {
	body, err := im.fetch(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	rows, err := DecodeRows(key, body)
	if errors.Is(err, ErrObjectTooLarge) {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationBatchSize, "import object is too large", err,
			map[string]any{"key": key, "max_bytes": MaxObjectBytes})
	}
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidField, "import file could not be decoded", err,
			map[string]any{"bucket": bucket, "key": key})
	}

	report := &Report{Bucket: bucket, Key: key, Rows: len(rows)}
	var mu sync.Mutex
	fail := func(r indexedRow, err error) {
		code := string(types.ErrCodeInternalUnexpected)
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			code = string(appErr.Code)
		}
		mu.Lock()
		defer mu.Unlock()
		report.FailedRows++
		if len(report.Failed) < maxReportedErrors {
			report.Failed = append(report.Failed, RowError{Row: r.n, WellID: r.req.WellID, Code: code, Error: err.Error()})
		}
	}

	groups := map[string][]indexedRow{}
	var order []string
	for i, raw := range rows {
		req := wells.IngestRequestFromMap("", raw)
		req.Source = types.SourceBulkImport
		r := indexedRow{n: i + 1, req: req}
		if req.WellID == "" {
			fail(r, types.NewAppError(types.ErrCodeValidationMissingField, "row has no well_id", nil))
			continue
		}
		if _, ok := groups[req.WellID]; !ok {
			order = append(order, req.WellID)
		}
		groups[req.WellID] = append(groups[req.WellID], r)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for _, wellID := range order {
		group := groups[wellID]
		g.Go(func() error {
			ok := 0
			for _, r := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				if _, err := im.ingester.IngestReading(gctx, r.req); err != nil {
					fail(r, err)
					continue
				}
				ok++
			}
			mu.Lock()
			report.Ingested += ok
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Row < report.Failed[j].Row })
	if im.recorder != nil && report.Ingested > 0 {
		im.recorder.RecordIngest(types.SourceBulkImport, report.Ingested)
	}
	im.logger.InfoContext(ctx, "bulk import finished",
		"bucket", bucket,
		"key", key,
		"rows", report.Rows,
		"ingested", report.Ingested,
		"failed", report.FailedRows,
	)
	return report, nil
}

func (im *Importer) fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := im.objects.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamObjectStore, "failed to fetch import object", err,
			map[string]any{"bucket": bucket, "key": key})
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, MaxObjectBytes+1))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamObjectStore, "failed to read import object", err)
	}
	if len(body) > MaxObjectBytes {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationBatchSize, "import object is too large", nil,
			map[string]any{"key": key, "max_bytes": MaxObjectBytes})
	}
	return body, nil
}

// HandleS3Event imports every object named in an S3 notification. Objects
// are processed one after another; the first infrastructure error aborts so
// the invocation is retried.
func (im *Importer) HandleS3Event(ctx context.Context, evt events.S3Event) ([]*Report, error) {
	reports := make([]*Report, 0, len(evt.Records))
	for _, rec := range evt.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}
		report, err := im.ImportObject(ctx, rec.S3.Bucket.Name, key)
		if err != nil {
			var appErr *types.AppError
			if errors.As(err, &appErr) && appErr.HTTPStatus() < 500 {
				im.logger.WarnContext(ctx, "skipping import object", "key", key, "error", err)
				continue
			}
			return reports, fmt.Errorf("importing s3://%s/%s: %w", rec.S3.Bucket.Name, key, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}
