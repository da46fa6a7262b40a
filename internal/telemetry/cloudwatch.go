// Package telemetry publishes API and fleet metrics to CloudWatch.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

// maxDatumsPerCall is the PutMetricData limit per request.
const maxDatumsPerCall = 1000

// CloudWatchClient is the slice of *cloudwatch.Client used here.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics buffers request datums and flushes them in batches. Fleet gauges
// are sent immediately. It satisfies core.MetricsCollector.
type Metrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []cwtypes.MetricDatum
}

// NewMetrics creates a Metrics buffer publishing under namespace.
func NewMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *Metrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Metrics{client: client, namespace: namespace, logger: logger, now: time.Now}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// RecordRequest queues one latency and one count datum.
func (m *Metrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	ts := aws.Time(m.now())
	dims := []cwtypes.Dimension{
		dim(types.DimEndpoint, endpoint),
		dim(types.DimMethod, method),
		dim(types.DimStatusCode, status),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending,
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Timestamp:  ts,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  ts,
			Dimensions: dims,
		},
	)
}

// RecordIngest queues a ReadingsIngested count for source.
func (m *Metrics) RecordIngest(source types.ReadingSource, n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricReadingsIngested),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  aws.Time(m.now()),
		Dimensions: []cwtypes.Dimension{dim(types.DimSource, string(source))},
	})
}

// Flush sends everything queued so far. Datums from a failed batch are
// dropped and logged; metrics are best effort.
func (m *Metrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	return m.put(ctx, batch)
}

func (m *Metrics) put(ctx context.Context, data []cwtypes.MetricDatum) error {
	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to publish metrics",
				"error", err,
				"dropped", len(data)-start,
			)
			return err
		}
	}
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more with
// a short detached deadline.
func (m *Metrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			_ = m.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			_ = m.Flush(ctx)
		}
	}
}

// PublishFleetSummary sends one WellsByStatus gauge per status, including
// zero counts so that alarms see continuous data.
func (m *Metrics) PublishFleetSummary(ctx context.Context, sum *wells.Summary) error {
	ts := aws.Time(sum.GeneratedAt)
	data := make([]cwtypes.MetricDatum, 0, len(fleetStatuses))
	for _, st := range fleetStatuses {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricWellsByStatus),
			Value:      aws.Float64(float64(sum.ByStatus[st])),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  ts,
			Dimensions: []cwtypes.Dimension{dim(types.DimWellStatus, string(st))},
		})
	}
	return m.put(ctx, data)
}

var fleetStatuses = []types.WellStatus{
	types.WellStatusActive,
	types.WellStatusWarning,
	types.WellStatusCritical,
	types.WellStatusOffline,
}
