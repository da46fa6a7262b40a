package types

import "time"

// EventType identifies a published domain event.
type EventType string

const (
	EventWellStatusChanged EventType = "well_status_changed"
)

// StatusChangeEvent is published when a well's cached status moves into
// warning or critical. Delivery (email, SMS) is the consumer's concern.
type StatusChangeEvent struct {
	EventID        string        `json:"event_id"`
	EventType      EventType     `json:"event_type"`
	WellID         string        `json:"well_id"`
	WellName       string        `json:"well_name"`
	OwnerID        string        `json:"owner_id"`
	PreviousStatus WellStatus    `json:"previous_status,omitempty"`
	Status         WellStatus    `json:"status"`
	Verdict        HealthVerdict `json:"verdict,omitempty"`
	ReadingID      int64         `json:"reading_id,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
	TraceID        string        `json:"trace_id,omitempty"`
}

// Metric names and dimensions published to CloudWatch.
const (
	MetricNamespace = "WellWatch"

	MetricAPILatency       = "APILatency"
	MetricAPIRequestCount  = "APIRequestCount"
	MetricWellsByStatus    = "WellsByStatus"
	MetricReadingsIngested = "ReadingsIngested"

	DimEndpoint   = "Endpoint"
	DimMethod     = "Method"
	DimStatusCode = "StatusCode"
	DimWellStatus = "WellStatus"
	DimSource     = "Source"
)
