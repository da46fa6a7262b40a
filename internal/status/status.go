// Package status derives a well's effective status from its latest verdict
// and how long ago that reading was taken.
package status

import (
	"time"

	"wellwatch/internal/types"
)

// DefaultInactivityWindow is how old a reading may get before the well is
// reported offline.
const DefaultInactivityWindow = 2 * time.Hour

// Input is everything Resolve looks at.
type Input struct {
	// Stored is the status cached on the well record.
	Stored types.WellStatus
	// Verdict of the latest reading; empty when unknown.
	Verdict types.HealthVerdict
	// LastReadingAt is nil when the well has no readings.
	LastReadingAt *time.Time
}

// Aggregator resolves effective statuses. The zero value uses
// DefaultInactivityWindow.
type Aggregator struct {
	Window time.Duration
}

// NewAggregator returns an Aggregator with the given inactivity window.
func NewAggregator(window time.Duration) Aggregator {
	return Aggregator{Window: window}
}

func (a Aggregator) window() time.Duration {
	if a.Window <= 0 {
		return DefaultInactivityWindow
	}
	return a.Window
}

// Resolve returns the status to display at now. A missing or stale reading
// makes the well offline whatever else is known. A reading without a verdict
// falls back to the stored status.
func (a Aggregator) Resolve(in Input, now time.Time) types.WellStatus {
	if in.LastReadingAt == nil || now.Sub(*in.LastReadingAt) > a.window() {
		return types.WellStatusOffline
	}
	if s, ok := FromVerdict(in.Verdict); ok {
		return s
	}
	if in.Stored == "" || in.Stored == types.WellStatusOffline {
		return types.WellStatusActive
	}
	return in.Stored
}

// FromVerdict maps a verdict to the status cached on the well record.
// Offline is never produced here.
func FromVerdict(v types.HealthVerdict) (types.WellStatus, bool) {
	switch v {
	case types.VerdictHealthy:
		return types.WellStatusActive, true
	case types.VerdictWarning:
		return types.WellStatusWarning, true
	case types.VerdictCritical:
		return types.WellStatusCritical, true
	}
	return "", false
}

// ShouldAlert reports whether moving from prev to next warrants an alert:
// next is warning or critical and differs from prev.
func ShouldAlert(prev, next types.WellStatus) bool {
	if next != types.WellStatusWarning && next != types.WellStatusCritical {
		return false
	}
	return prev != next
}
