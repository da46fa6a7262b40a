package types

// WellStatus is the status shown for a well. The stored column only ever holds
// active, warning or critical; offline is derived at read time.
type WellStatus string

const (
	WellStatusActive   WellStatus = "active"
	WellStatusWarning  WellStatus = "warning"
	WellStatusCritical WellStatus = "critical"
	WellStatusOffline  WellStatus = "offline"
)

// Valid reports whether s is one of the known well statuses.
func (s WellStatus) Valid() bool {
	switch s {
	case WellStatusActive, WellStatusWarning, WellStatusCritical, WellStatusOffline:
		return true
	}
	return false
}

// HealthVerdict is the outcome of classifying a single reading.
type HealthVerdict string

const (
	VerdictHealthy  HealthVerdict = "healthy"
	VerdictWarning  HealthVerdict = "warning"
	VerdictCritical HealthVerdict = "critical"
)

// ReadingSource records how a reading entered the system.
type ReadingSource string

const (
	SourceDevice     ReadingSource = "device"
	SourceManual     ReadingSource = "manual"
	SourceBulkImport ReadingSource = "bulk_import"
)

// Valid reports whether s is a known reading source.
func (s ReadingSource) Valid() bool {
	switch s {
	case SourceDevice, SourceManual, SourceBulkImport:
		return true
	}
	return false
}

// DisplayGrade is the per-metric presentation grade used by dashboards.
type DisplayGrade string

const (
	GradeGood     DisplayGrade = "good"
	GradeWarning  DisplayGrade = "warning"
	GradeCritical DisplayGrade = "critical"
)
