package types

import "time"

// MetricField names one measured quantity. The string value is the canonical
// snake_case key used in JSON payloads and database columns.
type MetricField string

const (
	FieldPH              MetricField = "ph"
	FieldTDS             MetricField = "tds"
	FieldTemperature     MetricField = "temperature"
	FieldWaterLevel      MetricField = "water_level"
	FieldTurbidity       MetricField = "turbidity"
	FieldConductivity    MetricField = "conductivity"
	FieldDissolvedOxygen MetricField = "dissolved_oxygen"
	FieldHardness        MetricField = "hardness"
	FieldChloride        MetricField = "chloride"
	FieldFluoride        MetricField = "fluoride"
	FieldNitrate         MetricField = "nitrate"
	FieldSulfate         MetricField = "sulfate"
	FieldIron            MetricField = "iron"
	FieldManganese       MetricField = "manganese"
	FieldArsenic         MetricField = "arsenic"
	FieldLead            MetricField = "lead"
)

// AllMetricFields lists every field in column order.
var AllMetricFields = []MetricField{
	FieldPH, FieldTDS, FieldTemperature, FieldWaterLevel, FieldTurbidity,
	FieldConductivity, FieldDissolvedOxygen, FieldHardness, FieldChloride,
	FieldFluoride, FieldNitrate, FieldSulfate, FieldIron, FieldManganese,
	FieldArsenic, FieldLead,
}

// Measurements is a canonical reading. A nil field was not measured, which is
// distinct from a measured zero.
type Measurements struct {
	PH              *float64 `json:"ph"`
	TDS             *float64 `json:"tds"`
	Temperature     *float64 `json:"temperature"`
	WaterLevel      *float64 `json:"water_level"`
	Turbidity       *float64 `json:"turbidity"`
	Conductivity    *float64 `json:"conductivity,omitempty"`
	DissolvedOxygen *float64 `json:"dissolved_oxygen,omitempty"`
	Hardness        *float64 `json:"hardness,omitempty"`
	Chloride        *float64 `json:"chloride,omitempty"`
	Fluoride        *float64 `json:"fluoride,omitempty"`
	Nitrate         *float64 `json:"nitrate,omitempty"`
	Sulfate         *float64 `json:"sulfate,omitempty"`
	Iron            *float64 `json:"iron,omitempty"`
	Manganese       *float64 `json:"manganese,omitempty"`
	Arsenic         *float64 `json:"arsenic,omitempty"`
	Lead            *float64 `json:"lead,omitempty"`
}

// Ptr returns the address of the slot holding f, or nil for an unknown field.
func (m *Measurements) Ptr(f MetricField) **float64 {
	switch f {
	case FieldPH:
		return &m.PH
	case FieldTDS:
		return &m.TDS
	case FieldTemperature:
		return &m.Temperature
	case FieldWaterLevel:
		return &m.WaterLevel
	case FieldTurbidity:
		return &m.Turbidity
	case FieldConductivity:
		return &m.Conductivity
	case FieldDissolvedOxygen:
		return &m.DissolvedOxygen
	case FieldHardness:
		return &m.Hardness
	case FieldChloride:
		return &m.Chloride
	case FieldFluoride:
		return &m.Fluoride
	case FieldNitrate:
		return &m.Nitrate
	case FieldSulfate:
		return &m.Sulfate
	case FieldIron:
		return &m.Iron
	case FieldManganese:
		return &m.Manganese
	case FieldArsenic:
		return &m.Arsenic
	case FieldLead:
		return &m.Lead
	}
	return nil
}

// Get returns the value of f, or nil when absent or unknown.
func (m Measurements) Get(f MetricField) *float64 {
	if p := m.Ptr(f); p != nil {
		return *p
	}
	return nil
}

// Set stores v into f. Unknown fields are ignored.
func (m *Measurements) Set(f MetricField, v *float64) {
	if p := m.Ptr(f); p != nil {
		*p = v
	}
}

// Empty reports whether no field is present.
func (m Measurements) Empty() bool {
	for _, f := range AllMetricFields {
		if m.Get(f) != nil {
			return false
		}
	}
	return true
}

// MetricReading is one timestamped, append-only sample for a well.
type MetricReading struct {
	ID         int64         `json:"id"`
	WellID     string        `json:"well_id"`
	RecordedAt time.Time     `json:"recorded_at"`
	Source     ReadingSource `json:"source"`
	Notes      string        `json:"notes,omitempty"`
	Verdict    HealthVerdict `json:"verdict,omitempty"`
	Measurements
}

// LevelSample is one historical water-level observation fed to the forecaster.
type LevelSample struct {
	Timestamp  time.Time `json:"timestamp"`
	WaterLevel float64   `json:"water_level"`
}

// ForecastPoint is one point of a forecast series. Historical points carry
// Projected=false.
type ForecastPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	WaterLevel float64   `json:"water_level"`
	Projected  bool      `json:"projected"`
}
