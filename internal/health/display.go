package health

import (
	"math"

	"wellwatch/internal/types"
)

// gradeRange is an inclusive [min, max] range.
type gradeRange struct{ min, max float64 }

func (r gradeRange) contains(v float64) bool { return v >= r.min && v <= r.max }

type displayBands struct{ good, warning gradeRange }

var unbounded = math.Inf(1)

var displayTable = map[types.MetricField]displayBands{
	types.FieldPH:          {good: gradeRange{6.5, 8.5}, warning: gradeRange{6.0, 9.0}},
	types.FieldTDS:         {good: gradeRange{-unbounded, 300}, warning: gradeRange{-unbounded, 500}},
	types.FieldTemperature: {good: gradeRange{15, 25}, warning: gradeRange{10, 30}},
	types.FieldWaterLevel:  {good: gradeRange{40, unbounded}, warning: gradeRange{30, unbounded}},
}

// DisplayStatus grades a single metric for dashboards. The bands are
// presentation bands and are looser than the classifier's. Fields without a
// display band grade as "".
func DisplayStatus(field types.MetricField, value float64) types.DisplayGrade {
	bands, ok := displayTable[field]
	if !ok {
		return ""
	}
	switch {
	case bands.good.contains(value):
		return types.GradeGood
	case bands.warning.contains(value):
		return types.GradeWarning
	default:
		return types.GradeCritical
	}
}

// DisplayGrades grades every present metric of m that has a display band.
func DisplayGrades(m types.Measurements) map[types.MetricField]types.DisplayGrade {
	out := make(map[types.MetricField]types.DisplayGrade, len(displayTable))
	for field := range displayTable {
		if v := m.Get(field); v != nil {
			out[field] = DisplayStatus(field, *v)
		}
	}
	return out
}
