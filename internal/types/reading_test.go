package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestMeasurements_GetSet(t *testing.T) {
	var m Measurements
	assert.True(t, m.Empty())

	for i, f := range AllMetricFields {
		m.Set(f, f64(float64(i)))
	}
	for i, f := range AllMetricFields {
		got := m.Get(f)
		require.NotNil(t, got, "field %s", f)
		assert.Equal(t, float64(i), *got, "field %s", f)
	}
	assert.False(t, m.Empty())

	m.Set(MetricField("salinity"), f64(1))
	assert.Nil(t, m.Get(MetricField("salinity")))
}

func TestMetricReading_JSONFlattensMeasurements(t *testing.T) {
	r := MetricReading{
		ID:     7,
		WellID: "well-1",
		Source: SourceManual,
		Measurements: Measurements{
			PH:         f64(7.1),
			WaterLevel: f64(42),
		},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 7.1, out["ph"])
	assert.Equal(t, float64(42), out["water_level"])
	assert.Nil(t, out["tds"])
	_, hasIron := out["iron"]
	assert.False(t, hasIron, "optional chemistry fields are omitted when absent")
}

func TestWell_Position(t *testing.T) {
	tests := []struct {
		name string
		lat  *float64
		lng  *float64
		ok   bool
	}{
		{"both present", f64(12.9), f64(77.6), true},
		{"missing lat", nil, f64(77.6), false},
		{"missing lng", f64(12.9), nil, false},
		{"nan", f64(math.NaN()), f64(77.6), false},
		{"inf", f64(12.9), f64(math.Inf(1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Well{Lat: tt.lat, Lng: tt.lng}.Position()
			assert.Equal(t, tt.ok, ok)
		})
	}
}
