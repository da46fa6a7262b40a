// Package forecast projects a well's water level with an ordinary
// least-squares line fitted to its recent history.
package forecast

import (
	"sort"
	"time"

	"wellwatch/internal/types"
)

// MinPoints is the smallest history that gets a projection.
const MinPoints = 4

// DefaultHorizon is the number of hourly points projected when the caller
// does not ask for a specific horizon.
const DefaultHorizon = 12

// Line is a fitted trend, y = Intercept + Slope*x with x in hours since the
// first sample.
type Line struct {
	Slope     float64 `json:"slope_per_hour"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line at x hours.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Fit runs OLS over samples, which must already be in time order. With zero
// variance in x the slope is 0 and the line passes through the mean level.
func Fit(samples []types.LevelSample) Line {
	if len(samples) == 0 {
		return Line{}
	}
	origin := samples[0].Timestamp
	n := float64(len(samples))

	var sumX, sumY float64
	for _, s := range samples {
		sumX += hoursSince(origin, s.Timestamp)
		sumY += s.WaterLevel
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX float64
	for _, s := range samples {
		dx := hoursSince(origin, s.Timestamp) - meanX
		cov += dx * (s.WaterLevel - meanY)
		varX += dx * dx
	}
	if varX == 0 {
		return Line{Slope: 0, Intercept: meanY}
	}
	slope := cov / varX
	return Line{Slope: slope, Intercept: meanY - slope*meanX}
}

// Project returns every historical sample in time order followed by horizon
// projected hourly points. Projections never go below zero. Fewer than
// MinPoints samples, or a horizon <= 0, yields the history alone.
func Project(history []types.LevelSample, horizon int) []types.ForecastPoint {
	sorted := append([]types.LevelSample(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]types.ForecastPoint, 0, len(sorted)+max(horizon, 0))
	for _, s := range sorted {
		out = append(out, types.ForecastPoint{Timestamp: s.Timestamp, WaterLevel: s.WaterLevel})
	}
	if len(sorted) < MinPoints || horizon <= 0 {
		return out
	}

	line := Fit(sorted)
	last := sorted[len(sorted)-1].Timestamp
	xLast := hoursSince(sorted[0].Timestamp, last)
	for h := 1; h <= horizon; h++ {
		out = append(out, types.ForecastPoint{
			Timestamp:  last.Add(time.Duration(h) * time.Hour),
			WaterLevel: max(line.At(xLast+float64(h)), 0),
			Projected:  true,
		})
	}
	return out
}

// SamplesFromReadings extracts the water levels present in readings.
func SamplesFromReadings(readings []types.MetricReading) []types.LevelSample {
	out := make([]types.LevelSample, 0, len(readings))
	for _, r := range readings {
		if r.WaterLevel == nil {
			continue
		}
		out = append(out, types.LevelSample{Timestamp: r.RecordedAt, WaterLevel: *r.WaterLevel})
	}
	return out
}

func hoursSince(origin, t time.Time) float64 {
	return t.Sub(origin).Hours()
}
