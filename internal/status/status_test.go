package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wellwatch/internal/types"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func TestResolve_NoReadingIsOffline(t *testing.T) {
	got := Aggregator{}.Resolve(Input{Stored: types.WellStatusActive}, now)
	assert.Equal(t, types.WellStatusOffline, got)
}

func TestResolve_StaleReadingOverridesVerdict(t *testing.T) {
	for _, v := range []types.HealthVerdict{types.VerdictHealthy, types.VerdictWarning, types.VerdictCritical} {
		got := Aggregator{}.Resolve(Input{
			Stored:        types.WellStatusCritical,
			Verdict:       v,
			LastReadingAt: ago(3 * time.Hour),
		}, now)
		assert.Equal(t, types.WellStatusOffline, got, "verdict %s", v)
	}
}

func TestResolve_WindowIsStrict(t *testing.T) {
	in := Input{Verdict: types.VerdictHealthy, LastReadingAt: ago(2 * time.Hour)}
	assert.Equal(t, types.WellStatusActive, Aggregator{}.Resolve(in, now))

	in.LastReadingAt = ago(2*time.Hour + time.Second)
	assert.Equal(t, types.WellStatusOffline, Aggregator{}.Resolve(in, now))
}

func TestResolve_MapsVerdict(t *testing.T) {
	tests := map[types.HealthVerdict]types.WellStatus{
		types.VerdictHealthy:  types.WellStatusActive,
		types.VerdictWarning:  types.WellStatusWarning,
		types.VerdictCritical: types.WellStatusCritical,
	}
	for v, want := range tests {
		got := Aggregator{}.Resolve(Input{Stored: types.WellStatusOffline, Verdict: v, LastReadingAt: ago(time.Minute)}, now)
		assert.Equal(t, want, got)
	}
}

func TestResolve_MissingVerdictUsesStored(t *testing.T) {
	a := NewAggregator(30 * time.Minute)

	got := a.Resolve(Input{Stored: types.WellStatusWarning, LastReadingAt: ago(10 * time.Minute)}, now)
	assert.Equal(t, types.WellStatusWarning, got)

	got = a.Resolve(Input{Stored: types.WellStatusOffline, LastReadingAt: ago(10 * time.Minute)}, now)
	assert.Equal(t, types.WellStatusActive, got)

	got = a.Resolve(Input{Stored: types.WellStatusWarning, LastReadingAt: ago(45 * time.Minute)}, now)
	assert.Equal(t, types.WellStatusOffline, got)
}

func TestFromVerdict(t *testing.T) {
	s, ok := FromVerdict(types.VerdictWarning)
	assert.True(t, ok)
	assert.Equal(t, types.WellStatusWarning, s)

	_, ok = FromVerdict("")
	assert.False(t, ok)
}

func TestShouldAlert(t *testing.T) {
	assert.True(t, ShouldAlert(types.WellStatusActive, types.WellStatusWarning))
	assert.True(t, ShouldAlert(types.WellStatusWarning, types.WellStatusCritical))
	assert.True(t, ShouldAlert("", types.WellStatusCritical))
	assert.False(t, ShouldAlert(types.WellStatusCritical, types.WellStatusCritical))
	assert.False(t, ShouldAlert(types.WellStatusCritical, types.WellStatusActive))
	assert.False(t, ShouldAlert(types.WellStatusActive, types.WellStatusOffline))
}
