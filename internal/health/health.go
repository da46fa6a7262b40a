// Package health classifies a canonical reading against safety thresholds.
//
// Every bound is a strict inequality: a value sitting exactly on a bound does
// not trigger it. Absent fields contribute nothing, so a reading with no
// measured fields is healthy.
package health

import (
	"math"

	"wellwatch/internal/config"
	"wellwatch/internal/types"
)

// Severity of a single triggered bound.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Direction tells whether the value fell below or rose above its limit.
type Direction string

const (
	Below Direction = "below"
	Above Direction = "above"
)

// Band holds the four bounds for one field. A one-sided band uses -Inf for
// its lower bounds and +Inf disables an upper bound.
type Band struct {
	CriticalBelow float64
	WarningBelow  float64
	WarningAbove  float64
	CriticalAbove float64
}

// Rule binds a band to a field.
type Rule struct {
	Field types.MetricField
	Band  Band
}

// Issue is one triggered bound.
type Issue struct {
	Field     types.MetricField `json:"field"`
	Value     float64           `json:"value"`
	Severity  Severity          `json:"severity"`
	Limit     float64           `json:"limit"`
	Direction Direction         `json:"direction"`
}

// Assessment is the outcome of classifying one reading.
type Assessment struct {
	Verdict types.HealthVerdict `json:"verdict"`
	Issues  []Issue             `json:"issues"`
}

func above(warn, crit float64) Band {
	return Band{CriticalBelow: math.Inf(-1), WarningBelow: math.Inf(-1), WarningAbove: warn, CriticalAbove: crit}
}

// DefaultRules is the stock threshold table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{types.FieldPH, Band{CriticalBelow: 5.5, WarningBelow: 6.0, WarningAbove: 9.0, CriticalAbove: 9.5}},
		{types.FieldTDS, above(500, 1000)},
		{types.FieldTemperature, Band{CriticalBelow: 5, WarningBelow: 10, WarningAbove: 30, CriticalAbove: 35}},
		{types.FieldTurbidity, above(5, 10)},
		{types.FieldNitrate, above(10, 50)},
		{types.FieldFluoride, above(1.5, 2.5)},
		{types.FieldArsenic, above(0.01, 0.05)},
		{types.FieldLead, above(0.01, 0.015)},
		{types.FieldIron, above(0.3, 1)},
	}
}

// RulesFromConfig builds the table from configured thresholds.
func RulesFromConfig(c config.HealthConfig) []Rule {
	return []Rule{
		{types.FieldPH, Band{c.PHCriticalBelow, c.PHWarningBelow, c.PHWarningAbove, c.PHCriticalAbove}},
		{types.FieldTDS, above(c.TDSWarningAbove, c.TDSCriticalAbove)},
		{types.FieldTemperature, Band{c.TemperatureCriticalBelow, c.TemperatureWarningBelow, c.TemperatureWarningAbove, c.TemperatureCriticalAbove}},
		{types.FieldTurbidity, above(c.TurbidityWarningAbove, c.TurbidityCriticalAbove)},
		{types.FieldNitrate, above(c.NitrateWarningAbove, c.NitrateCriticalAbove)},
		{types.FieldFluoride, above(c.FluorideWarningAbove, c.FluorideCriticalAbove)},
		{types.FieldArsenic, above(c.ArsenicWarningAbove, c.ArsenicCriticalAbove)},
		{types.FieldLead, above(c.LeadWarningAbove, c.LeadCriticalAbove)},
		{types.FieldIron, above(c.IronWarningAbove, c.IronCriticalAbove)},
	}
}

// Classifier evaluates readings against a fixed rule table. It is safe for
// concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier copies rules; a nil table means DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Assess classifies m. Critical beats warning beats healthy.
func (c *Classifier) Assess(m types.Measurements) Assessment {
	out := Assessment{Verdict: types.VerdictHealthy, Issues: []Issue{}}
	for _, r := range c.rules {
		v := m.Get(r.Field)
		if v == nil {
			continue
		}
		issue, ok := r.Band.evaluate(*v)
		if !ok {
			continue
		}
		issue.Field = r.Field
		out.Issues = append(out.Issues, issue)

		switch issue.Severity {
		case SeverityCritical:
			out.Verdict = types.VerdictCritical
		case SeverityWarning:
			if out.Verdict == types.VerdictHealthy {
				out.Verdict = types.VerdictWarning
			}
		}
	}
	return out
}

// Verdict is Assess without the issue list.
func (c *Classifier) Verdict(m types.Measurements) types.HealthVerdict {
	return c.Assess(m).Verdict
}

// evaluate reports the most severe bound v crosses.
func (b Band) evaluate(v float64) (Issue, bool) {
	switch {
	case v < b.CriticalBelow:
		return Issue{Value: v, Severity: SeverityCritical, Limit: b.CriticalBelow, Direction: Below}, true
	case v > b.CriticalAbove:
		return Issue{Value: v, Severity: SeverityCritical, Limit: b.CriticalAbove, Direction: Above}, true
	case v < b.WarningBelow:
		return Issue{Value: v, Severity: SeverityWarning, Limit: b.WarningBelow, Direction: Below}, true
	case v > b.WarningAbove:
		return Issue{Value: v, Severity: SeverityWarning, Limit: b.WarningAbove, Direction: Above}, true
	}
	return Issue{}, false
}
