// Package normalize coerces loosely typed reading payloads into canonical
// types.Measurements. Anything that is not a finite number becomes absent.
package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"wellwatch/internal/types"
)

// aliases lists the accepted spellings of each field. The first entry is the
// canonical spelling. Keys are matched case-insensitively.
var aliases = []struct {
	field types.MetricField
	keys  []string
}{
	{types.FieldPH, []string{"ph", "ph_value", "phValue"}},
	{types.FieldTDS, []string{"tds", "total_dissolved_solids", "totalDissolvedSolids"}},
	{types.FieldTemperature, []string{"temperature", "temp"}},
	{types.FieldWaterLevel, []string{"water_level", "waterLevel", "level"}},
	{types.FieldTurbidity, []string{"turbidity", "ntu"}},
	{types.FieldConductivity, []string{"conductivity", "ec"}},
	{types.FieldDissolvedOxygen, []string{"dissolved_oxygen", "dissolvedOxygen", "do"}},
	{types.FieldHardness, []string{"hardness", "total_hardness", "totalHardness"}},
	{types.FieldChloride, []string{"chloride", "cl"}},
	{types.FieldFluoride, []string{"fluoride", "f"}},
	{types.FieldNitrate, []string{"nitrate", "no3"}},
	{types.FieldSulfate, []string{"sulfate", "sulphate", "so4"}},
	{types.FieldIron, []string{"iron", "fe"}},
	{types.FieldManganese, []string{"manganese", "mn"}},
	{types.FieldArsenic, []string{"arsenic", "as"}},
	{types.FieldLead, []string{"lead", "pb"}},
}

// Value returns v as a finite float64, or nil when v is missing, empty,
// boolean, unparseable, NaN or infinite. The value is never rounded.
func Value(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	case *float64:
		if n == nil {
			return nil
		}
		f = *n
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Measurements resolves raw keys through the alias table. Unknown keys are
// ignored. When several spellings of one field are present, the first one in
// table order carrying a usable value wins, so the canonical spelling takes
// precedence.
func Measurements(raw map[string]any) types.Measurements {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lowered := make(map[string]any, len(raw))
	for _, k := range keys {
		key := strings.ToLower(strings.TrimSpace(k))
		// An exactly lower-cased key beats differently cased duplicates.
		if _, seen := lowered[key]; seen && k != key {
			continue
		}
		lowered[key] = raw[k]
	}

	var m types.Measurements
	for _, a := range aliases {
		for _, key := range a.keys {
			v, ok := lowered[strings.ToLower(key)]
			if !ok {
				continue
			}
			if f := Value(v); f != nil {
				m.Set(a.field, f)
				break
			}
		}
	}
	return m
}

// Field returns the canonical field for a raw key.
func Field(key string) (types.MetricField, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, a := range aliases {
		for _, k := range a.keys {
			if strings.ToLower(k) == key {
				return a.field, true
			}
		}
	}
	return "", false
}

// Timestamp accepts RFC 3339 strings (with or without fractional seconds),
// "2006-01-02 15:04:05" strings in UTC, and unix seconds.
func Timestamp(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC(), !t.IsZero()
	}
	secs := Value(v)
	if secs == nil || *secs <= 0 {
		return time.Time{}, false
	}
	whole, frac := math.Modf(*secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
}
