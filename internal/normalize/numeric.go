package normalize

import (
	"database/sql"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Float coerces a raw upstream value. Missing, NaN, infinite and unparsable
// values are reported as absent, never as zero.
func Float(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if isNullText(s) {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int rounds then truncates a raw value
func Int(v any) (int, bool) {
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// NullInt32 converts a raw value to a nullable column value. Values outside
// the int32 range are absent.
func NullInt32(v any) sql.NullInt32 {
	f, ok := Float(v)
	if !ok {
		return sql.NullInt32{}
	}
	r := math.Round(f)
	if r < math.MinInt32 || r > math.MaxInt32 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(r), Valid: true}
}

// Round rounds f to the given number of decimal places
func Round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

// Text returns a trimmed string for a raw value, empty when absent
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if isNullText(s) {
			return ""
		}
		return s
	}
	if i, ok := Int(v); ok {
		return strconv.Itoa(i)
	}
	return ""
}

func isNullText(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "<na>":
		return true
	}
	return false
}
