// Package normalize coerces loosely typed stored values into the types the
// rest of the backend works with. Catalog documents written by older admin
// tools hold prices as strings, counts as floats and arrays in driver
// specific slice types; every conversion here degrades to a fallback instead
// of failing.
package normalize

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Number converts value to a finite float64. Numeric strings are accepted,
// with a comma allowed as decimal separator. Anything else yields fallback.
func Number(value any, fallback float64) float64 {
	switch v := value.(type) {
	case nil, bool:
		return fallback
	case float64:
		return finite(v, fallback)
	case float32:
		return finite(float64(v), fallback)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fallback
		}
		return finite(f, fallback)
	case string:
		return parseNumber(v, fallback)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float(), fallback)
	case reflect.String:
		return parseNumber(rv.String(), fallback)
	}
	return fallback
}

// Int converts value with Number and truncates toward zero.
func Int(value any, fallback int) int {
	f := Number(value, math.NaN())
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return fallback
	}
	return int(f)
}

func String(value any, fallback string) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return fallback
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return fallback
}

func Bool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	}
	return false
}

// Strings returns the string elements of any slice value, skipping elements
// that are not strings. A nil or non-slice value yields an empty slice.
func Strings(value any) []string {
	if s, ok := value.([]string); ok {
		out := make([]string, len(s))
		copy(out, s)
		return out
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if s := String(rv.Index(i).Interface(), ""); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Map returns value as a plain string-keyed map. Named map types produced by
// database drivers are accepted.
func Map(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func parseNumber(raw string, fallback float64) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return finite(f, fallback)
}

func finite(f float64, fallback float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}
