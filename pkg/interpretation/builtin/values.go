/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: values.go
Description: Helpers for the loosely typed values produced by JSON and YAML decoders:
numeric coercion, generic sequence and mapping conversion, and recursive example
truncation.
*/

package builtin

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// toFloat coerces native numbers, json.Number and numeric strings to a finite float64
func toFloat(value interface{}) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
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

// formatFloat renders a float as the shortest exact decimal
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// toSequence converts any slice or array (except byte slices) to []interface{}
func toSequence(value interface{}) ([]interface{}, bool) {
	if v, ok := value.([]interface{}); ok {
		return v, true
	}
	if value == nil {
		return nil, false
	}
	if _, isBytes := value.([]byte); isBytes {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// toObject converts any map keyed by strings to map[string]interface{}
func toObject(value interface{}) (map[string]interface{}, bool) {
	if v, ok := value.(map[string]interface{}); ok {
		return v, true
	}
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// sortedKeys returns the keys of an object in lexical order
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateString keeps at most limit runes
func truncateString(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// truncateExample caps collection sizes and string lengths throughout a value.
// Objects keep their first keys in lexical order. The input is never modified.
func truncateExample(value interface{}, opts Options) interface{} {
	if s, ok := value.(string); ok {
		return truncateString(s, opts.StringExampleLength)
	}
	if seq, ok := toSequence(value); ok {
		n := len(seq)
		if n > opts.ExampleLimit {
			n = opts.ExampleLimit
		}
		out := make([]interface{}, n)
		for i := 0; i < n; i++ {
			out[i] = truncateExample(seq[i], opts)
		}
		return out
	}
	if obj, ok := toObject(value); ok {
		keys := sortedKeys(obj)
		if len(keys) > opts.ExampleLimit {
			keys = keys[:opts.ExampleLimit]
		}
		out := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			out[k] = truncateExample(obj[k], opts)
		}
		return out
	}
	return value
}
