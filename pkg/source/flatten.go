/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: flatten.go
Description: Record flattening. A record is walked into (field path, value) pairs in a
deterministic order: object keys sorted, sequence elements in order under the "[]"
segment. Keys are escaped with schema.EscapeKey. Objects and sequences are emitted as
values of their own field before their contents, so container fields are classified
like any other field.
*/

package source

import (
	"sort"

	"github.com/kleascm/fieldlens/pkg/schema"
)

// FieldValue is one raw value observed at a field path
type FieldValue struct {
	Path  string
	Value interface{}
}

// Flatten walks a record into field values. The record itself is not emitted; a scalar
// record therefore yields no fields. Null values are skipped.
func Flatten(record interface{}) []FieldValue {
	var out []FieldValue
	walk(nil, record, &out, true)
	return out
}

func walk(segments []string, value interface{}, out *[]FieldValue, root bool) {
	if value == nil {
		return
	}
	if !root {
		*out = append(*out, FieldValue{Path: schema.JoinPath(segments...), Value: value})
	}

	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(appendSegment(segments, schema.EscapeKey(k)), v[k], out, false)
		}
	case []interface{}:
		items := appendSegment(segments, schema.ItemsSegment)
		for _, item := range v {
			walk(items, item, out, false)
		}
	}
}

// appendSegment copies before appending so sibling paths never share a backing array
func appendSegment(segments []string, seg string) []string {
	next := make([]string, len(segments)+1)
	copy(next, segments)
	next[len(segments)] = seg
	return next
}

// Paths returns the distinct field paths of a record in first-seen order
func Paths(record interface{}) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, fv := range Flatten(record) {
		if !seen[fv.Path] {
			seen[fv.Path] = true
			paths = append(paths, fv.Path)
		}
	}
	return paths
}
