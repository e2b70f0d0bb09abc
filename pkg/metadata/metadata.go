/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metadata.go
Description: Field metadata produced by accumulators. Holds the declared type tags and
the value histogram for one field, merges partial metadata from sharded accumulation,
and converts to the plain structural form used for persistence and display.
*/

package metadata

import (
	"fmt"
	"sort"

	"github.com/kleascm/fieldlens/pkg/histogram"
)

// FieldAccumulator consumes the canonical values of one field and produces FieldMetadata.
// AccumulateValue is not required to be safe for concurrent use; FieldMetadata is a
// pure read reflecting the state at call time and may be called any number of times.
type FieldAccumulator interface {
	AccumulateValue(value interface{}) error
	FieldMetadata() *FieldMetadata
}

// FieldMetadata is the derived summary attached to a schema field
type FieldMetadata struct {
	Types          []string                  // Sorted set of type tags
	ValueHistogram *histogram.ValueHistogram // Observed value counts
	Count          int64                     // Values accumulated
}

// Snapshot is the plain structural form of FieldMetadata
type Snapshot struct {
	Types          []string           `json:"types" yaml:"types"`
	Count          int64              `json:"count" yaml:"count"`
	ValueHistogram histogram.Snapshot `json:"valueHistogram" yaml:"valueHistogram"`
}

// New creates empty metadata with the given histogram cap and type tags
func New(histogramCap int, types ...string) *FieldMetadata {
	return &FieldMetadata{
		Types:          normalizeTypes(types),
		ValueHistogram: histogram.New(histogramCap),
	}
}

// HasType reports whether tag is among the declared types
func (m *FieldMetadata) HasType(tag string) bool {
	i := sort.SearchStrings(m.Types, tag)
	return i < len(m.Types) && m.Types[i] == tag
}

// Clone returns a deep copy
func (m *FieldMetadata) Clone() *FieldMetadata {
	c := &FieldMetadata{
		Types: append([]string(nil), m.Types...),
		Count: m.Count,
	}
	if m.ValueHistogram != nil {
		c.ValueHistogram = m.ValueHistogram.Clone()
	}
	return c
}

// Equal compares type tags, counts and histograms
func (m *FieldMetadata) Equal(o *FieldMetadata) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Count != o.Count || len(m.Types) != len(o.Types) {
		return false
	}
	for i := range m.Types {
		if m.Types[i] != o.Types[i] {
			return false
		}
	}
	return m.ValueHistogram.Equal(o.ValueHistogram)
}

// Merge combines metadata from accumulators fed with disjoint subsets of one field.
// Type tags are unioned, counts summed and histograms merged; the operation is
// commutative and associative. Nil arguments are treated as empty.
func Merge(a, b *FieldMetadata) *FieldMetadata {
	switch {
	case a == nil && b == nil:
		return New(histogram.DefaultCap)
	case a == nil:
		return b.Clone()
	case b == nil:
		return a.Clone()
	}
	return &FieldMetadata{
		Types:          normalizeTypes(append(append([]string(nil), a.Types...), b.Types...)),
		ValueHistogram: histogram.Merge(a.ValueHistogram, b.ValueHistogram),
		Count:          a.Count + b.Count,
	}
}

// Snapshot returns the plain structural form
func (m *FieldMetadata) Snapshot() Snapshot {
	s := Snapshot{
		Types: append([]string{}, m.Types...),
		Count: m.Count,
	}
	if m.ValueHistogram != nil {
		s.ValueHistogram = m.ValueHistogram.Snapshot()
	} else {
		s.ValueHistogram = histogram.New(histogram.DefaultCap).Snapshot()
	}
	return s
}

// ToMap returns the metadata as nested maps, slices, numbers and strings only
func (m *FieldMetadata) ToMap() map[string]interface{} {
	types := make([]interface{}, 0, len(m.Types))
	for _, t := range m.Types {
		types = append(types, t)
	}
	h := m.ValueHistogram
	if h == nil {
		h = histogram.New(histogram.DefaultCap)
	}
	return map[string]interface{}{
		"types":          types,
		"count":          m.Count,
		"valueHistogram": h.ToMap(),
	}
}

// FromSnapshot rebuilds FieldMetadata from its plain form
func FromSnapshot(s Snapshot) (*FieldMetadata, error) {
	if s.Count < 0 {
		return nil, fmt.Errorf("metadata count must not be negative, got %d", s.Count)
	}
	h, err := histogram.FromSnapshot(s.ValueHistogram)
	if err != nil {
		return nil, fmt.Errorf("invalid value histogram: %w", err)
	}
	return &FieldMetadata{
		Types:          normalizeTypes(s.Types),
		ValueHistogram: h,
		Count:          s.Count,
	}, nil
}

// normalizeTypes sorts and deduplicates type tags
func normalizeTypes(types []string) []string {
	set := make(map[string]bool, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t == "" || set[t] {
			continue
		}
		set[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
