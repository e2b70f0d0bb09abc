/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: boolean.go
Description: Boolean interpretation. Accepts native booleans and the strings "true" and
"false" in any letter case, canonicalizes them to bool, and tallies true/false counts
into the field histogram.
*/

package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/kleascm/fieldlens/pkg/histogram"
	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
)

// Boolean interprets boolean-like values
type Boolean struct {
	base
}

// NewBoolean creates the boolean interpretation
func NewBoolean(opts Options) *Boolean {
	return &Boolean{base: base{name: BooleanName, opts: opts.withDefaults()}}
}

// parseBoolean returns the boolean a value stands for
func parseBoolean(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func (b *Boolean) CheckValue(ctx context.Context, value interface{}) (bool, error) {
	_, ok := parseBoolean(value)
	return ok, nil
}

func (b *Boolean) TransformSchema(ctx context.Context, node *schema.Node) (*schema.Node, error) {
	out := node.WithTypes(schema.TypeBoolean)
	out.Interpretation = b.name
	return out, nil
}

func (b *Boolean) TransformValue(ctx context.Context, value interface{}) (interface{}, error) {
	v, ok := parseBoolean(value)
	if !ok {
		return nil, fmt.Errorf("not a boolean: %v", value)
	}
	return v, nil
}

func (b *Boolean) TransformExample(ctx context.Context, value interface{}) (interface{}, error) {
	if v, ok := parseBoolean(value); ok {
		return v, nil
	}
	return value, nil
}

func (b *Boolean) CreateFieldAccumulator() metadata.FieldAccumulator {
	return &booleanAccumulator{histogramCap: b.opts.HistogramCap}
}

func (b *Boolean) MetadataSchema() metadata.Schema {
	return metadata.TypedSchema(b.name, schema.TypeBoolean)
}

// booleanAccumulator tallies true and false values
type booleanAccumulator struct {
	histogramCap int
	truths       int64
	falses       int64
}

func (a *booleanAccumulator) AccumulateValue(value interface{}) error {
	v, ok := parseBoolean(value)
	if !ok {
		return interpretation.NewAccumulationError(BooleanName, value)
	}
	if v {
		a.truths++
	} else {
		a.falses++
	}
	return nil
}

func (a *booleanAccumulator) FieldMetadata() *metadata.FieldMetadata {
	h := histogram.New(a.histogramCap)
	h.AddN("true", a.truths)
	h.AddN("false", a.falses)
	return &metadata.FieldMetadata{
		Types:          []string{schema.TypeBoolean},
		ValueHistogram: h,
		Count:          a.truths + a.falses,
	}
}
