/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: number.go
Description: Number interpretation. Accepts native numbers and numeric strings,
canonicalizes them to float64, and histograms the observed values.
*/

package builtin

import (
	"context"
	"fmt"

	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
)

// Number interprets finite numeric values
type Number struct {
	base
}

// NewNumber creates the number interpretation
func NewNumber(opts Options) *Number {
	return &Number{base: base{name: NumberName, opts: opts.withDefaults()}}
}

func (n *Number) CheckValue(ctx context.Context, value interface{}) (bool, error) {
	_, ok := toFloat(value)
	return ok, nil
}

func (n *Number) TransformSchema(ctx context.Context, node *schema.Node) (*schema.Node, error) {
	out := node.WithTypes(schema.TypeNumber)
	out.Interpretation = n.name
	return out, nil
}

func (n *Number) TransformValue(ctx context.Context, value interface{}) (interface{}, error) {
	f, ok := toFloat(value)
	if !ok {
		return nil, fmt.Errorf("not a finite number: %v", value)
	}
	return f, nil
}

func (n *Number) ListStatistics(ctx context.Context, value interface{}) ([]interpretation.Statistic, error) {
	f, ok := toFloat(value)
	if !ok {
		return nil, fmt.Errorf("not a finite number: %v", value)
	}
	return []interpretation.Statistic{{Name: "value", Value: f}}, nil
}

func (n *Number) TransformExample(ctx context.Context, value interface{}) (interface{}, error) {
	if f, ok := toFloat(value); ok {
		return f, nil
	}
	return value, nil
}

func (n *Number) CreateFieldAccumulator() metadata.FieldAccumulator {
	return newKeyedAccumulator(n.name, schema.TypeNumber, n.opts.HistogramCap, func(value interface{}) (string, bool) {
		f, ok := toFloat(value)
		if !ok {
			return "", false
		}
		return formatFloat(f), true
	})
}

func (n *Number) MetadataSchema() metadata.Schema {
	return metadata.TypedSchema(n.name, schema.TypeNumber)
}
