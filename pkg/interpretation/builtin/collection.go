/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: collection.go
Description: Sequence and object interpretations. Sequences histogram their lengths and
objects histogram their key sets; examples of both are capped in size so they can be
stored next to the schema.
*/

package builtin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
)

// Sequence interprets arrays
type Sequence struct {
	base
}

// NewSequence creates the sequence interpretation
func NewSequence(opts Options) *Sequence {
	return &Sequence{base: base{name: SequenceName, opts: opts.withDefaults()}}
}

func (s *Sequence) CheckValue(ctx context.Context, value interface{}) (bool, error) {
	_, ok := toSequence(value)
	return ok, nil
}

func (s *Sequence) TransformSchema(ctx context.Context, node *schema.Node) (*schema.Node, error) {
	out := node.WithTypes(schema.TypeArray)
	out.Interpretation = s.name
	return out, nil
}

func (s *Sequence) TransformValue(ctx context.Context, value interface{}) (interface{}, error) {
	seq, ok := toSequence(value)
	if !ok {
		return nil, fmt.Errorf("not a sequence: %T", value)
	}
	return seq, nil
}

func (s *Sequence) ListStatistics(ctx context.Context, value interface{}) ([]interpretation.Statistic, error) {
	seq, ok := toSequence(value)
	if !ok {
		return nil, fmt.Errorf("not a sequence: %T", value)
	}
	return []interpretation.Statistic{{Name: "length", Value: float64(len(seq))}}, nil
}

func (s *Sequence) TransformExample(ctx context.Context, value interface{}) (interface{}, error) {
	return truncateExample(value, s.opts), nil
}

// CreateFieldAccumulator histograms sequence lengths
func (s *Sequence) CreateFieldAccumulator() metadata.FieldAccumulator {
	return newKeyedAccumulator(s.name, SequenceName, s.opts.HistogramCap, func(value interface{}) (string, bool) {
		seq, ok := toSequence(value)
		if !ok {
			return "", false
		}
		return strconv.Itoa(len(seq)), true
	})
}

func (s *Sequence) MetadataSchema() metadata.Schema {
	return metadata.TypedSchema(s.name, SequenceName)
}

// Object interprets string-keyed mappings
type Object struct {
	base
}

// NewObject creates the object interpretation
func NewObject(opts Options) *Object {
	return &Object{base: base{name: ObjectName, opts: opts.withDefaults()}}
}

func (o *Object) CheckValue(ctx context.Context, value interface{}) (bool, error) {
	_, ok := toObject(value)
	return ok, nil
}

func (o *Object) TransformSchema(ctx context.Context, node *schema.Node) (*schema.Node, error) {
	out := node.WithTypes(schema.TypeObject)
	out.Interpretation = o.name
	return out, nil
}

func (o *Object) TransformValue(ctx context.Context, value interface{}) (interface{}, error) {
	obj, ok := toObject(value)
	if !ok {
		return nil, fmt.Errorf("not an object: %T", value)
	}
	return obj, nil
}

func (o *Object) ListStatistics(ctx context.Context, value interface{}) ([]interpretation.Statistic, error) {
	obj, ok := toObject(value)
	if !ok {
		return nil, fmt.Errorf("not an object: %T", value)
	}
	return []interpretation.Statistic{{Name: "keys", Value: float64(len(obj))}}, nil
}

func (o *Object) TransformExample(ctx context.Context, value interface{}) (interface{}, error) {
	return truncateExample(value, o.opts), nil
}

// CreateFieldAccumulator histograms key sets, so a field with a stable shape ends up
// with a single dominant bucket
func (o *Object) CreateFieldAccumulator() metadata.FieldAccumulator {
	return newKeyedAccumulator(o.name, ObjectName, o.opts.HistogramCap, func(value interface{}) (string, bool) {
		obj, ok := toObject(value)
		if !ok {
			return "", false
		}
		return "{" + strings.Join(sortedKeys(obj), ",") + "}", true
	})
}

func (o *Object) MetadataSchema() metadata.Schema {
	return metadata.TypedSchema(o.name, ObjectName)
}
