/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: helpers_test.go
Description: Configurable stub interpretation used by the registry, chain and
transformer tests.
*/

package interpretation_test

import (
	"context"

	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
)

type stubInterpretation struct {
	name      string
	upstream  []string
	check     func(value interface{}) (bool, error)
	transform func(value interface{}) (interface{}, error)
	schemaErr error
	stats     []interpretation.Statistic
	schemaDef *metadata.Schema
	checks    int
}

func stub(name string, upstream ...string) *stubInterpretation {
	return &stubInterpretation{name: name, upstream: upstream}
}

func (s *stubInterpretation) accepting(check func(value interface{}) bool) *stubInterpretation {
	s.check = func(value interface{}) (bool, error) { return check(value), nil }
	return s
}

func (s *stubInterpretation) Name() string            { return s.name }
func (s *stubInterpretation) UpstreamNames() []string { return s.upstream }

func (s *stubInterpretation) CheckValue(ctx context.Context, value interface{}) (bool, error) {
	s.checks++
	if s.check == nil {
		return true, nil
	}
	return s.check(value)
}

func (s *stubInterpretation) TransformSchema(ctx context.Context, node *schema.Node) (*schema.Node, error) {
	if s.schemaErr != nil {
		return nil, s.schemaErr
	}
	out := node.WithTypes(append(node.Types, s.name)...)
	out.Interpretation = s.name
	return out, nil
}

func (s *stubInterpretation) TransformValue(ctx context.Context, value interface{}) (interface{}, error) {
	if s.transform == nil {
		return value, nil
	}
	return s.transform(value)
}

func (s *stubInterpretation) ListStatistics(ctx context.Context, value interface{}) ([]interpretation.Statistic, error) {
	return s.stats, nil
}

func (s *stubInterpretation) TransformExample(ctx context.Context, value interface{}) (interface{}, error) {
	if str, ok := value.(string); ok && len(str) > 3 {
		return str[:3], nil
	}
	return value, nil
}

func (s *stubInterpretation) CreateFieldAccumulator() metadata.FieldAccumulator {
	return nil
}

func (s *stubInterpretation) MetadataSchema() metadata.Schema {
	if s.schemaDef != nil {
		return *s.schemaDef
	}
	return metadata.TypedSchema(s.name, s.name)
}

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func isInt(v interface{}) bool {
	_, ok := v.(int)
	return ok
}

// finalized builds and finalizes a registry from the given interpretations
func finalized(interps ...interpretation.Interpretation) (*interpretation.Registry, error) {
	reg := interpretation.NewRegistry()
	for _, i := range interps {
		if err := reg.Register(i); err != nil {
			return nil, err
		}
	}
	return reg, reg.Finalize()
}
