/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: transformer.go
Description: Folds an interpretation chain over a schema node, a raw value, or an
example. Every stage runs only after the previous stage's result is available, and a
value fed into a stage must still pass that stage's applicability check; a rejection
is reported as a chain/value mismatch instead of being ignored.
*/

package interpretation

import (
	"context"
	"fmt"

	"github.com/kleascm/fieldlens/pkg/schema"
)

// TransformSchema folds TransformSchema across the chain from root to leaf and records
// the chain on the resulting node. The base node is not modified.
func TransformSchema(ctx context.Context, chain Chain, base *schema.Node) (*schema.Node, error) {
	node := base.Clone()
	for i, interp := range chain {
		next, err := interp.TransformSchema(ctx, node)
		if err != nil {
			return nil, &TransformError{Position: i, Interpretation: interp.Name(), Op: "schema", Err: err}
		}
		if next == nil {
			return nil, &TransformError{Position: i, Interpretation: interp.Name(), Op: "schema", Err: ErrInvalidSchemaStage}
		}
		node = next
	}
	node.Chain = chain.Names()
	if leaf := chain.Leaf(); leaf != nil {
		node.Interpretation = leaf.Name()
	}
	return node, nil
}

// TransformValue folds TransformValue across the chain and returns the canonical value
func TransformValue(ctx context.Context, chain Chain, raw interface{}) (interface{}, error) {
	current := raw
	for i, interp := range chain {
		if err := checkStage(ctx, i, interp, current); err != nil {
			return nil, err
		}
		next, err := interp.TransformValue(ctx, current)
		if err != nil {
			return nil, &TransformError{Position: i, Interpretation: interp.Name(), Op: "value", Err: err}
		}
		current = next
	}
	return current, nil
}

// TransformExample folds TransformExample across the chain. The result is lossy and is
// meant for display and storage only.
func TransformExample(ctx context.Context, chain Chain, value interface{}) (interface{}, error) {
	current := value
	for i, interp := range chain {
		next, err := interp.TransformExample(ctx, current)
		if err != nil {
			return nil, &TransformError{Position: i, Interpretation: interp.Name(), Op: "example", Err: err}
		}
		current = next
	}
	return current, nil
}

// ListStatistics collects each stage's statistics for the value as seen by that stage.
// Statistic names are prefixed with the interpretation name.
func ListStatistics(ctx context.Context, chain Chain, raw interface{}) ([]Statistic, error) {
	var stats []Statistic
	current := raw
	for i, interp := range chain {
		if err := checkStage(ctx, i, interp, current); err != nil {
			return nil, err
		}
		stageStats, err := interp.ListStatistics(ctx, current)
		if err != nil {
			return nil, &TransformError{Position: i, Interpretation: interp.Name(), Op: "statistics", Err: err}
		}
		for _, s := range stageStats {
			stats = append(stats, Statistic{Name: interp.Name() + "." + s.Name, Value: s.Value})
		}
		next, err := interp.TransformValue(ctx, current)
		if err != nil {
			return nil, &TransformError{Position: i, Interpretation: interp.Name(), Op: "value", Err: err}
		}
		current = next
	}
	return stats, nil
}

// checkStage verifies a stage still accepts its input
func checkStage(ctx context.Context, position int, interp Interpretation, value interface{}) error {
	ok, err := interp.CheckValue(ctx, value)
	if err != nil {
		return &TransformError{Position: position, Interpretation: interp.Name(), Op: "check", Err: err}
	}
	if !ok {
		return &TransformError{
			Position:       position,
			Interpretation: interp.Name(),
			Op:             "check",
			Err:            fmt.Errorf("%w: %v (%T)", ErrChainMismatch, value, value),
		}
	}
	return nil
}
