/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: transformer_test.go
Description: Tests for folding chains over schemas, values, examples and statistics.
*/

package interpretation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedChain(t *testing.T, reg *interpretation.Registry, names ...string) interpretation.Chain {
	t.Helper()
	var chain interpretation.Chain
	for _, n := range names {
		i, ok := reg.Lookup(n)
		require.True(t, ok, n)
		chain = append(chain, i)
	}
	require.NoError(t, chain.Validate())
	return chain
}

func TestTransformValueFoldsChain(t *testing.T) {
	reg := numericRegistry(t)
	chain := fixedChain(t, reg, "text", "digits", "even")

	v, err := interpretation.TransformValue(context.Background(), chain, "12")
	require.NoError(t, err)
	assert.Equal(t, 12, v)
}

func TestTransformValueEmptyChainIsIdentity(t *testing.T) {
	v, err := interpretation.TransformValue(context.Background(), nil, 3.5)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
}

func TestTransformValueReportsMismatch(t *testing.T) {
	reg := numericRegistry(t)
	chain := fixedChain(t, reg, "text", "digits", "even")

	_, err := interpretation.TransformValue(context.Background(), chain, "13")
	require.Error(t, err)

	var terr *interpretation.TransformError
	require.True(t, errors.As(err, &terr))
	assert.True(t, terr.IsChainMismatch())
	assert.Equal(t, 2, terr.Position)
	assert.Equal(t, "even", terr.Interpretation)
	assert.ErrorIs(t, err, interpretation.ErrChainMismatch)

	_, err = interpretation.TransformValue(context.Background(), chain, 4)
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 0, terr.Position)
}

func TestTransformValueReportsStageFailure(t *testing.T) {
	boom := errors.New("boom")
	s := stub("s")
	s.transform = func(v interface{}) (interface{}, error) { return nil, boom }
	reg, err := finalized(s)
	require.NoError(t, err)

	_, err = interpretation.TransformValue(context.Background(), fixedChain(t, reg, "s"), "x")
	var terr *interpretation.TransformError
	require.True(t, errors.As(err, &terr))
	assert.False(t, terr.IsChainMismatch())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "value", terr.Op)
}

func TestTransformSchemaFoldsAndRecordsChain(t *testing.T) {
	reg := numericRegistry(t)
	chain := fixedChain(t, reg, "text", "digits")

	base := schema.NewNode("a.b")
	node, err := interpretation.TransformSchema(context.Background(), chain, base)
	require.NoError(t, err)

	assert.Equal(t, []string{"text", "digits"}, node.Types)
	assert.Equal(t, []string{"text", "digits"}, node.Chain)
	assert.Equal(t, "digits", node.Interpretation)
	assert.Equal(t, "a.b", node.Path)

	assert.Empty(t, base.Types)
	assert.Empty(t, base.Chain)
}

func TestTransformSchemaStageError(t *testing.T) {
	s := stub("s")
	s.schemaErr = errors.New("bad schema")
	reg, err := finalized(s)
	require.NoError(t, err)

	_, err = interpretation.TransformSchema(context.Background(), fixedChain(t, reg, "s"), schema.NewNode("x"))
	var terr *interpretation.TransformError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "schema", terr.Op)
}

func TestTransformExampleIsLossy(t *testing.T) {
	reg := numericRegistry(t)
	chain := fixedChain(t, reg, "text")

	ex, err := interpretation.TransformExample(context.Background(), chain, "abcdef")
	require.NoError(t, err)
	assert.Equal(t, "abc", ex)
}

func TestListStatisticsPrefixesStageNames(t *testing.T) {
	text := stub("text").accepting(isString)
	text.stats = []interpretation.Statistic{{Name: "length", Value: 2}}
	digits := stub("digits", "text").accepting(isString)
	digits.stats = []interpretation.Statistic{{Name: "value", Value: 42}}
	reg, err := finalized(text, digits)
	require.NoError(t, err)

	stats, err := interpretation.ListStatistics(context.Background(), fixedChain(t, reg, "text", "digits"), "42")
	require.NoError(t, err)
	assert.Equal(t, []interpretation.Statistic{
		{Name: "text.length", Value: 2},
		{Name: "digits.value", Value: 42},
	}, stats)

	_, err = interpretation.ListStatistics(context.Background(), fixedChain(t, reg, "text", "digits"), 42)
	assert.ErrorIs(t, err, interpretation.ErrChainMismatch)
}
