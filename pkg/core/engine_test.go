/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: Tests for the two-pass analysis engine: chain fixing per field, sharded
accumulation, schema assembly, failure isolation and reporting hooks.
*/

package core_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kleascm/fieldlens/pkg/core"
	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/interpretation/builtin"
	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
	"github.com/kleascm/fieldlens/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReporter captures engine events
type recordingReporter struct {
	mu       sync.Mutex
	fixed    []string
	warnings []string
	rejected []string
	failed   map[string]error
	skipped  []int
	finished int
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{failed: make(map[string]error)}
}

func (r *recordingReporter) OnChainFixed(field *core.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixed = append(r.fixed, field.Path)
}

func (r *recordingReporter) OnClassificationWarning(path string, w *interpretation.ClassificationError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, path)
}

func (r *recordingReporter) OnValueRejected(path string, value interface{}, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, path)
}

func (r *recordingReporter) OnRecordSkipped(err *source.RecordError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, err.Line)
}

func (r *recordingReporter) OnFieldFailed(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[path] = err
}

func (r *recordingReporter) OnRunFinished(report *core.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
}

func newEngine(t *testing.T, reg *interpretation.Registry, opts core.Options) (*core.Engine, *recordingReporter) {
	t.Helper()
	e, err := core.NewEngine(reg, opts, nil)
	require.NoError(t, err)
	rec := newRecordingReporter()
	e.AddReporter(rec)
	return e, rec
}

func records(n int, fn func(i int) map[string]interface{}) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func TestNewEngineRequiresFinalizedRegistry(t *testing.T) {
	reg := interpretation.NewRegistry()
	_, err := core.NewEngine(reg, core.Options{}, nil)
	assert.ErrorIs(t, err, interpretation.ErrNotFinalized)

	_, err = core.NewEngine(builtinRegistry(t), core.Options{SamplePolicy: "coin-flip"}, nil)
	var cerr *interpretation.ConfigurationError
	assert.True(t, errors.As(err, &cerr))
}

func TestNewEngineDefaults(t *testing.T) {
	e, err := core.NewEngine(builtinRegistry(t), core.Options{}, nil)
	require.NoError(t, err)
	opts := e.Options()
	assert.Equal(t, core.DefaultSampleSize, opts.SampleSize)
	assert.Equal(t, interpretation.SamplePolicyMajority, opts.SamplePolicy)
	assert.Equal(t, interpretation.DefaultMaxDepth, opts.MaxChainDepth)
	assert.Positive(t, opts.Workers)
}

func TestAnalyzeBuildsSchemaAndMetadata(t *testing.T) {
	e, rec := newEngine(t, builtinRegistry(t), core.Options{Workers: 2})

	src := source.NewSliceSource("mem",
		map[string]interface{}{"active": "true", "age": 31, "name": "ada", "tags": []interface{}{"x", "y"}},
		map[string]interface{}{"active": "false", "age": 40, "name": "bob", "tags": []interface{}{"x"}},
		map[string]interface{}{"active": "TRUE", "age": "52", "joined": "2024-01-02"},
	)
	report, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, int64(3), report.Records)
	assert.Equal(t, []string{"mem"}, report.Sources)
	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, 1, rec.finished)

	var paths []string
	for _, f := range report.Fields {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"active", "age", "joined", "name", "tags", "tags[]"}, paths)

	active, ok := report.Field("active")
	require.True(t, ok)
	assert.Equal(t, []string{builtin.BooleanName}, active.Chain)
	assert.Equal(t, int64(3), active.Accepted)
	assert.Equal(t, true, active.Example)
	require.NotNil(t, active.Metadata)
	assert.Equal(t, int64(3), active.Metadata.Count)

	age, _ := report.Field("age")
	assert.Equal(t, builtin.NumberName, age.Interpretation)
	assert.Equal(t, int64(3), age.Accepted)

	joined, _ := report.Field("joined")
	assert.Equal(t, []string{builtin.StringName, builtin.DateName}, joined.Chain)

	tags, _ := report.Field("tags[]")
	assert.Equal(t, int64(3), tags.Accepted)
	assert.Equal(t, "metadata-read", tags.State)

	root := report.Schema
	assert.Equal(t, []string{schema.TypeObject}, root.Types)
	node := root.Lookup("tags[]")
	require.NotNil(t, node)
	assert.Equal(t, builtin.StringName, node.Interpretation)
	require.NotNil(t, root.Lookup("tags"))
	assert.Equal(t, []string{schema.TypeArray}, root.Lookup("tags").Types)

	assert.ElementsMatch(t, paths, rec.fixed)
}

func TestAnalyzeBooleanScenario(t *testing.T) {
	e, _ := newEngine(t, builtinRegistry(t), core.Options{})

	values := []string{"true", "false", "true", "TRUE", "true"}
	src := source.NewSliceSource("flags", records(len(values), func(i int) map[string]interface{} {
		return map[string]interface{}{"flag": values[i]}
	})...)

	report, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	flag, ok := report.Field("flag")
	require.True(t, ok)
	require.NotNil(t, flag.Metadata)
	assert.Equal(t, []string{"boolean"}, flag.Metadata.Types)
	counts := map[string]int64{}
	for _, b := range flag.Metadata.ValueHistogram.Values {
		counts[b.Value] = b.Frequency
	}
	assert.Equal(t, map[string]int64{"true": 4, "false": 1}, counts)
}

func TestShardedAnalysisMatchesSingleSource(t *testing.T) {
	reg := builtinRegistry(t)
	all := records(60, func(i int) map[string]interface{} {
		return map[string]interface{}{
			"n":    i % 7,
			"even": i%2 == 0,
			"word": []string{"alpha", "beta", "gamma"}[i%3],
		}
	})

	single, _ := newEngine(t, reg, core.Options{Workers: 1})
	one, err := single.Analyze(context.Background(), source.NewSliceSource("all", all...))
	require.NoError(t, err)

	sharded, _ := newEngine(t, reg, core.Options{Workers: 4})
	many, err := sharded.Analyze(context.Background(),
		source.NewSliceSource("s1", all[:10]...),
		source.NewSliceSource("s2", all[10:35]...),
		source.NewSliceSource("s3", all[35:]...),
	)
	require.NoError(t, err)

	require.Equal(t, len(one.Fields), len(many.Fields))
	assert.Equal(t, one.Records, many.Records)
	for i := range one.Fields {
		a, b := one.Fields[i], many.Fields[i]
		assert.Equal(t, a.Path, b.Path)
		assert.Equal(t, a.Chain, b.Chain)
		assert.Equal(t, a.Accepted, b.Accepted)

		ma, err := metadata.FromSnapshot(*a.Metadata)
		require.NoError(t, err)
		mb, err := metadata.FromSnapshot(*b.Metadata)
		require.NoError(t, err)
		assert.True(t, ma.Equal(mb), a.Path)
	}
}

func TestAnalyzeCountsRejectedValues(t *testing.T) {
	e, rec := newEngine(t, builtinRegistry(t), core.Options{SampleSize: 3})

	src := source.NewSliceSource("mem",
		map[string]interface{}{"v": 1},
		map[string]interface{}{"v": 2},
		map[string]interface{}{"v": 3},
		map[string]interface{}{"v": "n/a"},
		map[string]interface{}{"v": 5},
	)
	report, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	v, _ := report.Field("v")
	assert.Equal(t, builtin.NumberName, v.Interpretation)
	assert.Equal(t, int64(4), v.Accepted)
	assert.Equal(t, int64(1), v.Rejected)
	assert.Empty(t, v.Error)
	assert.Equal(t, []string{"v"}, rec.rejected)
}

// flakyTransform accepts strings but fails to transform "poison"
type flakyTransform struct {
	builtin.String
}

func (f *flakyTransform) Name() string { return "flaky" }

func (f *flakyTransform) TransformValue(ctx context.Context, value interface{}) (interface{}, error) {
	if value == "poison" {
		return nil, errors.New("upstream lookup failed")
	}
	return value, nil
}

func (f *flakyTransform) MetadataSchema() metadata.Schema {
	return metadata.TypedSchema("flaky", schema.TypeString)
}

// faultyCheck faults on every check
type faultyCheck struct {
	builtin.Number
}

func (f *faultyCheck) Name() string { return "faulty" }

func (f *faultyCheck) CheckValue(ctx context.Context, value interface{}) (bool, error) {
	return false, errors.New("check exploded")
}

// TestAnalyzeSkipsUndecodableRecords tests that a malformed NDJSON line is counted and
// reported while the rest of the file is analyzed
func TestAnalyzeSkipsUndecodableRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	content := "{\"ok\": \"true\"}\n{\"ok\": tru\n{\"ok\": \"false\"}\n{\"ok\": \"true\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	src, err := source.Open(path, "")
	require.NoError(t, err)

	e, rec := newEngine(t, builtinRegistry(t), core.Options{})
	report, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Records)
	assert.Equal(t, int64(1), report.InvalidRecords)
	assert.Equal(t, []int{2}, rec.skipped)
	ok, found := report.Field("ok")
	require.True(t, found)
	assert.Equal(t, []string{builtin.BooleanName}, ok.Chain)
	assert.Equal(t, int64(3), ok.Accepted)
}

// TestAnalyzeKeepsDottedKeysApart tests that a key containing a dot and the nested field
// it resembles are analyzed as two fields
func TestAnalyzeKeepsDottedKeysApart(t *testing.T) {
	e, _ := newEngine(t, builtinRegistry(t), core.Options{})
	src := source.NewSliceSource("mem", records(4, func(i int) map[string]interface{} {
		return map[string]interface{}{
			"a.b": "true",
			"a":   map[string]interface{}{"b": "plain text"},
		}
	})...)

	report, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	dotted := schema.JoinPath(schema.EscapeKey("a.b"))
	flag, ok := report.Field(dotted)
	require.True(t, ok)
	assert.Equal(t, []string{builtin.BooleanName}, flag.Chain)
	assert.Equal(t, int64(4), flag.Accepted)

	nested, ok := report.Field("a.b")
	require.True(t, ok)
	assert.Equal(t, []string{builtin.StringName}, nested.Chain)
	assert.Equal(t, int64(4), nested.Accepted)

	node := report.Schema.Lookup(dotted)
	require.NotNil(t, node)
	assert.Equal(t, "a.b", node.Name)
	assert.Equal(t, builtin.BooleanName, node.Interpretation)
	assert.Equal(t, builtin.StringName, report.Schema.Lookup("a.b").Interpretation)
}

// TestShardedHistogramsStayWithinCap tests that merging many overflowing shards keeps
// at most the configured number of distinct values
func TestShardedHistogramsStayWithinCap(t *testing.T) {
	opts := builtin.DefaultOptions()
	opts.HistogramCap = 2
	reg := interpretation.NewRegistry()
	require.NoError(t, builtin.Register(reg, opts))
	require.NoError(t, reg.Finalize())

	e, _ := newEngine(t, reg, core.Options{Workers: 3})
	var sources []source.Source
	for s := 0; s < 5; s++ {
		shard := records(3, func(i int) map[string]interface{} {
			return map[string]interface{}{"word": fmt.Sprintf("w%d-%d", s, i)}
		})
		sources = append(sources, source.NewSliceSource(fmt.Sprintf("s%d", s), shard...))
	}

	report, err := e.Analyze(context.Background(), sources...)
	require.NoError(t, err)

	word, ok := report.Field("word")
	require.True(t, ok)
	assert.Empty(t, word.Error)
	require.NotNil(t, word.Metadata)
	h := word.Metadata.ValueHistogram
	assert.LessOrEqual(t, len(h.Values), h.Cap)
	total := h.Overflow
	for _, b := range h.Values {
		total += b.Frequency
	}
	assert.Equal(t, int64(15), total)
}

func TestAnalyzeIsolatesFailingFields(t *testing.T) {
	reg := interpretation.NewRegistry()
	require.NoError(t, reg.Register(&faultyCheck{Number: *builtin.NewNumber(builtin.DefaultOptions())}))
	require.NoError(t, reg.Register(&flakyTransform{String: *builtin.NewString(builtin.DefaultOptions())}))
	require.NoError(t, reg.Register(builtin.NewBoolean(builtin.DefaultOptions())))
	require.NoError(t, reg.Finalize())

	e, rec := newEngine(t, reg, core.Options{SampleSize: 2, Workers: 2})
	src := source.NewSliceSource("mem",
		map[string]interface{}{"s": "fine", "b": true},
		map[string]interface{}{"s": "ok", "b": false},
		map[string]interface{}{"s": "poison", "b": true},
		map[string]interface{}{"s": "later", "b": true},
	)
	report, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	s, _ := report.Field("s")
	assert.Equal(t, "failed", s.State)
	assert.Contains(t, s.Error, "upstream lookup failed")
	assert.Nil(t, s.Metadata)
	assert.NotEmpty(t, s.Warnings)

	b, _ := report.Field("b")
	assert.Empty(t, b.Error)
	assert.Equal(t, int64(4), b.Accepted)

	assert.Equal(t, 1, report.Failed())
	assert.Contains(t, rec.failed, "s")
	assert.NotContains(t, rec.failed, "b")
	assert.Contains(t, rec.warnings, "s")
}

func TestAnalyzeDepthBoundFailsFieldOnly(t *testing.T) {
	reg := interpretation.NewRegistry()
	require.NoError(t, builtin.Register(reg, builtin.DefaultOptions()))
	require.NoError(t, reg.Finalize())

	e, _ := newEngine(t, reg, core.Options{MaxChainDepth: 1})
	report, err := e.Analyze(context.Background(), source.NewSliceSource("mem",
		map[string]interface{}{"when": "2024-01-01", "n": 1},
	))
	require.NoError(t, err)

	when, _ := report.Field("when")
	assert.Contains(t, when.Error, interpretation.ErrDepthExceeded.Error())
	n, _ := report.Field("n")
	assert.Empty(t, n.Error)
}

func TestAnalyzeFirstMatchPolicy(t *testing.T) {
	e, _ := newEngine(t, builtinRegistry(t), core.Options{SamplePolicy: interpretation.SamplePolicyFirstMatch})
	report, err := e.Analyze(context.Background(), source.NewSliceSource("mem",
		map[string]interface{}{"v": "true"},
		map[string]interface{}{"v": "word"},
		map[string]interface{}{"v": "word"},
	))
	require.NoError(t, err)

	v, _ := report.Field("v")
	assert.Equal(t, builtin.BooleanName, v.Interpretation)
	assert.Equal(t, int64(1), v.Accepted)
	assert.Equal(t, int64(2), v.Rejected)
}

func TestAnalyzeCancelled(t *testing.T) {
	e, _ := newEngine(t, builtinRegistry(t), core.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Analyze(ctx, source.NewSliceSource("mem", map[string]interface{}{"a": 1}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeNoSources(t *testing.T) {
	e, _ := newEngine(t, builtinRegistry(t), core.Options{})
	report, err := e.Analyze(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Fields)
	assert.Equal(t, int64(0), report.Records)
	assert.NotNil(t, report.Schema)
}

func TestClassifyValue(t *testing.T) {
	e, _ := newEngine(t, builtinRegistry(t), core.Options{})

	out, err := e.ClassifyValue(context.Background(), "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{builtin.StringName, builtin.DateName}, out.Chain)
	assert.Equal(t, "2024-03-01T00:00:00Z", out.Example)
	assert.Equal(t, builtin.FormatDateTime, out.Schema.Format)
	assert.Len(t, out.Statistics, 2)

	out, err = e.ClassifyValue(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out.Chain)
	assert.Nil(t, out.Canonical)
}
