/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Analysis engine. Runs the two-pass pipeline over record sources: the first
pass samples values per field path and fixes one chain per field, the second streams
every value through its field's chain into per-source partial accumulators that are
merged afterwards. Fields fail independently and undecodable NDJSON records are
skipped and counted; only cancellation or an unreadable source aborts a run.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/logging"
	"github.com/kleascm/fieldlens/pkg/schema"
	"github.com/kleascm/fieldlens/pkg/source"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Engine analyzes record sources against a finalized interpretation registry.
// An Engine may run several analyses, one at a time or concurrently.
type Engine struct {
	registry  *interpretation.Registry
	builder   *interpretation.ChainBuilder
	options   Options
	logger    *logging.Logger
	reporters []Reporter
}

// NewEngine creates an engine. The registry must already be finalized; a nil logger
// discards log output.
func NewEngine(registry *interpretation.Registry, options Options, logger logrus.FieldLogger) (*Engine, error) {
	if registry == nil || !registry.Finalized() {
		return nil, &interpretation.ConfigurationError{Err: interpretation.ErrNotFinalized}
	}
	policy, err := interpretation.ParseSamplePolicy(string(options.SamplePolicy))
	if err != nil {
		return nil, &interpretation.ConfigurationError{Err: err}
	}
	options.SamplePolicy = policy
	options = options.withDefaults()

	l := logging.Wrap(logger)
	return &Engine{
		registry: registry,
		builder: interpretation.NewChainBuilder(registry, interpretation.ChainBuilderConfig{
			MaxDepth: options.MaxChainDepth,
			Policy:   options.SamplePolicy,
		}),
		options:   options,
		logger:    l,
		reporters: []Reporter{NewLoggerReporter(l)},
	}, nil
}

// AddReporter registers an additional event reporter. Not safe to call during Analyze.
func (e *Engine) AddReporter(r Reporter) {
	e.reporters = append(e.reporters, r)
}

// Options returns the effective options
func (e *Engine) Options() Options {
	return e.options
}

// Builder returns the chain builder the engine classifies with
func (e *Engine) Builder() *interpretation.ChainBuilder {
	return e.builder
}

// run holds the state of one Analyze call
type run struct {
	fields  map[string]*Field
	paths   []string // First-seen order across sources
	records atomic.Int64
	invalid atomic.Int64
}

// Analyze runs both passes over the sources and assembles the report
func (e *Engine) Analyze(ctx context.Context, sources ...source.Source) (*Report, error) {
	started := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: started.UTC(),
	}
	for _, src := range sources {
		report.Sources = append(report.Sources, src.Name())
	}

	samples, paths, err := e.sample(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("sampling failed: %w", err)
	}

	r := &run{fields: make(map[string]*Field, len(paths)), paths: paths}
	for _, p := range paths {
		r.fields[p] = NewField(p, e.options.HistogramCap)
	}

	if err := e.fixChains(ctx, r, samples); err != nil {
		return nil, fmt.Errorf("chain fixing failed: %w", err)
	}
	if err := e.stream(ctx, r, sources); err != nil {
		return nil, fmt.Errorf("accumulation failed: %w", err)
	}

	e.assemble(r, report)
	report.Records = r.records.Load()
	report.InvalidRecords = r.invalid.Load()
	report.Duration = time.Since(started)

	for _, rep := range e.reporters {
		rep.OnRunFinished(report)
	}
	return report, nil
}

// sourceSample is the first pass result for one source
type sourceSample struct {
	values map[string][]interface{}
	paths  []string
}

// sample collects up to SampleSize values per field path. Sources are read in parallel
// and combined in source order, so the sample does not depend on scheduling.
func (e *Engine) sample(ctx context.Context, sources []source.Source) (map[string][]interface{}, []string, error) {
	results := make([]sourceSample, len(sources))
	limit := e.options.SampleSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.Workers)
	for i, src := range sources {
		g.Go(func() error {
			res := sourceSample{values: make(map[string][]interface{})}
			err := source.Iterate(gctx, src, func(record interface{}) error {
				for _, fv := range source.Flatten(record) {
					vals, seen := res.values[fv.Path]
					if !seen {
						res.paths = append(res.paths, fv.Path)
					}
					if len(vals) < limit {
						res.values[fv.Path] = append(vals, fv.Value)
					}
				}
				return nil
			}, skipRecord)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	samples := make(map[string][]interface{})
	var paths []string
	for _, res := range results {
		for _, p := range res.paths {
			existing, seen := samples[p]
			if !seen {
				paths = append(paths, p)
			}
			room := limit - len(existing)
			vals := res.values[p]
			if room < len(vals) {
				vals = vals[:room]
			}
			samples[p] = append(existing, vals...)
		}
	}
	return samples, paths, nil
}

// skipRecord drops undecodable records during sampling; the streaming pass counts them
func skipRecord(*source.RecordError) error {
	return nil
}

// fixChains fixes every field's chain from its sample. Fields are independent and are
// fixed in parallel; a field that cannot be fixed fails alone.
func (e *Engine) fixChains(ctx context.Context, r *run, samples map[string][]interface{}) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.Workers)

	for _, p := range r.paths {
		field := r.fields[p]
		sample := samples[p]
		g.Go(func() error {
			return e.fixField(gctx, field, sample)
		})
	}
	return g.Wait()
}

func (e *Engine) fixField(ctx context.Context, field *Field, sample []interface{}) error {
	c, err := e.builder.FixChain(ctx, sample)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		field.Fail(err)
		return nil
	}

	for _, w := range c.Warnings {
		for _, rep := range e.reporters {
			rep.OnClassificationWarning(field.Path, w)
		}
	}

	if err := field.FixChain(ctx, c); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}

	// The example comes from the first sample value the fixed chain accepts
	for _, v := range sample {
		if _, err := interpretation.TransformValue(ctx, c.Chain, v); err != nil {
			continue
		}
		if err := field.SetExample(ctx, v); err != nil {
			e.logger.FieldLogger().WithField("field", field.Path).WithError(err).Debug("Example skipped")
		}
		break
	}

	for _, rep := range e.reporters {
		rep.OnChainFixed(field)
	}
	return nil
}

// stream runs the second pass. Each source is one shard with its own partials, merged
// into the fields when the shard finishes.
func (e *Engine) stream(ctx context.Context, r *run, sources []source.Source) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.Workers)

	for _, src := range sources {
		g.Go(func() error {
			return e.streamShard(gctx, r, src)
		})
	}
	return g.Wait()
}

func (e *Engine) streamShard(ctx context.Context, r *run, src source.Source) error {
	partials := make(map[string]*Partial)
	skipped := make(map[string]bool)

	onInvalid := func(rerr *source.RecordError) error {
		r.invalid.Add(1)
		for _, rep := range e.reporters {
			rep.OnRecordSkipped(rerr)
		}
		return nil
	}

	err := source.Iterate(ctx, src, func(record interface{}) error {
		r.records.Add(1)
		for _, fv := range source.Flatten(record) {
			if skipped[fv.Path] {
				continue
			}
			p, ok := partials[fv.Path]
			if !ok {
				field, known := r.fields[fv.Path]
				if !known {
					// The source changed between passes
					skipped[fv.Path] = true
					e.logger.FieldLogger().WithField("field", fv.Path).Warn("Field missing from sample pass")
					continue
				}
				var err error
				if p, err = field.NewPartial(); err != nil {
					skipped[fv.Path] = true
					continue
				}
				partials[fv.Path] = p
			}

			err := p.Accumulate(ctx, fv.Value)
			if err == nil {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			var aerr *interpretation.AccumulationError
			if errors.As(err, &aerr) {
				for _, rep := range e.reporters {
					rep.OnValueRejected(fv.Path, fv.Value, err)
				}
				continue
			}
			// The partial has stopped; the field fails when it is merged
			skipped[fv.Path] = true
		}
		return nil
	}, onInvalid)
	if err != nil {
		return fmt.Errorf("source %s: %w", src.Name(), err)
	}

	for path, p := range partials {
		// A merge error means the field has failed, which assemble reports
		_ = r.fields[path].Merge(p)
	}
	return nil
}

// assemble reads every field's metadata and builds the schema tree and field reports
func (e *Engine) assemble(r *run, report *Report) {
	paths := append([]string(nil), r.paths...)
	sort.Strings(paths)

	root := schema.NewNode("").WithTypes(schema.TypeObject)
	for _, p := range paths {
		field := r.fields[p]
		e.finishField(field)

		node := field.Node()
		if err := root.Attach(node); err != nil {
			e.logger.FieldLogger().WithField("field", p).WithError(err).Warn("Field not attached to schema")
		}

		report.Fields = append(report.Fields, e.fieldReport(field, node))
	}
	report.Schema = root
}

// finishField reads metadata and checks it against the leaf's metadata schema
func (e *Engine) finishField(field *Field) {
	if err := field.Err(); err == nil {
		md, err := field.Metadata()
		if err == nil {
			if leaf := field.Chain().Leaf(); leaf != nil {
				if verr := leaf.MetadataSchema().Validate(md.ToMap()); verr != nil {
					field.Fail(fmt.Errorf("metadata does not match schema: %w", verr))
				}
			}
		}
	}
	if err := field.Err(); err != nil {
		for _, rep := range e.reporters {
			rep.OnFieldFailed(field.Path, err)
		}
	}
}

func (e *Engine) fieldReport(field *Field, node *schema.Node) FieldReport {
	accepted, rejected := field.Counts()
	fr := FieldReport{
		Path:           field.Path,
		State:          field.State().String(),
		Chain:          field.Chain().Names(),
		Interpretation: node.Interpretation,
		Votes:          field.Votes(),
		Accepted:       accepted,
		Rejected:       rejected,
		Metadata:       node.Metadata,
	}
	if ex, ok := field.Example(); ok {
		fr.Example = ex
	}
	for _, w := range field.Warnings() {
		fr.Warnings = append(fr.Warnings, w.Error())
	}
	if err := field.Err(); err != nil {
		fr.Error = err.Error()
	}
	return fr
}

// ValueReport describes how a single value is classified and transformed
type ValueReport struct {
	Chain      []string                   `json:"chain" yaml:"chain"`
	Canonical  interface{}                `json:"canonical" yaml:"canonical"`
	Example    interface{}                `json:"example" yaml:"example"`
	Statistics []interpretation.Statistic `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Schema     *schema.Node               `json:"schema" yaml:"schema"`
	Warnings   []string                   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ClassifyValue builds the chain for one raw value and applies every transform to it
func (e *Engine) ClassifyValue(ctx context.Context, value interface{}) (*ValueReport, error) {
	c, err := e.builder.BuildChain(ctx, value)
	if err != nil {
		return nil, err
	}
	out := &ValueReport{Chain: c.Chain.Names()}
	for _, w := range c.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}

	if out.Canonical, err = interpretation.TransformValue(ctx, c.Chain, value); err != nil {
		return nil, err
	}
	if out.Example, err = interpretation.TransformExample(ctx, c.Chain, value); err != nil {
		return nil, err
	}
	if out.Statistics, err = interpretation.ListStatistics(ctx, c.Chain, value); err != nil {
		return nil, err
	}
	if out.Schema, err = interpretation.TransformSchema(ctx, c.Chain, schema.NewNode("")); err != nil {
		return nil, err
	}
	return out, nil
}
