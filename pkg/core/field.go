/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: field.go
Description: Per-field life cycle. A field starts unclassified, gets exactly one chain
fixed, then accumulates values (directly or through independent partials that are
merged back), and finally has its metadata read. Failures move the field to a terminal
failed state without affecting other fields.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
)

// FieldState is a step of the field life cycle
type FieldState int

const (
	StateUnclassified FieldState = iota
	StateChainFixed
	StateAccumulating
	StateMetadataRead
	StateFailed
)

func (s FieldState) String() string {
	switch s {
	case StateUnclassified:
		return "unclassified"
	case StateChainFixed:
		return "chain-fixed"
	case StateAccumulating:
		return "accumulating"
	case StateMetadataRead:
		return "metadata-read"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an operation does not fit the field's state
var ErrInvalidTransition = errors.New("invalid field state transition")

// Field tracks one field path through classification and accumulation.
// Partials may be merged from several goroutines; everything else is single-owner.
type Field struct {
	Path string

	mu           sync.Mutex
	state        FieldState
	chain        interpretation.Chain
	node         *schema.Node
	votes        map[string]int
	warnings     []*interpretation.ClassificationError
	example      interface{}
	hasExample   bool
	histogramCap int

	merged   *metadata.FieldMetadata
	stream   *Partial
	accepted int64
	rejected int64
	err      error
}

// NewField creates an unclassified field
func NewField(path string, histogramCap int) *Field {
	return &Field{Path: path, histogramCap: histogramCap}
}

// State returns the current life cycle state
func (f *Field) State() FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Chain returns the fixed chain, empty before FixChain
func (f *Field) Chain() interpretation.Chain {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chain
}

// Err returns the error that failed the field, if any
func (f *Field) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Counts returns how many values were accumulated and how many were rejected
func (f *Field) Counts() (accepted, rejected int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accepted, f.rejected
}

// Warnings returns classification warnings collected while fixing the chain
func (f *Field) Warnings() []*interpretation.ClassificationError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*interpretation.ClassificationError(nil), f.warnings...)
}

// Votes returns the sample votes behind the fixed chain
func (f *Field) Votes() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.votes
}

// Fail moves the field to the failed state. The first error wins.
func (f *Field) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLocked(err)
}

func (f *Field) failLocked(err error) {
	if f.state == StateFailed {
		return
	}
	f.state = StateFailed
	f.err = err
}

func (f *Field) transitionError(op string) error {
	if f.state == StateFailed {
		return fmt.Errorf("field %s: %s: %w", f.Path, op, f.err)
	}
	return fmt.Errorf("field %s: %s in state %s: %w", f.Path, op, f.state, ErrInvalidTransition)
}

// FixChain fixes the field's chain from a classification and derives its schema node.
// Only an unclassified field can be fixed; a failing schema transform fails the field.
func (f *Field) FixChain(ctx context.Context, c *interpretation.Classification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateUnclassified {
		return f.transitionError("fix chain")
	}

	node, err := interpretation.TransformSchema(ctx, c.Chain, schema.NewNode(f.Path))
	if err != nil {
		var terr *interpretation.TransformError
		if errors.As(err, &terr) {
			terr.FieldPath = f.Path
		}
		f.failLocked(err)
		return err
	}

	f.chain = c.Chain
	f.node = node
	f.votes = c.Votes
	f.warnings = append(f.warnings, c.Warnings...)
	f.state = StateChainFixed
	return nil
}

// SetExample records the storage-sized example for the field, derived from a raw value
func (f *Field) SetExample(ctx context.Context, raw interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateUnclassified || f.state == StateFailed {
		return f.transitionError("set example")
	}
	ex, err := interpretation.TransformExample(ctx, f.chain, raw)
	if err != nil {
		return err
	}
	f.example = ex
	f.hasExample = true
	return nil
}

// Example returns the field example and whether one was set
func (f *Field) Example() (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.example, f.hasExample
}

// newAccumulator creates the accumulator for the chain leaf. An empty chain counts
// raw values only.
func (f *Field) newAccumulator() metadata.FieldAccumulator {
	if leaf := f.chain.Leaf(); leaf != nil {
		if acc := leaf.CreateFieldAccumulator(); acc != nil {
			return acc
		}
	}
	return &rawAccumulator{meta: metadata.New(f.histogramCap)}
}

// NewPartial starts an independent accumulation over a subset of the field's values.
// Partials are not safe for concurrent use; use one per shard.
func (f *Field) NewPartial() (*Partial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateChainFixed:
		f.state = StateAccumulating
	case StateAccumulating:
	default:
		return nil, f.transitionError("start accumulation")
	}
	return &Partial{
		path:        f.Path,
		chain:       f.chain,
		accumulator: f.newAccumulator(),
	}, nil
}

// Accumulate feeds one raw value through the fixed chain into the field's own stream.
// Values the chain rejects are counted and reported as an AccumulationError; a
// failing transform stage fails the field.
func (f *Field) Accumulate(ctx context.Context, raw interface{}) error {
	f.mu.Lock()
	stream := f.stream
	f.mu.Unlock()

	if stream == nil {
		p, err := f.NewPartial()
		if err != nil {
			return err
		}
		f.mu.Lock()
		if f.stream == nil {
			f.stream = p
		}
		stream = f.stream
		f.mu.Unlock()
	}

	err := stream.Accumulate(ctx, raw)
	if stream.Err() != nil {
		f.Fail(stream.Err())
	}
	return err
}

// Merge folds a finished partial into the field. Merge order does not matter.
func (f *Field) Merge(p *Partial) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mergeLocked(p)
}

func (f *Field) mergeLocked(p *Partial) error {
	if f.state == StateFailed {
		return f.transitionError("merge")
	}
	if f.state != StateAccumulating {
		return f.transitionError("merge")
	}
	if p.err != nil {
		f.failLocked(p.err)
		return p.err
	}
	f.merged = metadata.Merge(f.merged, p.accumulator.FieldMetadata())
	f.accepted += p.accepted
	f.rejected += p.rejected
	return nil
}

// Metadata finalizes accumulation and returns the merged field metadata. The first
// call moves the field to MetadataRead; later calls return the same result.
func (f *Field) Metadata() (*metadata.FieldMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateMetadataRead:
		return f.merged.Clone(), nil
	case StateChainFixed, StateAccumulating:
	default:
		return nil, f.transitionError("read metadata")
	}

	if f.stream != nil {
		stream := f.stream
		f.stream = nil
		if err := f.mergeLocked(stream); err != nil {
			return nil, err
		}
	}
	if f.merged == nil {
		f.merged = f.newAccumulator().FieldMetadata()
	}
	f.state = StateMetadataRead
	return f.merged.Clone(), nil
}

// Node returns a copy of the field's schema node, with example and metadata attached
// once metadata has been read
func (f *Field) Node() *schema.Node {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.node == nil {
		return schema.NewNode(f.Path)
	}
	node := f.node.Clone()
	if f.hasExample {
		node.Example = f.example
	}
	if f.state == StateMetadataRead {
		node.SetMetadata(f.merged)
	}
	return node
}

// Partial accumulates a subset of one field's values
type Partial struct {
	path        string
	chain       interpretation.Chain
	accumulator metadata.FieldAccumulator
	accepted    int64
	rejected    int64
	err         error
}

// Err returns the error that stopped the partial, if any
func (p *Partial) Err() error {
	return p.err
}

// Accumulate transforms one raw value through the chain and accumulates it.
// Rejections are counted and returned as an AccumulationError. Once a transform
// stage fails the partial stops accepting values.
func (p *Partial) Accumulate(ctx context.Context, raw interface{}) error {
	if p.err != nil {
		return p.err
	}

	canonical, err := interpretation.TransformValue(ctx, p.chain, raw)
	if err != nil {
		var terr *interpretation.TransformError
		if errors.As(err, &terr) {
			terr.FieldPath = p.path
			if terr.IsChainMismatch() {
				p.rejected++
				return &interpretation.AccumulationError{
					Interpretation: terr.Interpretation,
					Value:          raw,
					Err:            err,
				}
			}
		}
		if ctx.Err() != nil {
			return err
		}
		p.err = err
		return err
	}

	if err := p.accumulator.AccumulateValue(canonical); err != nil {
		var aerr *interpretation.AccumulationError
		if errors.As(err, &aerr) {
			p.rejected++
			return err
		}
		p.err = fmt.Errorf("field %s: accumulator failed: %w", p.path, err)
		return p.err
	}
	p.accepted++
	return nil
}

// rawAccumulator counts values of fields no interpretation applies to
type rawAccumulator struct {
	meta *metadata.FieldMetadata
}

func (a *rawAccumulator) AccumulateValue(value interface{}) error {
	a.meta.Count++
	return nil
}

func (a *rawAccumulator) FieldMetadata() *metadata.FieldMetadata {
	return a.meta.Clone()
}
