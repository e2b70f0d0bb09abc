/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: chain.go
Description: Interpretation chain resolution. Walks the finalized registry from the
implicit root, at each step selecting the first candidate (in registration order)
whose applicability check accepts the value, until no candidate matches. Also fixes a
single chain for a field from a sample of its values using an explicit sample policy.
*/

package interpretation

import (
	"context"
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds chain length when no bound is configured
const DefaultMaxDepth = 16

// Chain is the ordered path of interpretations from the root to a leaf.
// An empty chain means the value is unclassifiable beyond raw.
type Chain []Interpretation

// Names returns the interpretation names in chain order
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, interp := range c {
		names[i] = interp.Name()
	}
	return names
}

// Leaf returns the last interpretation, or nil for an empty chain
func (c Chain) Leaf() Interpretation {
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1]
}

// LeafName returns the leaf's name, or RootName for an empty chain
func (c Chain) LeafName() string {
	if leaf := c.Leaf(); leaf != nil {
		return leaf.Name()
	}
	return RootName
}

// Equal compares chains by interpretation names
func (c Chain) Equal(o Chain) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i].Name() != o[i].Name() {
			return false
		}
	}
	return true
}

// String renders the chain as "a -> b -> c"
func (c Chain) String() string {
	if len(c) == 0 {
		return RootName
	}
	return strings.Join(c.Names(), " -> ")
}

// Validate checks the adjacency invariant: the first element has no upstreams and every
// later element lists its predecessor as an upstream
func (c Chain) Validate() error {
	prev := RootName
	for i, interp := range c {
		ups := interp.UpstreamNames()
		ok := false
		if prev == RootName {
			ok = len(ups) == 0
		} else {
			for _, up := range ups {
				if up == prev {
					ok = true
					break
				}
			}
		}
		if !ok {
			return &ConfigurationError{
				Interpretation: interp.Name(),
				Err:            ErrUnknownUpstream,
				Detail:         fmt.Sprintf("position %d cannot follow %s", i, prev),
			}
		}
		prev = interp.Name()
	}
	return nil
}

// SamplePolicy decides how one chain is fixed for a field from a sample of values
type SamplePolicy string

const (
	// SamplePolicyMajority picks the leaf interpretation reached by most sample values.
	// Values with an empty chain vote for the raw root. Ties go to the leaf seen first,
	// and the chosen chain is the chain of the first value that reached that leaf.
	SamplePolicyMajority SamplePolicy = "majority"

	// SamplePolicyFirstMatch picks the chain of the first value that produced a
	// non-empty chain
	SamplePolicyFirstMatch SamplePolicy = "first-match"
)

// ParseSamplePolicy validates a policy name
func ParseSamplePolicy(s string) (SamplePolicy, error) {
	switch SamplePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case SamplePolicyMajority, "":
		return SamplePolicyMajority, nil
	case SamplePolicyFirstMatch:
		return SamplePolicyFirstMatch, nil
	default:
		return "", fmt.Errorf("unsupported sample policy: %s", s)
	}
}

// Classification is the outcome of classifying one value or one field sample
type Classification struct {
	Chain    Chain
	Warnings []*ClassificationError
	Votes    map[string]int // Leaf name votes, only set for sample classification
}

// ChainBuilderConfig configures a ChainBuilder
type ChainBuilderConfig struct {
	MaxDepth int          // Chain length bound, DefaultMaxDepth if <= 0
	Policy   SamplePolicy // Sample policy, majority if empty
}

// ChainBuilder resolves chains against a finalized registry.
// It holds no mutable state and is safe for concurrent use.
type ChainBuilder struct {
	registry *Registry
	maxDepth int
	policy   SamplePolicy
}

// NewChainBuilder creates a chain builder over the registry
func NewChainBuilder(registry *Registry, config ChainBuilderConfig) *ChainBuilder {
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	if config.Policy == "" {
		config.Policy = SamplePolicyMajority
	}
	return &ChainBuilder{
		registry: registry,
		maxDepth: config.MaxDepth,
		policy:   config.Policy,
	}
}

// Policy returns the configured sample policy
func (b *ChainBuilder) Policy() SamplePolicy {
	return b.policy
}

// BuildChain classifies a single value. Faulting applicability checks are reported as
// warnings and the faulting candidate is skipped. Each stage is checked against the
// value as transformed by the previous stage, matching how the chain is applied later.
func (b *ChainBuilder) BuildChain(ctx context.Context, value interface{}) (*Classification, error) {
	result := &Classification{}
	tip := RootName
	current := value

	for {
		candidates, err := b.registry.CandidatesFor(tip)
		if err != nil {
			return nil, err
		}

		var selected Interpretation
		var next interface{}
		for _, candidate := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			ok, err := candidate.CheckValue(ctx, current)
			if err != nil {
				result.Warnings = append(result.Warnings, &ClassificationError{
					Interpretation: candidate.Name(),
					Depth:          len(result.Chain),
					Err:            err,
				})
				continue
			}
			if !ok {
				continue
			}
			transformed, err := candidate.TransformValue(ctx, current)
			if err != nil {
				result.Warnings = append(result.Warnings, &ClassificationError{
					Interpretation: candidate.Name(),
					Depth:          len(result.Chain),
					Err:            fmt.Errorf("accepted value but failed to transform it: %w", err),
				})
				continue
			}
			selected = candidate
			next = transformed
			break
		}

		if selected == nil {
			return result, nil
		}
		if len(result.Chain)+1 > b.maxDepth {
			return nil, &ConfigurationError{
				Interpretation: selected.Name(),
				Err:            ErrDepthExceeded,
				Detail:         fmt.Sprintf("bound %d, chain %s", b.maxDepth, result.Chain),
			}
		}

		result.Chain = append(result.Chain, selected)
		tip = selected.Name()
		current = next
	}
}

// FixChain chooses the single chain for a field from a representative sample of its
// raw values, according to the configured sample policy
func (b *ChainBuilder) FixChain(ctx context.Context, samples []interface{}) (*Classification, error) {
	result := &Classification{Votes: make(map[string]int)}

	var leaves []string // Leaf names in order of first appearance
	firstChain := make(map[string]Chain)

	for _, value := range samples {
		c, err := b.BuildChain(ctx, value)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, c.Warnings...)

		leaf := c.Chain.LeafName()
		if _, seen := firstChain[leaf]; !seen {
			firstChain[leaf] = c.Chain
			leaves = append(leaves, leaf)
		}
		result.Votes[leaf]++

		if b.policy == SamplePolicyFirstMatch && len(c.Chain) > 0 {
			result.Chain = c.Chain
			return result, nil
		}
	}

	if b.policy == SamplePolicyFirstMatch {
		return result, nil
	}

	winner := ""
	for _, leaf := range leaves {
		if winner == "" || result.Votes[leaf] > result.Votes[winner] {
			winner = leaf
		}
	}
	if winner != "" {
		result.Chain = firstChain[winner]
	}
	return result, nil
}
