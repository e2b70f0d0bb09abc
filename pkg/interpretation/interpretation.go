/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interpretation.go
Description: The Interpretation plugin contract. An interpretation is a named classifier
and transformer for one semantic data type; it declares which interpretations it may
follow, decides whether a value fits, rewrites schema and value, truncates examples,
and creates the accumulator that summarizes a field's values.
*/

package interpretation

import (
	"context"

	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
)

// RootName is the sentinel name of the implicit root of every chain (the raw value)
const RootName = "$root"

// Statistic is a named numeric quantity derived from a single value, suitable for graphing
type Statistic struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Interpretation is implemented by every interpretation plugin.
//
// The context-taking methods may block (for example on an external lookup); callers
// never assume they complete synchronously. Implementations must be safe for
// concurrent use once registered, since a finalized registry is shared across workers.
type Interpretation interface {
	// Name is the unique registry key
	Name() string

	// UpstreamNames lists the interpretations this one may directly follow.
	// An empty list means the interpretation applies to raw values.
	UpstreamNames() []string

	// CheckValue reports whether the value can be handled by this interpretation
	CheckValue(ctx context.Context, value interface{}) (bool, error)

	// TransformSchema returns a new schema node for a field following this interpretation.
	// The input node must not be modified.
	TransformSchema(ctx context.Context, node *schema.Node) (*schema.Node, error)

	// TransformValue returns the canonical form of a value accepted by CheckValue
	TransformValue(ctx context.Context, value interface{}) (interface{}, error)

	// ListStatistics returns per-value statistics worth graphing
	ListStatistics(ctx context.Context, value interface{}) ([]Statistic, error)

	// TransformExample returns a lossy, storage-sized version of the value
	TransformExample(ctx context.Context, value interface{}) (interface{}, error)

	// CreateFieldAccumulator returns a fresh accumulator for one field
	CreateFieldAccumulator() metadata.FieldAccumulator

	// MetadataSchema describes the shape of the metadata the accumulator produces
	MetadataSchema() metadata.Schema
}
