/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: builtin.go
Description: Built-in interpretations and their bootstrap. Registers the boolean,
number, string, sequence and object interpretations on raw values and the date
interpretation downstream of string, in the priority order used for classification.
*/

package builtin

import (
	"context"

	"github.com/kleascm/fieldlens/pkg/histogram"
	"github.com/kleascm/fieldlens/pkg/interpretation"
)

// Interpretation names
const (
	BooleanName  = "boolean"
	NumberName   = "number"
	StringName   = "string"
	DateName     = "date"
	SequenceName = "sequence"
	ObjectName   = "object"
)

// Options tunes the built-in interpretations
type Options struct {
	HistogramCap        int // Distinct values kept per field histogram
	ExampleLimit        int // Max elements or keys kept in collection examples
	StringExampleLength int // Max runes kept in string examples
}

// DefaultOptions returns the defaults used when no configuration is given
func DefaultOptions() Options {
	return Options{
		HistogramCap:        histogram.DefaultCap,
		ExampleLimit:        10,
		StringExampleLength: 100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HistogramCap <= 0 {
		o.HistogramCap = d.HistogramCap
	}
	if o.ExampleLimit <= 0 {
		o.ExampleLimit = d.ExampleLimit
	}
	if o.StringExampleLength <= 0 {
		o.StringExampleLength = d.StringExampleLength
	}
	return o
}

// All returns the built-in interpretations in registration (priority) order.
// Boolean and number come before string so that "true" or "12" are not read as text.
func All(opts Options) []interpretation.Interpretation {
	opts = opts.withDefaults()
	return []interpretation.Interpretation{
		NewBoolean(opts),
		NewNumber(opts),
		NewString(opts),
		NewSequence(opts),
		NewObject(opts),
		NewDate(opts),
	}
}

// Register adds every built-in interpretation to the registry
func Register(registry *interpretation.Registry, opts Options) error {
	for _, interp := range All(opts) {
		if err := registry.Register(interp); err != nil {
			return err
		}
	}
	return nil
}

// base carries the identity shared by every built-in interpretation
type base struct {
	name     string
	upstream []string
	opts     Options
}

func (b base) Name() string {
	return b.name
}

func (b base) UpstreamNames() []string {
	return append([]string(nil), b.upstream...)
}

func (b base) ListStatistics(ctx context.Context, value interface{}) ([]interpretation.Statistic, error) {
	return nil, nil
}
