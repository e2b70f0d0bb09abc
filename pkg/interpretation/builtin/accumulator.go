/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: accumulator.go
Description: Histogram-backed field accumulator shared by the built-in interpretations.
Each interpretation supplies a key function mapping a canonical value to a histogram
key; values the key function cannot map are rejected with an AccumulationError.
*/

package builtin

import (
	"github.com/kleascm/fieldlens/pkg/histogram"
	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/metadata"
)

// keyFunc maps a value to its histogram key, or reports false for incompatible values
type keyFunc func(value interface{}) (string, bool)

// keyedAccumulator counts values by key
type keyedAccumulator struct {
	interpretation string
	typeTag        string
	key            keyFunc
	hist           *histogram.ValueHistogram
	count          int64
}

func newKeyedAccumulator(name, typeTag string, histogramCap int, key keyFunc) *keyedAccumulator {
	return &keyedAccumulator{
		interpretation: name,
		typeTag:        typeTag,
		key:            key,
		hist:           histogram.New(histogramCap),
	}
}

func (a *keyedAccumulator) AccumulateValue(value interface{}) error {
	k, ok := a.key(value)
	if !ok {
		return interpretation.NewAccumulationError(a.interpretation, value)
	}
	a.hist.Add(k)
	a.count++
	return nil
}

func (a *keyedAccumulator) FieldMetadata() *metadata.FieldMetadata {
	return &metadata.FieldMetadata{
		Types:          []string{a.typeTag},
		ValueHistogram: a.hist.Clone(),
		Count:          a.count,
	}
}
