/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Engine options and the run report produced by an analysis.
*/

package core

import (
	"runtime"
	"time"

	"github.com/kleascm/fieldlens/pkg/histogram"
	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
)

// Default engine limits
const (
	DefaultSampleSize = 100
)

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	SampleSize    int                         // Values per field used to fix its chain
	SamplePolicy  interpretation.SamplePolicy // How a sample fixes a chain
	MaxChainDepth int                         // Chain length bound
	Workers       int                         // Parallel shards and chain fixes
	HistogramCap  int                         // Cap for raw-field histograms
}

func (o Options) withDefaults() Options {
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.SamplePolicy == "" {
		o.SamplePolicy = interpretation.SamplePolicyMajority
	}
	if o.MaxChainDepth <= 0 {
		o.MaxChainDepth = interpretation.DefaultMaxDepth
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.HistogramCap <= 0 {
		o.HistogramCap = histogram.DefaultCap
	}
	return o
}

// Report is the outcome of one analysis run
type Report struct {
	RunID          string        `json:"run_id" yaml:"run_id"`
	StartedAt      time.Time     `json:"started_at" yaml:"started_at"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
	Sources        []string      `json:"sources" yaml:"sources"`
	Records        int64         `json:"records" yaml:"records"`
	InvalidRecords int64         `json:"invalid_records" yaml:"invalid_records"` // Undecodable records skipped
	Schema         *schema.Node  `json:"schema" yaml:"schema"`
	Fields         []FieldReport `json:"fields" yaml:"fields"`
}

// FieldReport summarizes one field, in path order
type FieldReport struct {
	Path           string             `json:"path" yaml:"path"`
	State          string             `json:"state" yaml:"state"`
	Chain          []string           `json:"chain,omitempty" yaml:"chain,omitempty"`
	Interpretation string             `json:"interpretation,omitempty" yaml:"interpretation,omitempty"`
	Votes          map[string]int     `json:"votes,omitempty" yaml:"votes,omitempty"`
	Accepted       int64              `json:"accepted" yaml:"accepted"`
	Rejected       int64              `json:"rejected" yaml:"rejected"`
	Warnings       []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error          string             `json:"error,omitempty" yaml:"error,omitempty"`
	Example        interface{}        `json:"example,omitempty" yaml:"example,omitempty"`
	Metadata       *metadata.Snapshot `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Failed counts fields that failed
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Fields {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// Field returns the report for a path
func (r *Report) Field(path string) (FieldReport, bool) {
	for _, f := range r.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return FieldReport{}, false
}
