/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: source.go
Description: Record sources feeding the analysis engine. A source yields decoded records
one at a time; it can be iterated more than once, since the engine samples every
source before streaming it in full.
*/

package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Format names a record encoding
type Format string

const (
	FormatNDJSON Format = "ndjson"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatCSV    Format = "csv"
)

// Source yields records. Each call to Each restarts from the first record.
type Source interface {
	// Name identifies the source in logs and reports
	Name() string

	// Each calls fn for every record in order, stopping at the first error
	Each(ctx context.Context, fn func(record interface{}) error) error
}

// RecordError describes one record that could not be decoded
type RecordError struct {
	Source string
	Line   int
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: line %d: %v", e.Source, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// InvalidRecordFunc is called for each undecodable record. Returning nil skips the
// record and continues; returning an error stops the iteration with it.
type InvalidRecordFunc func(err *RecordError) error

// TolerantSource is a Source that can skip undecodable records and keep reading
type TolerantSource interface {
	Source

	// EachTolerant behaves like Each but hands undecodable records to onInvalid. A nil
	// onInvalid makes the first undecodable record fatal, as in Each.
	EachTolerant(ctx context.Context, fn func(record interface{}) error, onInvalid InvalidRecordFunc) error
}

// Iterate reads src, skipping undecodable records through onInvalid when src supports
// it. Other sources are read with Each.
func Iterate(ctx context.Context, src Source, fn func(record interface{}) error, onInvalid InvalidRecordFunc) error {
	if t, ok := src.(TolerantSource); ok {
		return t.EachTolerant(ctx, fn, onInvalid)
	}
	return src.Each(ctx, fn)
}

// SliceSource serves records held in memory
type SliceSource struct {
	name    string
	records []interface{}
}

// NewSliceSource creates a source over in-memory records
func NewSliceSource(name string, records ...interface{}) *SliceSource {
	return &SliceSource{name: name, records: records}
}

func (s *SliceSource) Name() string { return s.name }

func (s *SliceSource) Each(ctx context.Context, fn func(record interface{}) error) error {
	for _, r := range s.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of records
func (s *SliceSource) Len() int {
	return len(s.records)
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatNDJSON, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "jsonl":
		return FormatNDJSON, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported record format: %s", s)
	}
}

// DetectFormat guesses the format from a file extension
func DetectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot detect record format of %s: no extension", path)
	}
	return ParseFormat(ext)
}

// Open creates a file source. An empty format is detected from the extension.
func Open(path string, format Format) (*FileSource, error) {
	if format == "" {
		detected, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	return &FileSource{path: path, format: format}, nil
}
