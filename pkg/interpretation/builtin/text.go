/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: text.go
Description: String and date interpretations. String accepts any text value; date
follows string and accepts RFC 3339 timestamps and plain calendar dates, bucketing
its histogram by calendar day.
*/

package builtin

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
)

// String interprets text values
type String struct {
	base
}

// NewString creates the string interpretation
func NewString(opts Options) *String {
	return &String{base: base{name: StringName, opts: opts.withDefaults()}}
}

func (s *String) CheckValue(ctx context.Context, value interface{}) (bool, error) {
	_, ok := value.(string)
	return ok, nil
}

func (s *String) TransformSchema(ctx context.Context, node *schema.Node) (*schema.Node, error) {
	out := node.WithTypes(schema.TypeString)
	out.Interpretation = s.name
	return out, nil
}

func (s *String) TransformValue(ctx context.Context, value interface{}) (interface{}, error) {
	v, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("not a string: %T", value)
	}
	return v, nil
}

func (s *String) ListStatistics(ctx context.Context, value interface{}) ([]interpretation.Statistic, error) {
	v, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("not a string: %T", value)
	}
	return []interpretation.Statistic{{Name: "length", Value: float64(utf8.RuneCountInString(v))}}, nil
}

func (s *String) TransformExample(ctx context.Context, value interface{}) (interface{}, error) {
	if v, ok := value.(string); ok {
		return truncateString(v, s.opts.StringExampleLength), nil
	}
	return value, nil
}

func (s *String) CreateFieldAccumulator() metadata.FieldAccumulator {
	return newKeyedAccumulator(s.name, schema.TypeString, s.opts.HistogramCap, func(value interface{}) (string, bool) {
		v, ok := value.(string)
		return v, ok
	})
}

func (s *String) MetadataSchema() metadata.Schema {
	return metadata.TypedSchema(s.name, schema.TypeString)
}

// dateLayouts are tried in order when parsing dates
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// FormatDateTime is the schema format set on date fields
const FormatDateTime = "date-time"

// parseDate reads a time from a time.Time or a date string
func parseDate(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Date interprets strings holding timestamps or calendar dates
type Date struct {
	base
}

// NewDate creates the date interpretation
func NewDate(opts Options) *Date {
	return &Date{base: base{name: DateName, upstream: []string{StringName}, opts: opts.withDefaults()}}
}

func (d *Date) CheckValue(ctx context.Context, value interface{}) (bool, error) {
	_, ok := parseDate(value)
	return ok, nil
}

func (d *Date) TransformSchema(ctx context.Context, node *schema.Node) (*schema.Node, error) {
	out := node.WithTypes(schema.TypeString)
	out.Format = FormatDateTime
	out.Interpretation = d.name
	return out, nil
}

// TransformValue canonicalizes to a UTC time.Time
func (d *Date) TransformValue(ctx context.Context, value interface{}) (interface{}, error) {
	t, ok := parseDate(value)
	if !ok {
		return nil, fmt.Errorf("not a date: %v", value)
	}
	return t.UTC(), nil
}

func (d *Date) ListStatistics(ctx context.Context, value interface{}) ([]interpretation.Statistic, error) {
	t, ok := parseDate(value)
	if !ok {
		return nil, fmt.Errorf("not a date: %v", value)
	}
	return []interpretation.Statistic{{Name: "unix", Value: float64(t.Unix())}}, nil
}

// TransformExample renders dates as RFC 3339 text so examples stay plain
func (d *Date) TransformExample(ctx context.Context, value interface{}) (interface{}, error) {
	if t, ok := parseDate(value); ok {
		return t.UTC().Format(time.RFC3339), nil
	}
	return value, nil
}

func (d *Date) CreateFieldAccumulator() metadata.FieldAccumulator {
	return newKeyedAccumulator(d.name, DateName, d.opts.HistogramCap, func(value interface{}) (string, bool) {
		t, ok := parseDate(value)
		if !ok {
			return "", false
		}
		return t.UTC().Format("2006-01-02"), true
	})
}

func (d *Date) MetadataSchema() metadata.Schema {
	return metadata.TypedSchema(d.name, DateName)
}
