/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: file.go
Description: File-backed record sources. NDJSON files hold one JSON document per line,
JSON files hold a top-level array (or a single object), YAML files hold one record per
document, and CSV files use the first row as field names. Undecodable NDJSON lines may
be skipped; every other decoding error ends the read.
*/

package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// maxLineSize bounds a single NDJSON line
const maxLineSize = 16 * 1024 * 1024

// FileSource reads records from a file on every iteration
type FileSource struct {
	path   string
	format Format
}

func (f *FileSource) Name() string { return f.path }

// Format returns the record encoding
func (f *FileSource) Format() Format { return f.format }

func (f *FileSource) Each(ctx context.Context, fn func(record interface{}) error) error {
	return f.EachTolerant(ctx, fn, nil)
}

// EachTolerant reads the file, handing undecodable NDJSON lines to onInvalid
func (f *FileSource) EachTolerant(ctx context.Context, fn func(record interface{}) error, onInvalid InvalidRecordFunc) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", f.path, err)
	}
	defer file.Close()

	return decodeRecords(ctx, file, f.path, f.format, fn, onInvalid)
}

// decodeRecords calls fn for every record read from r in the given format. Only NDJSON
// lines can be skipped; a syntax error in the other formats leaves no way to resume.
func decodeRecords(ctx context.Context, r io.Reader, name string, format Format, fn func(interface{}) error, onInvalid InvalidRecordFunc) error {
	switch format {
	case FormatNDJSON:
		return eachNDJSON(ctx, r, name, fn, onInvalid)
	case FormatJSON:
		return eachJSON(ctx, r, fn)
	case FormatYAML:
		return eachYAML(ctx, r, fn)
	case FormatCSV:
		return eachCSV(ctx, r, fn)
	default:
		return fmt.Errorf("unsupported record format: %s", format)
	}
}

func decodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func eachNDJSON(ctx context.Context, r io.Reader, name string, fn func(interface{}) error, onInvalid InvalidRecordFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		record, err := decodeJSON(data)
		if err != nil {
			rerr := &RecordError{Source: name, Line: line, Err: err}
			if onInvalid == nil {
				return rerr
			}
			if err := onInvalid(rerr); err != nil {
				return err
			}
			continue
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func eachJSON(ctx context.Context, r io.Reader, fn func(interface{}) error) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}
	doc, err := decodeJSON(data)
	if err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	items, ok := doc.([]interface{})
	if !ok {
		items = []interface{}{doc}
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

func eachYAML(ctx context.Context, r io.Reader, fn func(interface{}) error) error {
	dec := yaml.NewDecoder(r)
	for doc := 1; ; doc++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var v interface{}
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("document %d: %w", doc, err)
		}
		if v == nil {
			continue
		}
		if err := fn(normalizeYAML(v)); err != nil {
			return err
		}
	}
}

// normalizeYAML rewrites non-string mapping keys so records always use
// map[string]interface{} objects
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}

func eachCSV(ctx context.Context, r io.Reader, fn func(interface{}) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	for row := 2; ; row++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		record := make(map[string]interface{}, len(header))
		for i, name := range header {
			if i < len(fields) && fields[i] != "" {
				record[name] = fields[i]
			}
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}
