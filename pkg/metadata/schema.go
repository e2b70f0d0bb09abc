/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schema.go
Description: Static metadata schemas. Each interpretation declares the shape of the
metadata it produces as a CUE definition; persisted metadata in plain form is checked
against that definition before it is trusted.
*/

package metadata

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefinitionName is the CUE definition every metadata schema must declare
const DefinitionName = "#FieldMetadata"

const histogramDefinition = `
#ValueHistogram: {
	cap: int & >0
	values: [...{
		value:     string
		frequency: int & >=0
	}]
	overflow: int & >=0
}
`

// Schema is a static, data-independent description of a metadata shape
type Schema struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"` // CUE source declaring #FieldMetadata
}

// ValidationError reports plain metadata that does not conform to a Schema
type ValidationError struct {
	SchemaID string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("metadata does not match schema %s: %v", e.SchemaID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TypedSchema returns the standard schema for metadata carrying exactly the given type tag
func TypedSchema(id string, typeTag string) Schema {
	return Schema{
		ID: id,
		Source: histogramDefinition + fmt.Sprintf(`
%s: {
	types: [%q]
	count: int & >=0
	valueHistogram: #ValueHistogram
}
`, DefinitionName, typeTag),
	}
}

// Compile checks that the schema source is valid CUE and declares the metadata definition
func (s Schema) Compile() error {
	_, err := s.definition(cuecontext.New())
	return err
}

// Validate checks plain-form metadata (a Snapshot, or nested maps) against the schema
func (s Schema) Validate(plain interface{}) error {
	ctx := cuecontext.New()
	def, err := s.definition(ctx)
	if err != nil {
		return err
	}

	value := ctx.Encode(plain)
	if err := value.Err(); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{SchemaID: s.ID, Err: err}
	}
	return nil
}

// definition compiles the source and looks up the metadata definition
func (s Schema) definition(ctx *cue.Context) (cue.Value, error) {
	compiled := ctx.CompileString(s.Source, cue.Filename(s.ID+".cue"))
	if err := compiled.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to compile metadata schema %s: %w", s.ID, err)
	}
	def := compiled.LookupPath(cue.ParsePath(DefinitionName))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("metadata schema %s does not declare %s", s.ID, DefinitionName)
	}
	return def, nil
}
