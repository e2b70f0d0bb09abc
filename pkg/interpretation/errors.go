/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error kinds raised while resolving and applying interpretation chains.
Configuration errors are fatal at startup, classification faults degrade to warnings,
transform errors fail a single field, and accumulation errors skip a single value.
*/

package interpretation

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by the error kinds below, for use with errors.Is
var (
	ErrNotFinalized       = errors.New("registry has not been finalized")
	ErrAlreadyFinalized   = errors.New("registry is already finalized")
	ErrDuplicate          = errors.New("interpretation name already registered")
	ErrReservedName       = errors.New("interpretation name is reserved")
	ErrCycle              = errors.New("upstream graph contains a cycle")
	ErrUnknownUpstream    = errors.New("unknown upstream interpretation")
	ErrDepthExceeded      = errors.New("chain depth bound exceeded")
	ErrChainMismatch      = errors.New("value rejected by interpretation in fixed chain")
	ErrIncompatibleValue  = errors.New("value incompatible with accumulator")
	ErrInvalidSchemaStage = errors.New("schema transform returned no node")
)

// ConfigurationError reports a misconfigured registry or chain builder
type ConfigurationError struct {
	Interpretation string // Offending interpretation, if any
	Err            error  // One of the sentinel causes
	Detail         string
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Interpretation != "" {
		msg += fmt.Sprintf(": interpretation %q", e.Interpretation)
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ClassificationError reports an applicability check that faulted.
// The candidate is treated as non-matching and classification continues.
type ClassificationError struct {
	Interpretation string
	Depth          int // Chain position the candidate was evaluated for
	Err            error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification error: interpretation %q at depth %d: %v", e.Interpretation, e.Depth, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// TransformError reports a transform stage that failed or whose input was rejected
// by the stage's applicability check
type TransformError struct {
	FieldPath      string // Filled in by callers that know the field
	Position       int    // Index of the stage in the chain
	Interpretation string
	Op             string // check, schema, value, example, statistics
	Err            error
}

func (e *TransformError) Error() string {
	field := ""
	if e.FieldPath != "" {
		field = fmt.Sprintf("field %q: ", e.FieldPath)
	}
	return fmt.Sprintf("transform error: %s%s stage %d (%s): %v", field, e.Op, e.Position, e.Interpretation, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// IsChainMismatch reports whether the stage rejected its input rather than failing
func (e *TransformError) IsChainMismatch() bool {
	return errors.Is(e.Err, ErrChainMismatch)
}

// AccumulationError reports a value an accumulator cannot take.
// The value is skipped and counted; accumulation continues.
type AccumulationError struct {
	Interpretation string
	Value          interface{}
	Err            error
}

func (e *AccumulationError) Error() string {
	return fmt.Sprintf("accumulation error: interpretation %q: value %v (%T): %v", e.Interpretation, e.Value, e.Value, e.Err)
}

func (e *AccumulationError) Unwrap() error {
	return e.Err
}

// NewAccumulationError builds an AccumulationError for an incompatible value
func NewAccumulationError(interpretation string, value interface{}) *AccumulationError {
	return &AccumulationError{
		Interpretation: interpretation,
		Value:          value,
		Err:            ErrIncompatibleValue,
	}
}
