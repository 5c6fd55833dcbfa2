package generic

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBadRoot           = errors.New("generic: root element is not PropertyList")
	ErrNoSection         = errors.New("generic: no generic protocol section")
	ErrMissingSeparator  = errors.New("generic: separator not declared")
	ErrEmptySeparator    = errors.New("generic: empty separator")
	ErrBinaryUnsupported = errors.New("generic: binary framing is not supported")
	ErrNoChunks          = errors.New("generic: no usable chunk")

	// ErrNoBoundary means the buffer does not hold a complete record yet.
	// It is not a failure; the bytes stay buffered.
	ErrNoBoundary = errors.New("generic: no record boundary yet")
	// ErrOverflow means the buffer grew past its limit without a boundary
	// and was discarded.
	ErrOverflow = errors.New("generic: buffer limit exceeded without a record boundary")
	// ErrStreamInvariant signals a framer bug, not bad input.
	ErrStreamInvariant = errors.New("generic: stream invariant violated")

	ErrUnterminated = errors.New("generic: record does not end with line separator")
	ErrFieldCount   = errors.New("generic: field count mismatch")
	ErrFieldWrite   = errors.New("generic: field write failed")
)

// SchemaError reports why a protocol description could not be loaded.
type SchemaError struct {
	Source string
	Detail string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// MismatchError rejects a record whose field count differs from the schema.
type MismatchError struct {
	Got  int
	Want int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: got %d fields, want %d", ErrFieldCount, e.Got, e.Want)
}

func (e *MismatchError) Unwrap() error { return ErrFieldCount }

// FieldError is a single positional field that the target model refused.
type FieldError struct {
	Position int
	Chunk    string
	Raw      string
	Err      error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %d (%s) %q: %v", e.Position, e.Chunk, e.Raw, e.Err)
}

func (e *FieldError) Is(target error) bool { return target == ErrFieldWrite }

func (e *FieldError) Unwrap() error { return e.Err }

// FieldErrors collects the failed fields of an otherwise applied record.
type FieldErrors []*FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%v: %s", ErrFieldWrite, strings.Join(parts, "; "))
}

func (fe FieldErrors) Is(target error) bool { return target == ErrFieldWrite }
