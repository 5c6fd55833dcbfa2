package generic

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ValueType is the declared wire type of a chunk.
type ValueType int

const (
	Int ValueType = iota
	Bool
	Real
	String
)

func (t ValueType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Real:
		return "real"
	case String:
		return "string"
	default:
		return "int"
	}
}

// parseTypeTag maps a protocol type tag. Unknown tags fall back to Int and
// report known=false so the loader can warn.
func parseTypeTag(tag string) (t ValueType, known bool) {
	switch tag {
	case "bool":
		return Bool, true
	case "float", "double":
		return Real, true
	case "string":
		return String, true
	case "int", "":
		return Int, true
	default:
		return Int, false
	}
}

// Value is one decoded field.
type Value struct {
	Type ValueType
	Int  int64
	Real float64
	Bool bool
	Str  string
}

// Float gives a numeric view of any value. Strings yield 0.
func (v Value) Float() float64 {
	switch v.Type {
	case Int:
		return float64(v.Int)
	case Real:
		return v.Real
	case Bool:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// ParseValue decodes raw field bytes according to t. Numeric and boolean
// fields are whitespace-trimmed first; strings are kept verbatim apart from
// a trailing CR/LF.
func ParseValue(raw []byte, t ValueType) (Value, error) {
	if t == String {
		return Value{Type: String, Str: string(bytes.TrimRight(raw, "\r\n"))}, nil
	}

	s := string(bytes.TrimSpace(raw))
	switch t {
	case Bool:
		switch strings.ToLower(s) {
		case "true":
			return Value{Type: Bool, Bool: true}, nil
		case "false":
			return Value{Type: Bool}, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", s, err)
		}
		return Value{Type: Bool, Bool: f != 0}, nil
	case Real:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse real %q: %w", s, err)
		}
		return Value{Type: Real, Real: f}, nil
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse int %q: %w", s, err)
		}
		return Value{Type: Int, Int: n}, nil
	}
}
