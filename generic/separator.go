package generic

import (
	"bytes"
	"strconv"
)

// Separator is an immutable byte pattern used to find record and field
// boundaries. The zero value is an empty pattern that never matches.
type Separator struct {
	pattern []byte
}

var symbolicSeparators = map[string]string{
	"newline":        "\n",
	"tab":            "\t",
	"space":          " ",
	"formfeed":       "\f",
	"carriagereturn": "\r",
	"verticaltab":    "\v",
}

// ResolveSeparator turns a symbolic separator name into its byte pattern.
// Any other text is taken literally. An empty string yields an empty
// Separator, which callers must reject.
func ResolveSeparator(s string) Separator {
	if lit, ok := symbolicSeparators[s]; ok {
		return Separator{pattern: []byte(lit)}
	}
	return Separator{pattern: []byte(s)}
}

func (s Separator) Empty() bool { return len(s.pattern) == 0 }

func (s Separator) Len() int { return len(s.pattern) }

// Pattern returns a copy of the raw bytes.
func (s Separator) Pattern() []byte { return bytes.Clone(s.pattern) }

// Index reports the absolute offset of the first match in b at or after
// from, or -1.
func (s Separator) Index(b []byte, from int) int {
	if s.Empty() || from < 0 || from > len(b) {
		return -1
	}
	i := bytes.Index(b[from:], s.pattern)
	if i < 0 {
		return -1
	}
	return from + i
}

func (s Separator) HasSuffix(b []byte) bool {
	return !s.Empty() && bytes.HasSuffix(b, s.pattern)
}

func (s Separator) Equal(other Separator) bool {
	return bytes.Equal(s.pattern, other.pattern)
}

func (s Separator) String() string {
	return strconv.Quote(string(s.pattern))
}
