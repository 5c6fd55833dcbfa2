package generic

import (
	"errors"
	"log/slog"
)

// Result summarizes one Feed call.
type Result struct {
	Records     int
	Applied     int
	Rejected    int
	FieldErrors int
	Err         error
}

// OK reports whether at least one record reached the model.
func (r Result) OK() bool { return r.Applied > 0 }

// Stream couples a Framer with a Dissector for one transport.
type Stream struct {
	framer    *Framer
	dissector *Dissector
}

func NewStream(schema *Schema, model Model) *Stream {
	return &Stream{
		framer:    NewFramer(schema.LineSeparator()),
		dissector: NewDissector(schema, model),
	}
}

func (s *Stream) Buffered() int { return s.framer.Buffered() }

func (s *Stream) Reset() { s.framer.Reset() }

// Feed frames p and dissects the resulting records. Result.Err carries
// framing conditions only; ErrNoBoundary is expected while a record is
// still arriving.
func (s *Stream) Feed(p []byte, lastOnly bool) Result {
	var res Result
	n, err := s.framer.Feed(p, lastOnly, func(record []byte) {
		derr := s.dissector.Dissect(record)
		if derr == nil {
			res.Applied++
			return
		}
		var fe FieldErrors
		if errors.As(derr, &fe) {
			res.Applied++
			res.FieldErrors += len(fe)
			return
		}
		res.Rejected++
		slog.Warn("record rejected", "error", derr, "len", len(record))
	})
	res.Records = n
	res.Err = err

	if errors.Is(err, ErrStreamInvariant) || errors.Is(err, ErrOverflow) {
		slog.Error("framing failed, buffer discarded", "error", err)
	}
	return res
}
