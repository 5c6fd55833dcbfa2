package generic

import (
	"bytes"
	"log/slog"
)

// Dissector splits records into positional fields and writes them into the
// model the schema was resolved against.
type Dissector struct {
	schema *Schema
	model  Model
}

func NewDissector(schema *Schema, model Model) *Dissector {
	return &Dissector{schema: schema, model: model}
}

// Dissect applies one record. A record whose field count differs from the
// schema is rejected before anything is written. Field write failures do
// not stop the remaining fields; they are returned together as FieldErrors.
func (d *Dissector) Dissect(record []byte) error {
	line := d.schema.LineSeparator()
	if !line.HasSuffix(record) {
		return ErrUnterminated
	}
	body := record[:len(record)-line.Len()]

	want := d.schema.Size()
	if len(body) == 0 {
		return &MismatchError{Got: 0, Want: want}
	}

	// "a,b,\n" is three fields, the last one empty
	fields := bytes.Split(body, d.schema.field.pattern)
	if len(fields) != want {
		return &MismatchError{Got: len(fields), Want: want}
	}

	var errs FieldErrors
	for i, c := range d.schema.chunks {
		if err := d.model.Write(c.Target, fields[i], c.Type); err != nil {
			fe := &FieldError{Position: i, Chunk: c.Label(), Raw: string(fields[i]), Err: err}
			slog.Warn("field write failed", "chunk", fe.Chunk, "position", i, "raw", fe.Raw, "error", err)
			errs = append(errs, fe)
		}
	}

	if cm, ok := d.model.(Committer); ok {
		cm.Commit()
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
