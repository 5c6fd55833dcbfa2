// Package generic implements the FlightGear "generic" text protocol: loading
// a protocol description, framing a byte stream into records and writing
// positional fields into a target model.
package generic

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	SectionOutput = "output"
	SectionInput  = "input"
)

// Chunk is one declared field, in wire order.
type Chunk struct {
	Name   string
	Node   string
	Type   ValueType
	Count  int
	Target Handle
}

// Label is the name the chunk was resolved by.
func (c Chunk) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Node
}

// Schema is a loaded protocol description. It is read-only once built.
type Schema struct {
	line    Separator
	field   Separator
	chunks  []Chunk
	skipped []string
}

func (s *Schema) LineSeparator() Separator  { return s.line }
func (s *Schema) FieldSeparator() Separator { return s.field }
func (s *Schema) Size() int                 { return len(s.chunks) }

func (s *Schema) Chunks() []Chunk {
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Skipped lists declared chunks that did not resolve in the model.
func (s *Schema) Skipped() []string {
	out := make([]string, len(s.skipped))
	copy(out, s.skipped)
	return out
}

type loadConfig struct {
	section string
	source  string
}

type LoadOption func(*loadConfig)

// WithSection selects the generic/<section> element. Default is output.
func WithSection(section string) LoadOption {
	return func(c *loadConfig) { c.section = section }
}

type protocolDoc struct {
	XMLName xml.Name
	Generic *struct {
		Output *sectionDoc `xml:"output"`
		Input  *sectionDoc `xml:"input"`
	} `xml:"generic"`
}

type sectionDoc struct {
	LineSeparator *string    `xml:"line_separator"`
	VarSeparator  *string    `xml:"var_separator"`
	BinaryMode    *string    `xml:"binary_mode"`
	BinaryFooter  *string    `xml:"binary_footer"`
	Chunks        []chunkDoc `xml:"chunk"`
}

type chunkDoc struct {
	Name  string  `xml:"name"`
	Node  string  `xml:"node"`
	Type  *string `xml:"type"`
	Count string  `xml:"count"`
}

// ProtocolPath returns <dir>/<name>.xml, the way FlightGear resolves
// --generic=...,<name> against its Protocol directory.
func ProtocolPath(dir, name string) string {
	return filepath.Join(dir, name+".xml")
}

func LoadFile(path string, m Model, opts ...LoadOption) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open protocol: %w", err)
	}
	defer f.Close()

	opts = append([]LoadOption{func(c *loadConfig) { c.source = path }}, opts...)
	return Load(f, m, opts...)
}

// Load parses a protocol description and resolves every chunk against m.
// Chunks whose label is unknown to m are skipped with a warning.
func Load(r io.Reader, m Model, opts ...LoadOption) (*Schema, error) {
	cfg := loadConfig{section: SectionOutput}
	for _, opt := range opts {
		opt(&cfg)
	}
	fail := func(err error, detail string) (*Schema, error) {
		return nil, &SchemaError{Source: cfg.source, Detail: detail, Err: err}
	}

	var doc protocolDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return fail(ErrBadRoot, err.Error())
	}
	if doc.XMLName.Local != "PropertyList" {
		return fail(ErrBadRoot, "found <"+doc.XMLName.Local+">")
	}
	if doc.Generic == nil {
		return fail(ErrNoSection, "missing <generic>")
	}

	var sec *sectionDoc
	switch cfg.section {
	case SectionOutput:
		sec = doc.Generic.Output
	case SectionInput:
		sec = doc.Generic.Input
	}
	if sec == nil {
		return fail(ErrNoSection, "missing <"+cfg.section+">")
	}

	if sec.BinaryFooter != nil || (sec.BinaryMode != nil && strings.TrimSpace(*sec.BinaryMode) != "false") {
		return fail(ErrBinaryUnsupported, "remove <binary_mode>/<binary_footer>")
	}

	line, err := separatorFrom(sec.LineSeparator, "line_separator")
	if err != nil {
		return fail(err, "line_separator")
	}
	field, err := separatorFrom(sec.VarSeparator, "var_separator")
	if err != nil {
		return fail(err, "var_separator")
	}

	if len(sec.Chunks) == 0 {
		return fail(ErrNoChunks, "no <chunk> declared")
	}

	s := &Schema{line: line, field: field}
	for i, cd := range sec.Chunks {
		c, ok := resolveChunk(cd, m)
		if !ok {
			label := firstNonEmpty(strings.TrimSpace(cd.Name), strings.TrimSpace(cd.Node), "#"+strconv.Itoa(i))
			slog.Warn("skipping unknown protocol chunk", "chunk", label, "position", i)
			s.skipped = append(s.skipped, label)
			continue
		}
		s.chunks = append(s.chunks, c)
	}
	if len(s.chunks) == 0 {
		return fail(ErrNoChunks, fmt.Sprintf("none of %d chunks resolved", len(sec.Chunks)))
	}

	slog.Debug("protocol loaded",
		"source", cfg.source,
		"section", cfg.section,
		"chunks", len(s.chunks),
		"skipped", len(s.skipped),
		"line_separator", line.String(),
		"var_separator", field.String(),
	)
	return s, nil
}

func separatorFrom(text *string, name string) (Separator, error) {
	if text == nil {
		return Separator{}, ErrMissingSeparator
	}
	// a literal space or tab would not survive trimming
	raw := *text
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		raw = trimmed
	}
	sep := ResolveSeparator(raw)
	if sep.Empty() {
		return Separator{}, ErrEmptySeparator
	}
	return sep, nil
}

func resolveChunk(cd chunkDoc, m Model) (Chunk, bool) {
	c := Chunk{
		Name: strings.TrimSpace(cd.Name),
		Node: strings.TrimSpace(cd.Node),
	}

	var (
		h  Handle
		ok bool
	)
	if c.Name != "" {
		h, ok = m.Lookup(c.Name)
	}
	if !ok && c.Node != "" {
		h, ok = m.Lookup(c.Node)
		if ok {
			c.Name = ""
		}
	}
	if !ok {
		return Chunk{}, false
	}

	if cd.Type != nil {
		tag := strings.TrimSpace(*cd.Type)
		t, known := parseTypeTag(tag)
		if !known {
			slog.Warn("unrecognized chunk type, parsing as int", "chunk", c.Label(), "type", tag)
		}
		c.Type = t
	}

	if cnt := strings.TrimSpace(cd.Count); cnt != "" {
		n, err := strconv.Atoi(cnt)
		if err != nil || n < 0 {
			slog.Warn("invalid chunk count, using 0", "chunk", c.Label(), "count", cnt)
			n = 0
		}
		c.Count = n
	}

	if children := m.ChildCount(h); children > 0 {
		if c.Count < children {
			if child, ok := m.Child(h, c.Count); ok {
				h = child
			}
		} else {
			slog.Warn("chunk count beyond array size", "chunk", c.Label(), "count", c.Count, "size", children)
		}
	}
	c.Target = h
	return c, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
