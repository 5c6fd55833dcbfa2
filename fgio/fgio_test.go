package fgio

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"simbridge/flightstatus"
	"simbridge/generic"
)

const testProtocol = `<PropertyList><generic><output>
 <line_separator>newline</line_separator>
 <var_separator>,</var_separator>
 <chunk><name>alt</name><type>float</type></chunk>
 <chunk><name>onground</name><type>bool</type></chunk>
</output></generic></PropertyList>`

// signals records liveness transitions.
type signals struct {
	mu  sync.Mutex
	got []bool
}

func (s *signals) record(v bool) {
	s.mu.Lock()
	s.got = append(s.got, v)
	s.mu.Unlock()
}

func (s *signals) list() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.got...)
}

func newTestSink(t *testing.T, name string, live *Liveness) (*Sink, *flightstatus.Status) {
	t.Helper()
	st := flightstatus.New()
	schema, err := generic.Load(strings.NewReader(testProtocol), st)
	require.NoError(t, err)
	return &Sink{
		Name:     name,
		Stream:   generic.NewStream(schema, st),
		Liveness: live,
	}, st
}
