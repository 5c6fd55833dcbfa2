package fgio

import (
	"time"

	"simbridge/generic"
)

// Sink is where a reading transport delivers its bytes: the framing
// stream, the liveness detector re-armed on every applied dataset, and
// optional metrics.
type Sink struct {
	Name     string
	Stream   *generic.Stream
	Liveness *Liveness
	Metrics  *Metrics
}

func (s *Sink) feed(p []byte, lastOnly bool) generic.Result {
	res := s.Stream.Feed(p, lastOnly)
	s.Metrics.observe(s.Name, len(p), res, float64(time.Now().Unix()))
	if res.OK() && s.Liveness != nil {
		s.Liveness.Mark()
	}
	return res
}
