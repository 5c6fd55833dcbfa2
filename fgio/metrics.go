package fgio

import (
	"github.com/prometheus/client_golang/prometheus"

	"simbridge/generic"
)

// Metrics holds per-transport counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	bytesReceived   *prometheus.CounterVec
	recordsFramed   *prometheus.CounterVec
	recordsApplied  *prometheus.CounterVec
	recordsRejected *prometheus.CounterVec
	fieldErrors     *prometheus.CounterVec
	framingErrors   *prometheus.CounterVec
	valid           *prometheus.GaugeVec
	lastActivity    *prometheus.GaugeVec
}

// NewMetrics registers transport metrics on reg. It returns nil when reg
// is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simbridge",
			Subsystem: "transport",
			Name:      name,
			Help:      help,
		}, []string{"transport"})
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "simbridge",
			Subsystem: "transport",
			Name:      name,
			Help:      help,
		}, []string{"transport"})
	}

	m := &Metrics{
		bytesReceived:   counter("bytes_received_total", "Bytes appended to the framing buffer"),
		recordsFramed:   counter("records_framed_total", "Complete records cut from the stream"),
		recordsApplied:  counter("records_applied_total", "Records written into the target model"),
		recordsRejected: counter("records_rejected_total", "Records discarded for a field count mismatch"),
		fieldErrors:     counter("field_errors_total", "Individual fields the target model refused"),
		framingErrors:   counter("framing_errors_total", "Buffers discarded after an overflow or invariant violation"),
		valid:           gauge("valid", "1 while datasets arrive within the read timeout"),
		lastActivity:    gauge("last_activity_timestamp", "Unix time of the last applied record"),
	}
	reg.MustRegister(
		m.bytesReceived,
		m.recordsFramed,
		m.recordsApplied,
		m.recordsRejected,
		m.fieldErrors,
		m.framingErrors,
		m.valid,
		m.lastActivity,
	)
	return m
}

func (m *Metrics) observe(transport string, n int, res generic.Result, now float64) {
	if m == nil {
		return
	}
	m.bytesReceived.WithLabelValues(transport).Add(float64(n))
	m.recordsFramed.WithLabelValues(transport).Add(float64(res.Records))
	m.recordsApplied.WithLabelValues(transport).Add(float64(res.Applied))
	m.recordsRejected.WithLabelValues(transport).Add(float64(res.Rejected))
	m.fieldErrors.WithLabelValues(transport).Add(float64(res.FieldErrors))
	if res.Err != nil && res.Err != generic.ErrNoBoundary {
		m.framingErrors.WithLabelValues(transport).Inc()
	}
	if res.OK() {
		m.lastActivity.WithLabelValues(transport).Set(now)
	}
}

func (m *Metrics) SetValid(transport string, valid bool) {
	if m == nil {
		return
	}
	v := 0.0
	if valid {
		v = 1
	}
	m.valid.WithLabelValues(transport).Set(v)
}
