package main

import (
	"time"

	"simbridge/flightstatus"
)

// SimConnector abstracts simulator connections (FlightGear generic
// protocol, X-Plane UDP, SimConnect).
type SimConnector interface {
	Connect() error
	Disconnect() error
	GetFlightData() (*flightstatus.Snapshot, error)
	Name() string
	LastReceived() time.Time
}

const (
	adapterFlightGear = "FlightGear"
	adapterXPlane     = "X-Plane"
	adapterSimConnect = "SimConnect"

	staleAfter          = 10 * time.Second
	reconnectBaseDelay  = 5 * time.Second
	reconnectMaxBackoff = 60 * time.Second
)

// isStale reports whether an active connector has gone quiet. A connector
// that never delivered anything is not stale, it is still starting.
func isStale(active bool, lastReceived, now time.Time) bool {
	return active && !lastReceived.IsZero() && now.Sub(lastReceived) > staleAfter
}

// reconnectBackoff is min(2^attempts * 5s, 60s).
func reconnectBackoff(attempts int) time.Duration {
	if attempts > 4 {
		return reconnectMaxBackoff
	}
	backoff := time.Duration(1<<uint(attempts)) * reconnectBaseDelay
	if backoff > reconnectMaxBackoff {
		backoff = reconnectMaxBackoff
	}
	return backoff
}
