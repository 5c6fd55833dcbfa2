package main

import (
	"fmt"
	"sync"
	"time"

	"simbridge/flightstatus"
)

// MockSimConnector implements SimConnector for use in tests.
type MockSimConnector struct {
	data         *flightstatus.Snapshot
	err          error
	name         string
	lastReceived time.Time
}

func (m *MockSimConnector) Connect() error           { return nil }
func (m *MockSimConnector) Disconnect() error        { return nil }
func (m *MockSimConnector) Name() string             { return m.name }
func (m *MockSimConnector) LastReceived() time.Time  { return m.lastReceived }
func (m *MockSimConnector) GetFlightData() (*flightstatus.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.data == nil {
		return nil, fmt.Errorf("no data")
	}
	return m.data, nil
}

// ReconnectableMockConnector tracks Connect/Disconnect calls and supports
// dynamic error toggling for testing reconnection behaviour.
type ReconnectableMockConnector struct {
	mu              sync.Mutex
	data            *flightstatus.Snapshot
	getDataErr      error
	connectErr      error
	name            string
	lastReceived    time.Time
	connectCalls    int
	disconnectCalls int
}

func (r *ReconnectableMockConnector) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectCalls++
	return r.connectErr
}

func (r *ReconnectableMockConnector) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectCalls++
	return nil
}

func (r *ReconnectableMockConnector) Name() string             { return r.name }
func (r *ReconnectableMockConnector) LastReceived() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReceived
}

func (r *ReconnectableMockConnector) GetFlightData() (*flightstatus.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getDataErr != nil {
		return nil, r.getDataErr
	}
	if r.data == nil {
		return nil, fmt.Errorf("no data")
	}
	d := *r.data
	return &d, nil
}

func (r *ReconnectableMockConnector) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getDataErr = err
}

func (r *ReconnectableMockConnector) SetConnectError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectErr = err
}

func (r *ReconnectableMockConnector) SetLastReceived(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastReceived = t
}

func (r *ReconnectableMockConnector) ConnectCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectCalls
}

func (r *ReconnectableMockConnector) DisconnectCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnectCalls
}

// sampleSnapshot returns a Snapshot of an airliner parked at EGLL.
func sampleSnapshot() *flightstatus.Snapshot {
	s := &flightstatus.Snapshot{
		Valid:            true,
		UpdatedAt:        time.Now(),
		Lat:              51.4775,
		Lon:              -0.4614,
		AltitudeFt:       83,
		Pitch:            -1.2,
		Bank:             0.3,
		TrueHeading:      270,
		OnGround:         true,
		QNHhPa:           1013.25,
		ZeroFuelWeightKg: 41000,
		TotalWeightKg:    59000,
		AircraftType:     "B738",
	}
	s.Autopilot.Heading = 270
	s.Autopilot.Altitude = 5000
	s.Nav[0].FreqKHz = 110100
	s.Nav[1].FreqKHz = 113000
	s.Engines[0] = flightstatus.Engine{N1: 22.5, N2: 60}
	s.Engines[1] = flightstatus.Engine{N1: 22.5, N2: 60}
	return s
}
