package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"simbridge/fgfs"
	"simbridge/fgio"
	"simbridge/flightstatus"
)

// FGFSAdapter reads FlightGear through its generic protocol output and
// writes back through the telnet property server.
type FGFSAdapter struct {
	cfg     fgfs.Config
	metrics *fgio.Metrics

	mu     sync.Mutex
	access *fgfs.Access
	cancel context.CancelFunc
	done   chan struct{}
}

func NewFGFSAdapter(cfg fgfs.Config, metrics *fgio.Metrics) *FGFSAdapter {
	return &FGFSAdapter{cfg: cfg, metrics: metrics}
}

func (a *FGFSAdapter) Name() string {
	return adapterFlightGear
}

func (a *FGFSAdapter) Connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.access != nil {
		return nil
	}

	access, err := fgfs.New(a.cfg, flightstatus.New(), a.metrics)
	if err != nil {
		return fmt.Errorf("flightgear access: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := access.Run(ctx); err != nil {
			slog.Error("flightgear access stopped", "error", err)
		}
	}()

	a.access = access
	a.cancel = cancel
	a.done = done
	slog.Info("FlightGear adapter started", "transport", a.cfg.Transport, "protocol", a.cfg.Protocol)
	return nil
}

func (a *FGFSAdapter) Disconnect() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.access = nil
	a.cancel = nil
	a.done = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (a *FGFSAdapter) GetFlightData() (*flightstatus.Snapshot, error) {
	a.mu.Lock()
	access := a.access
	a.mu.Unlock()

	if access == nil {
		return nil, fmt.Errorf("not connected")
	}
	if !access.Valid() {
		return nil, fmt.Errorf("waiting for flightgear data")
	}
	snap := access.Status().Snapshot()
	return &snap, nil
}

func (a *FGFSAdapter) LastReceived() time.Time {
	a.mu.Lock()
	access := a.access
	a.mu.Unlock()
	if access == nil {
		return time.Time{}
	}
	return access.Status().LastUpdate()
}

// Commander returns the command writer of the live connection, or nil.
func (a *FGFSAdapter) Commander() *fgfs.Commander {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.access == nil {
		return nil
	}
	return a.access.Commander()
}
