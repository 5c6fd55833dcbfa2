// Package gauge hosts the one long-running bridge worker of the process.
// A worker is started once, signals when it is initialized, and is always
// joined by Stop before another one may start.
package gauge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	ErrBusy       = errors.New("gauge: worker already active")
	ErrNotRunning = errors.New("gauge: no worker")
)

// Func is the worker body. It calls ready once its transports are up and
// returns when ctx is cancelled.
type Func func(ctx context.Context, ready func()) error

type Worker struct {
	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	ready  chan struct{}
	done   chan struct{}
	err    error
}

func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) CanStart() bool { return w.State() == Idle }

// Start launches fn on its own goroutine. It fails with ErrBusy unless the
// worker is idle.
func (w *Worker) Start(fn Func) error {
	if !w.state.CompareAndSwap(int32(Idle), int32(Starting)) {
		return ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan struct{})
	var once sync.Once
	markReady := func() {
		once.Do(func() {
			w.state.CompareAndSwap(int32(Starting), int32(Running))
			close(ready)
		})
	}

	w.mu.Lock()
	w.cancel = cancel
	w.ready = ready
	w.done = done
	w.err = nil
	w.mu.Unlock()

	go func() {
		defer close(done)
		err := fn(ctx, markReady)
		// a worker that exits early still releases waiters
		markReady()
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("gauge worker exited", "error", err)
		}
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
	}()
	return nil
}

// WaitUntilInitialized blocks until the worker called ready or exited.
func (w *Worker) WaitUntilInitialized(ctx context.Context) error {
	w.mu.Lock()
	ready := w.ready
	w.mu.Unlock()
	if ready == nil || w.State() == Idle {
		return ErrNotRunning
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the current worker returns.
func (w *Worker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return w.done
}

// Stop cancels the worker and waits for it to return, then goes back to
// idle and reports the worker's error. If ctx ends first the worker stays
// in Stopping and Stop may be called again.
func (w *Worker) Stop(ctx context.Context) error {
	for {
		s := w.State()
		if s == Idle {
			return ErrNotRunning
		}
		if s == Stopping || w.state.CompareAndSwap(int32(s), int32(Stopping)) {
			break
		}
	}

	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("join gauge worker: %w", ctx.Err())
	}

	w.mu.Lock()
	err := w.err
	w.mu.Unlock()
	w.state.CompareAndSwap(int32(Stopping), int32(Idle))

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var std Worker

func CanStart() bool { return std.CanStart() }

func Start(fn Func) error { return std.Start(fn) }

func WaitUntilInitialized(ctx context.Context) error { return std.WaitUntilInitialized(ctx) }

func Done() <-chan struct{} { return std.Done() }

func Stop(ctx context.Context) error { return std.Stop(ctx) }
