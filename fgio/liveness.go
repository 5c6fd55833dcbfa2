package fgio

import (
	"sync"
	"time"
)

// Liveness turns "a dataset arrived" events into a valid/invalid signal.
// A single-shot timer is re-armed on every Mark; when it fires before the
// next Mark the state drops to invalid. Each transition is reported once.
type Liveness struct {
	timeout  time.Duration
	onChange func(valid bool)

	// held across a transition and its callback so signals stay ordered
	notify sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	valid   bool
	running bool
}

// NewLiveness creates a detector that starts out invalid. onChange is
// called in transition order and must not call back into the detector.
func NewLiveness(timeout time.Duration, onChange func(valid bool)) *Liveness {
	if onChange == nil {
		onChange = func(bool) {}
	}
	return &Liveness{timeout: timeout, onChange: onChange}
}

func (l *Liveness) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.armLocked()
}

// Mark records a successfully dissected dataset.
func (l *Liveness) Mark() {
	l.notify.Lock()
	defer l.notify.Unlock()

	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.armLocked()
	became := !l.valid
	l.valid = true
	l.mu.Unlock()

	if became {
		l.onChange(true)
	}
}

func (l *Liveness) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *Liveness) Valid() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.valid
}

func (l *Liveness) armLocked() {
	if l.timer != nil {
		l.timer.Stop()
	}
	l.gen++
	gen := l.gen
	l.timer = time.AfterFunc(l.timeout, func() { l.expire(gen) })
}

func (l *Liveness) expire(gen uint64) {
	l.notify.Lock()
	defer l.notify.Unlock()

	l.mu.Lock()
	// a Mark or Stop after this timer was armed wins
	if gen != l.gen || !l.running || !l.valid {
		l.mu.Unlock()
		return
	}
	l.valid = false
	l.mu.Unlock()

	l.onChange(false)
}
