package flightstatus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"simbridge/generic"
)

var ErrBadHandle = errors.New("flightstatus: handle does not address a value")

// Status is the aircraft state that generic protocol fields are written
// into. It is safe for concurrent use: transports write while consumers
// take snapshots. Field writes are staged and become visible together on
// Commit, so a snapshot never mixes two records.
type Status struct {
	mu   sync.RWMutex
	snap Snapshot
	work Snapshot
	vor  [2]vorFlags
	dme  [2]dmeReading
	now  func() time.Time
}

func New() *Status {
	return &Status{now: time.Now}
}

var _ generic.Model = (*Status)(nil)
var _ generic.Committer = (*Status)(nil)

func (st *Status) Lookup(label string) (generic.Handle, bool) {
	i, ok := labelIndex[label]
	if !ok {
		return generic.Handle{}, false
	}
	return generic.SlotHandle(i), true
}

func (st *Status) ChildCount(h generic.Handle) int {
	if h.IsElement() || h.Slot < 0 || h.Slot >= len(fields) {
		return 0
	}
	return fields[h.Slot].size
}

func (st *Status) Child(h generic.Handle, i int) (generic.Handle, bool) {
	if i < 0 || i >= st.ChildCount(h) {
		return generic.Handle{}, false
	}
	return h.Element(i), true
}

func (st *Status) Write(h generic.Handle, raw []byte, t generic.ValueType) error {
	if h.Slot < 0 || h.Slot >= len(fields) {
		return fmt.Errorf("%w: slot %d", ErrBadHandle, h.Slot)
	}
	f := fields[h.Slot]
	switch {
	case f.size == 0 && h.IsElement():
		return fmt.Errorf("%w: %s is not an array", ErrBadHandle, f.label)
	case f.size > 0 && !h.IsElement():
		return fmt.Errorf("%w: %s needs an element index", ErrBadHandle, f.label)
	case h.Index >= f.size && f.size > 0:
		return fmt.Errorf("%w: %s[%d] out of range", ErrBadHandle, f.label, h.Index)
	}

	v, err := generic.ParseValue(raw, t)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return f.set(st, h.Index, v)
}

// publishLocked makes the staged state visible. Validity belongs to
// SetValid and survives the swap.
func (st *Status) publishLocked() {
	valid := st.snap.Valid
	st.snap = st.work
	st.snap.Valid = valid
}

// WriteLabel resolves label and writes a single value, visible at once.
// Array labels take the element index in i and ignore it otherwise.
func (st *Status) WriteLabel(label string, i int, raw []byte, t generic.ValueType) error {
	h, ok := st.Lookup(label)
	if !ok {
		return fmt.Errorf("%w: unknown label %q", ErrBadHandle, label)
	}
	if st.ChildCount(h) > 0 {
		if h, ok = st.Child(h, i); !ok {
			return fmt.Errorf("%w: %s[%d] out of range", ErrBadHandle, label, i)
		}
	}
	if err := st.Write(h, raw, t); err != nil {
		return err
	}
	st.mu.Lock()
	st.publishLocked()
	st.mu.Unlock()
	return nil
}

// Commit publishes the staged record and stamps its time.
func (st *Status) Commit() {
	st.mu.Lock()
	st.work.UpdatedAt = st.now()
	st.publishLocked()
	st.mu.Unlock()
}

// Update applies fn to the state under the write lock and stamps it, for
// backends that do not speak the generic protocol.
func (st *Status) Update(fn func(*Snapshot)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.work)
	st.work.UpdatedAt = st.now()
	st.publishLocked()
}

func (st *Status) SetValid(valid bool) {
	st.mu.Lock()
	st.snap.Valid = valid
	st.mu.Unlock()
}

func (st *Status) Valid() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap.Valid
}

func (st *Status) LastUpdate() time.Time {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap.UpdatedAt
}

func (st *Status) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap
}
