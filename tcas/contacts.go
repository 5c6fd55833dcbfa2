// Package tcas keeps the list of traffic contacts FlightGear reports through
// a generic protocol feed, one record per aircraft.
package tcas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"simbridge/generic"
)

const (
	DefaultEntryTimeout = 30 * time.Second

	// NoIdent replaces an empty ATC callsign.
	NoIdent = "NOT IDENT"

	callsignWidth = 14
)

var ErrBadHandle = errors.New("tcas: handle does not address a contact field")

// Contact is one traffic target.
type Contact struct {
	ID             int       `json:"id"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	AltitudeFt     float64   `json:"altitudeFt"`
	TrueHeading    float64   `json:"trueHeading"`
	GroundSpeedKts float64   `json:"groundSpeedKts"`
	VSFpm          float64   `json:"vsFpm"`
	Callsign       string    `json:"callsign"`
	State          int       `json:"state"`
	Com1           int       `json:"com1"`
	InRange        bool      `json:"inRange"`
	Airborne       bool      `json:"airborne"`
	LastSeen       time.Time `json:"lastSeen"`
}

type pending struct {
	Contact
	valid bool
}

func newPending() pending {
	return pending{Contact: Contact{ID: -1}, valid: true}
}

var labels = []string{"id", "lat", "lon", "alt", "hdg", "gs", "vs", "idATC", "bState", "com1", "fgvalid", "fginrange"}

const (
	slotID = iota
	slotLat
	slotLon
	slotAlt
	slotHdg
	slotGS
	slotVS
	slotIDATC
	slotBState
	slotCom1
	slotValid
	slotInRange
)

// Contacts is a generic.Model: the fields of one record accumulate and
// Commit files the finished contact into the list, sorted by id.
type Contacts struct {
	timeout time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	cur  pending
	list []Contact
}

func NewContacts(timeout time.Duration) *Contacts {
	if timeout <= 0 {
		timeout = DefaultEntryTimeout
	}
	return &Contacts{timeout: timeout, now: time.Now, cur: newPending()}
}

func Labels() []string { return append([]string(nil), labels...) }

func (c *Contacts) Lookup(label string) (generic.Handle, bool) {
	for i, l := range labels {
		if l == label {
			return generic.SlotHandle(i), true
		}
	}
	return generic.Handle{}, false
}

func (c *Contacts) ChildCount(generic.Handle) int { return 0 }

func (c *Contacts) Child(generic.Handle, int) (generic.Handle, bool) {
	return generic.Handle{}, false
}

func (c *Contacts) Write(h generic.Handle, raw []byte, t generic.ValueType) error {
	if h.IsElement() || h.Slot < 0 || h.Slot >= len(labels) {
		return ErrBadHandle
	}
	v, err := generic.ParseValue(raw, t)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p := &c.cur
	switch h.Slot {
	case slotID:
		p.ID = int(v.Float())
	case slotLat:
		p.Lat = v.Float()
	case slotLon:
		p.Lon = v.Float()
	case slotAlt:
		p.AltitudeFt = v.Float()
	case slotHdg:
		p.TrueHeading = v.Float()
	case slotGS:
		p.GroundSpeedKts = v.Float()
	case slotVS:
		p.VSFpm = v.Float()
	case slotIDATC:
		p.Callsign = callsign(v)
	case slotBState:
		p.State = int(v.Float())
	case slotCom1:
		p.Com1 = int(v.Float())
	case slotValid:
		p.valid = truthy(v)
	case slotInRange:
		p.InRange = truthy(v)
	}
	return nil
}

// Commit inserts, replaces or removes the contact assembled from the last
// record. A negative id or a false fgvalid removes it.
func (c *Contacts) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.cur
	c.cur = newPending()

	i := sort.Search(len(c.list), func(i int) bool { return c.list[i].ID >= p.ID })
	found := i < len(c.list) && c.list[i].ID == p.ID

	if p.ID < 0 || !p.valid {
		if found {
			c.list = append(c.list[:i], c.list[i+1:]...)
			slog.Debug("tcas contact removed", "id", p.ID)
		}
		return
	}

	e := p.Contact
	e.Airborne = e.AltitudeFt >= 0
	if e.Callsign == "" {
		e.Callsign = NoIdent
	}
	e.LastSeen = c.now()

	if found {
		c.list[i] = e
		return
	}
	c.list = append(c.list, Contact{})
	copy(c.list[i+1:], c.list[i:])
	c.list[i] = e
	slog.Debug("tcas contact added", "id", e.ID, "callsign", e.Callsign)
}

// Expire drops contacts not refreshed within the entry timeout and returns
// how many were removed.
func (c *Contacts) Expire(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.list[:0]
	for _, e := range c.list {
		if now.Sub(e.LastSeen) > c.timeout {
			slog.Debug("tcas contact expired", "id", e.ID, "last_seen", e.LastSeen)
			continue
		}
		kept = append(kept, e)
	}
	removed := len(c.list) - len(kept)
	clear(c.list[len(kept):])
	c.list = kept
	return removed
}

// Run expires stale contacts until ctx is done.
func (c *Contacts) Run(ctx context.Context) error {
	tick := c.timeout / 10
	if tick < 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Expire(c.now())
		}
	}
}

// List returns the contacts sorted by id.
func (c *Contacts) List() []Contact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Contact(nil), c.list...)
}

func (c *Contacts) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.list)
}

func callsign(v generic.Value) string {
	s := strings.TrimSpace(v.Str)
	if v.Type != generic.String {
		s = fmt.Sprint(v.Float())
	}
	if r := []rune(s); len(r) > callsignWidth {
		s = string(r[len(r)-callsignWidth:])
	}
	return s
}

func truthy(v generic.Value) bool {
	if v.Type == generic.Bool {
		return v.Bool
	}
	return v.Float() != 0
}
