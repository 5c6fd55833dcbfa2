package generic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// tableModel is a minimal Model for tests. Labels of the form "name[n]"
// declare an array of n elements.
type tableModel struct {
	labels  map[string]int
	names   []string
	sizes   []int
	values  map[Handle]Value
	writes  []string
	failing map[string]bool
	commits int
}

func newTableModel(labels ...string) *tableModel {
	m := &tableModel{
		labels:  map[string]int{},
		values:  map[Handle]Value{},
		failing: map[string]bool{},
	}
	for _, l := range labels {
		size := 0
		if i := strings.IndexByte(l, '['); i > 0 {
			size, _ = strconv.Atoi(strings.TrimSuffix(l[i+1:], "]"))
			l = l[:i]
		}
		m.labels[l] = len(m.names)
		m.names = append(m.names, l)
		m.sizes = append(m.sizes, size)
	}
	return m
}

func (m *tableModel) Lookup(label string) (Handle, bool) {
	slot, ok := m.labels[label]
	if !ok {
		return Handle{}, false
	}
	return SlotHandle(slot), true
}

func (m *tableModel) ChildCount(h Handle) int {
	if h.IsElement() {
		return 0
	}
	return m.sizes[h.Slot]
}

func (m *tableModel) Child(h Handle, i int) (Handle, bool) {
	if i < 0 || i >= m.ChildCount(h) {
		return Handle{}, false
	}
	return h.Element(i), true
}

func (m *tableModel) Write(h Handle, raw []byte, t ValueType) error {
	name := m.names[h.Slot]
	if m.failing[name] {
		return errors.New("refused")
	}
	if m.sizes[h.Slot] > 0 && !h.IsElement() {
		return fmt.Errorf("%s is an array", name)
	}
	v, err := ParseValue(raw, t)
	if err != nil {
		return err
	}
	m.values[h] = v
	m.writes = append(m.writes, name)
	return nil
}

func (m *tableModel) Commit() { m.commits++ }

func (m *tableModel) get(label string) Value {
	return m.values[SlotHandle(m.labels[label])]
}

func (m *tableModel) getAt(label string, i int) Value {
	return m.values[SlotHandle(m.labels[label]).Element(i)]
}
