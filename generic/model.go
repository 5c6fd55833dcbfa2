package generic

// Handle addresses a storage slot in a target model. Index is -1 when the
// handle refers to the slot as a whole rather than one of its elements.
type Handle struct {
	Slot  int
	Index int
}

func SlotHandle(slot int) Handle { return Handle{Slot: slot, Index: -1} }

func (h Handle) Element(i int) Handle { return Handle{Slot: h.Slot, Index: i} }

func (h Handle) IsElement() bool { return h.Index >= 0 }

// Model is the named-property store that dissected fields are written into.
// Handles are resolved once when a schema is loaded.
type Model interface {
	Lookup(label string) (Handle, bool)
	ChildCount(h Handle) int
	Child(h Handle, i int) (Handle, bool)
	Write(h Handle, raw []byte, t ValueType) error
}

// Committer is implemented by models that need to know when all fields of
// one record have been written.
type Committer interface {
	Commit()
}
