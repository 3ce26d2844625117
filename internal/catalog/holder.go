package catalog

import "sync/atomic"

// Holder publishes the current catalog snapshot. A background refresh swaps
// in a new Store while message handlers keep reading the old one; individual
// Store values stay immutable.
type Holder struct {
	current atomic.Pointer[Store]
}

// NewHolder creates a holder with an initial snapshot. A nil store is
// replaced by an empty one so readers never see nil.
func NewHolder(s *Store) *Holder {
	if s == nil {
		s = NewStore(nil)
	}
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Get returns the current snapshot.
func (h *Holder) Get() *Store {
	return h.current.Load()
}

// Set replaces the current snapshot. Nil stores are ignored.
func (h *Holder) Set(s *Store) {
	if s != nil {
		h.current.Store(s)
	}
}
