package registry

import (
	"github.com/aretw0/graft/pkg/domain"
)

// Dictionary memoizes clones within a cloning session, keyed by the
// original entity's (type, identity). It guarantees at most one clone per
// original and lets relationship cycles resolve to the in-progress clone
// instead of recursing forever.
//
// A Dictionary is NOT safe for concurrent use. Its lifetime is one
// top-level clone invocation unless the caller retains it and reuses it
// across calls.
type Dictionary struct {
	entries map[domain.Ref]any
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		entries: make(map[domain.Ref]any),
	}
}

// GetOrCreate returns the memoized clone for (t, identity) if present.
// Otherwise it invokes produce, stores the result BEFORE returning, and
// reports created=true so the caller knows it owns populating the clone's
// relationships. The stored entry is never overwritten.
func (d *Dictionary) GetOrCreate(t domain.TypeID, identity string, produce func() (any, error)) (clone any, created bool, err error) {
	key := domain.Ref{Type: t, Identity: identity}
	if existing, ok := d.entries[key]; ok {
		return existing, false, nil
	}

	clone, err = produce()
	if err != nil {
		return nil, false, err
	}

	d.entries[key] = clone
	return clone, true, nil
}

// Len returns the number of memoized clones.
func (d *Dictionary) Len() int {
	return len(d.entries)
}
