package registry

import (
	"sync"

	"github.com/aretw0/graft/pkg/domain"
)

// Policy records, per entity type, the relationships that are always
// included during cloning regardless of the caller-supplied spec.
// Declarations append, never replace. Safe for concurrent use: types
// declare during bootstrap while cloning reads.
type Policy struct {
	mu     sync.RWMutex
	always map[domain.TypeID][]string
}

// NewPolicy creates a new empty policy registry.
func NewPolicy() *Policy {
	return &Policy{
		always: make(map[domain.TypeID][]string),
	}
}

// Declare appends relationship names to the type's always-included set.
// Names already present are kept once.
func (p *Policy) Declare(t domain.TypeID, relationships ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing := p.always[t]
	for _, name := range relationships {
		if containsName(existing, name) {
			continue
		}
		existing = append(existing, name)
	}
	p.always[t] = existing
}

// AlwaysIncluded returns the type's always-included relationship names in
// declaration order. The returned slice is a copy.
func (p *Policy) AlwaysIncluded(t domain.TypeID) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	existing := p.always[t]
	if len(existing) == 0 {
		return nil
	}
	out := make([]string, len(existing))
	copy(out, existing)
	return out
}

func containsName(list []string, name string) bool {
	for _, existing := range list {
		if existing == name {
			return true
		}
	}
	return false
}

// defaultPolicy backs the package-level declaration API. Hosts that want
// isolated policies construct their own and hand it to the cloner.
var defaultPolicy = NewPolicy()

// Declare appends relationship names to the process-wide default policy.
func Declare(t domain.TypeID, relationships ...string) {
	defaultPolicy.Declare(t, relationships...)
}

// Default returns the process-wide default policy.
func Default() *Policy {
	return defaultPolicy
}
