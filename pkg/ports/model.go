package ports

import (
	"context"

	"github.com/aretw0/graft/pkg/domain"
)

// EntityModel defines how the cloner reads and writes the host's entity
// graph. This allows the storage layer (Memory, Redis, an ORM) to be
// decoupled from the traversal algorithm.
//
// Entities are opaque to the cloner; only the adapter knows their concrete
// shape. Methods that may touch a backend take a context. TypeOf and
// IdentityOf are pure metadata reads on an in-hand entity and take none.
type EntityModel interface {
	// TypeOf returns the type identity of an entity.
	TypeOf(entity any) domain.TypeID

	// IdentityOf returns the entity's identity, stable and unique within
	// its type. Used only as a registry key, never persisted by the core.
	IdentityOf(entity any) string

	// ReadField returns the current value of a named field.
	ReadField(ctx context.Context, entity any, name string) (any, error)

	// WriteField sets a named field on an entity.
	WriteField(ctx context.Context, entity any, name string, value any) error

	// DefaultFieldValue returns the schema default for a field on a type.
	// This is the column default, distinct from null/zero: a field excepted
	// from cloning is reset to it. Unknown fields return an error.
	DefaultFieldValue(ctx context.Context, t domain.TypeID, name string) (any, error)

	// Relationships returns the declared relationship descriptors of a type,
	// in declaration order.
	Relationships(ctx context.Context, t domain.TypeID) ([]domain.Relationship, error)

	// ReadOne returns the current target of a to-one relationship, or nil
	// if the relationship is unset.
	ReadOne(ctx context.Context, entity any, name string) (any, error)

	// ReadMany returns the current members of a to-many relationship, in
	// collection order. An empty relationship returns an empty slice.
	ReadMany(ctx context.Context, entity any, name string) ([]any, error)

	// WriteOne sets the target of a to-one relationship.
	WriteOne(ctx context.Context, entity any, name string, target any) error

	// WriteMany replaces the members of a to-many relationship.
	WriteMany(ctx context.Context, entity any, name string, targets []any) error

	// ShallowClone produces a new entity of the same type with a fresh
	// identity and field values copied verbatim. Relationships are left at
	// their type defaults.
	ShallowClone(ctx context.Context, entity any) (any, error)
}
