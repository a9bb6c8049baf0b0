package domain

// TypeID identifies an entity type within the host model.
// It is the namespace for identities and relationship descriptors.
type TypeID string

// Cardinality constants define how many targets a relationship holds.
const (
	// ToOne holds at most one target entity (belongs_to / has_one semantics).
	ToOne = "to_one"
	// ToMany holds an ordered collection of target entities (has_many semantics).
	ToMany = "to_many"
)

// Relationship is the static descriptor for a named edge on an entity type.
// Descriptors are declared by the host model, not discovered at runtime.
type Relationship struct {
	// Name is the relationship name as callers reference it in clone specs.
	Name string `json:"name" yaml:"name"`

	// Kind is the cardinality: ToOne or ToMany.
	Kind string `json:"kind" yaml:"kind"`

	// Target is the entity type on the far side of the edge.
	Target TypeID `json:"target" yaml:"target"`

	// Inverse names the reciprocal to-one relationship on the target type,
	// if one exists. After cloning a ToMany collection, each cloned member's
	// inverse is rewired to point at the new parent.
	Inverse string `json:"inverse,omitempty" yaml:"inverse,omitempty"`

	// ForeignKey names the field on the target type that stores the parent
	// link. It is reset to its schema default on cloned ToMany members so a
	// clone never keeps the original parent's stored key.
	ForeignKey string `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
}

// Ref addresses one entity: a type plus an identity unique within it.
// The core uses refs only as registry keys; it never persists them.
type Ref struct {
	Type     TypeID `json:"type" yaml:"type"`
	Identity string `json:"identity" yaml:"identity"`
}
