/*
Package domain contains the core domain vocabulary for the Graft cloner.

It defines the static metadata the cloner reasons about: entity types,
relationship descriptors, refs, and the error taxonomy. This package is kept
pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - TypeID: Identifies an entity type within the host model.
  - Relationship: Static descriptor for a named edge (cardinality, target,
    inverse, foreign key).
  - Ref: A (type, identity) pair addressing one entity.
  - ResolutionError / ConfigurationError: The two ways a clone aborts.
*/
package domain
