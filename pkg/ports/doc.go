/*
Package ports defines the driven ports (interfaces) for the Graft cloner.

These interfaces decouple the traversal algorithm from external
implementations, allowing the cloner to work with various entity storage
backends.

# Key Interfaces

  - EntityModel: Responsible for reading type metadata, field values and
    relationships, and for allocating shallow clones.
*/
package ports
