/*
Package memory provides the reference in-memory implementation of the
EntityModel port.

Type schemas (fields with defaults, relationship descriptors) are
registered up front; records are free-standing nodes linked to each other
directly, so an entity graph is just records pointing at records. This is
the adapter the tests and the CLI's YAML documents build on.
*/
package memory
