/*
Package graft is a deep, cycle-safe clone engine for entity graphs. It
produces a new, structurally equivalent but identity-distinct graph from an
existing one, following a declarative traversal specification that says
which relationships to follow, how deep, and which fields to reset along
the way.

Graft is a transformation library, not an application. Everything about how
entities are stored, how relationships are declared, and how fields are
read and written lives behind the EntityModel port, so the same traversal
works over the bundled in-memory model, the Redis adapter, or any host ORM.
This Hexagonal Architecture allows Graft to be embedded in any interface:
CLI, HTTP Server, or a host persistence layer.

# Key Features

  - Declarative traversal: include specs accept bare names, lists, and
    nested maps; exceptions reset fields to their schema defaults and flow
    one level deeper per relationship.
  - Cycle safety: an opt-in clone dictionary guarantees at most one clone
    per original entity and resolves relationship cycles to the
    in-progress clone.
  - Relationship semantics: to-one edges clone and reattach; to-many
    collections clone in order, rewire their reciprocal edge to the new
    parent, and drop the stored parent key.
  - Type-level policy: relationships declared always-included merge into
    every spec for that type, at every depth.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/graft"
		"github.com/aretw0/graft/pkg/adapters/memory"
	)

	func main() {
		model := memory.NewModel()
		// ... register type schemas and create records ...

		cloner := graft.New(model)

		kopy, err := cloner.Clone(context.Background(), pirate,
			graft.WithInclude([]any{"mateys", map[string]any{"parrot": "toys"}}),
			graft.WithExcept([]any{"rank", map[string]any{"parrot": "name"}}),
			graft.WithUseDictionary(),
		)
		if err != nil {
			log.Fatal(err)
		}

		log.Println("cloned:", model.IdentityOf(kopy))
	}

A single Clone invocation is synchronous and runs to completion or fails
atomically; there is no partial-result contract. Recursion depth equals the
depth of the traversal spec, so the goroutine stack is the effective
ceiling for pathologically deep specs.
*/
package graft
