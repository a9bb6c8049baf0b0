package graft_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/pkg/adapters/memory"
	"github.com/aretw0/graft/pkg/domain"
)

// ExampleCloner_Clone demonstrates a basic deep clone over the in-memory
// model: the named relationship is followed, the excepted field resets to
// its schema default, and both records get fresh identities.
func ExampleCloner_Clone() {
	// 1. Declare the schemas using helper structs for clean, type-safe construction.
	model := memory.NewModel()
	if err := model.Register(memory.Schema{
		Type: "pirate",
		Fields: []memory.Field{
			{Name: "name"},
			{Name: "rank", Default: "deckhand"},
		},
		Relationships: []domain.Relationship{
			{Name: "parrot", Kind: domain.ToOne, Target: "parrot"},
		},
	}); err != nil {
		log.Fatal(err)
	}
	if err := model.Register(memory.Schema{
		Type:   "parrot",
		Fields: []memory.Field{{Name: "name"}},
	}); err != nil {
		log.Fatal(err)
	}

	// 2. Build the source graph.
	polly, err := model.NewRecord("parrot", map[string]any{"name": "Polly"})
	if err != nil {
		log.Fatal(err)
	}
	jack, err := model.NewRecord("pirate", map[string]any{"name": "Jack", "rank": "captain"})
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	if err := model.WriteOne(ctx, jack, "parrot", polly); err != nil {
		log.Fatal(err)
	}

	// 3. Clone: follow the parrot edge, reset the rank.
	cloner := graft.New(model)
	cloned, err := cloner.Clone(ctx, jack,
		graft.WithInclude("parrot"),
		graft.WithExcept("rank"),
	)
	if err != nil {
		log.Fatal(err)
	}

	kopy := cloned.(*memory.Record)
	fmt.Printf("Name: %s\n", kopy.Field("name"))
	fmt.Printf("Rank: %s\n", kopy.Field("rank"))
	fmt.Printf("Parrot: %s\n", kopy.One("parrot").Field("name"))
	fmt.Printf("Fresh identity: %v\n", kopy.ID() != jack.ID())
	fmt.Printf("Parrot is a copy: %v\n", kopy.One("parrot") != polly)
	// Output:
	// Name: Jack
	// Rank: deckhand
	// Parrot: Polly
	// Fresh identity: true
	// Parrot is a copy: true
}

// ExampleCloner_Clone_dictionary demonstrates cycle handling: with a
// dictionary enabled, a back-reference onto the entity being cloned
// resolves to the clone itself instead of recursing forever.
func ExampleCloner_Clone_dictionary() {
	model := memory.NewModel()
	if err := model.Register(memory.Schema{
		Type:   "pirate",
		Fields: []memory.Field{{Name: "name"}},
		Relationships: []domain.Relationship{
			{Name: "parrot", Kind: domain.ToOne, Target: "parrot"},
		},
	}); err != nil {
		log.Fatal(err)
	}
	if err := model.Register(memory.Schema{
		Type:   "parrot",
		Fields: []memory.Field{{Name: "name"}},
		Relationships: []domain.Relationship{
			{Name: "owner", Kind: domain.ToOne, Target: "pirate"},
		},
	}); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	jack, _ := model.NewRecord("pirate", map[string]any{"name": "Jack"})
	polly, _ := model.NewRecord("parrot", map[string]any{"name": "Polly"})
	if err := model.WriteOne(ctx, jack, "parrot", polly); err != nil {
		log.Fatal(err)
	}
	if err := model.WriteOne(ctx, polly, "owner", jack); err != nil {
		log.Fatal(err)
	}

	cloner := graft.New(model)
	cloned, err := cloner.Clone(ctx, jack,
		graft.WithInclude(map[string]any{"parrot": "owner"}),
		graft.WithUseDictionary(),
	)
	if err != nil {
		log.Fatal(err)
	}

	kopy := cloned.(*memory.Record)
	fmt.Printf("Owner is the clone: %v\n", kopy.One("parrot").One("owner") == kopy)
	// Output:
	// Owner is the clone: true
}
