package graft_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/pkg/adapters/memory"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/registry"
)

// newCrewModel registers the fixture schemas shared by the core tests:
// pirates with a parrot (to-one, reciprocal owner), treasures (to-many with
// reciprocal owner and foreign key), and mateys (to-many pirates). Parrots
// own toys (to-many).
func newCrewModel(t *testing.T) *memory.Model {
	t.Helper()
	model := memory.NewModel()

	schemas := []memory.Schema{
		{
			Type: "pirate",
			Fields: []memory.Field{
				{Name: "name", Default: ""},
				{Name: "rank", Default: "deckhand"},
				{Name: "ship_id", Default: ""},
			},
			Relationships: []domain.Relationship{
				{Name: "parrot", Kind: domain.ToOne, Target: "parrot"},
				{Name: "familiar", Kind: domain.ToOne, Target: "parrot"},
				{Name: "treasures", Kind: domain.ToMany, Target: "treasure", Inverse: "owner", ForeignKey: "owner_id"},
				{Name: "mateys", Kind: domain.ToMany, Target: "pirate"},
			},
		},
		{
			Type: "parrot",
			Fields: []memory.Field{
				{Name: "name", Default: ""},
			},
			Relationships: []domain.Relationship{
				{Name: "owner", Kind: domain.ToOne, Target: "pirate"},
				{Name: "toys", Kind: domain.ToMany, Target: "toy"},
			},
		},
		{
			Type: "treasure",
			Fields: []memory.Field{
				{Name: "label", Default: "unmarked"},
				{Name: "owner_id", Default: ""},
			},
			Relationships: []domain.Relationship{
				{Name: "owner", Kind: domain.ToOne, Target: "pirate"},
			},
		},
		{
			Type:   "toy",
			Fields: []memory.Field{{Name: "label", Default: ""}},
		},
	}
	for _, s := range schemas {
		if err := model.Register(s); err != nil {
			t.Fatalf("Register(%s) failed: %v", s.Type, err)
		}
	}
	return model
}

func mustRecord(t *testing.T, model *memory.Model, typeID domain.TypeID, fields map[string]any) *memory.Record {
	t.Helper()
	rec, err := model.NewRecord(typeID, fields)
	if err != nil {
		t.Fatalf("NewRecord(%s) failed: %v", typeID, err)
	}
	return rec
}

func TestClone_CopiesFieldsFreshIdentity(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", map[string]any{"name": "mary", "rank": "captain"})

	cloned, err := cloner.Clone(ctx, pirate)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy := cloned.(*memory.Record)

	if kopy.ID() == pirate.ID() {
		t.Error("clone must carry a fresh identity")
	}
	if kopy.Field("name") != "mary" || kopy.Field("rank") != "captain" {
		t.Errorf("clone fields = (%v, %v), want originals", kopy.Field("name"), kopy.Field("rank"))
	}
	if kopy.One("parrot") != nil || len(kopy.Many("treasures")) != 0 {
		t.Error("relationships outside the spec must stay empty")
	}
}

func TestClone_ExceptResetsToSchemaDefault(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", map[string]any{"name": "mary", "rank": "captain"})

	cloned, err := cloner.Clone(ctx, pirate, graft.WithExcept("rank"))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy := cloned.(*memory.Record)

	if kopy.Field("rank") != "deckhand" {
		t.Errorf("excepted field = %v, want schema default deckhand", kopy.Field("rank"))
	}
	if kopy.Field("name") != "mary" {
		t.Error("non-excepted fields must stay untouched")
	}
	if pirate.Field("rank") != "captain" {
		t.Error("the original must never be mutated")
	}
}

func TestClone_ExceptUnknownFieldFailsFast(t *testing.T) {
	model := newCrewModel(t)
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", nil)

	if _, err := cloner.Clone(context.Background(), pirate, graft.WithExcept("beard")); err == nil {
		t.Error("excepting an undeclared field should abort the clone")
	}
}

func TestClone_ToOneRecursion(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", map[string]any{"name": "mary"})
	parrot := mustRecord(t, model, "parrot", map[string]any{"name": "polly"})
	if err := model.WriteOne(ctx, pirate, "parrot", parrot); err != nil {
		t.Fatal(err)
	}

	cloned, err := cloner.Clone(ctx, pirate, graft.WithInclude("parrot"))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy := cloned.(*memory.Record)

	clonedParrot := kopy.One("parrot")
	if clonedParrot == nil {
		t.Fatal("included to-one relationship should be populated")
	}
	if clonedParrot == parrot {
		t.Error("the related entity must be cloned, not shared")
	}
	if clonedParrot.Field("name") != "polly" {
		t.Errorf("cloned parrot name = %v, want polly", clonedParrot.Field("name"))
	}
}

func TestClone_AbsentToOneStaysAbsent(t *testing.T) {
	model := newCrewModel(t)
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", nil)

	cloned, err := cloner.Clone(context.Background(), pirate, graft.WithInclude("parrot"))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if cloned.(*memory.Record).One("parrot") != nil {
		t.Error("an absent to-one relationship must stay absent on the clone")
	}
}

func TestClone_ToManyRewiresBackReference(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", map[string]any{"name": "mary"})
	gold := mustRecord(t, model, "treasure", map[string]any{"label": "gold", "owner_id": pirate.ID()})
	gems := mustRecord(t, model, "treasure", map[string]any{"label": "gems", "owner_id": pirate.ID()})
	for _, tr := range []*memory.Record{gold, gems} {
		if err := model.WriteOne(ctx, tr, "owner", pirate); err != nil {
			t.Fatal(err)
		}
	}
	if err := model.WriteMany(ctx, pirate, "treasures", []any{gold, gems}); err != nil {
		t.Fatal(err)
	}

	cloned, err := cloner.Clone(ctx, pirate, graft.WithInclude("treasures"))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy := cloned.(*memory.Record)

	members := kopy.Many("treasures")
	if len(members) != 2 {
		t.Fatalf("cloned collection has %d members, want 2", len(members))
	}
	if members[0].Field("label") != "gold" || members[1].Field("label") != "gems" {
		t.Error("collection order must be preserved")
	}

	for _, member := range members {
		if member.One("owner") != kopy {
			t.Error("reciprocal relationship must point at the NEW parent")
		}
		if member.Field("owner_id") != "" {
			t.Errorf("foreign key must be reset to its default, got %v", member.Field("owner_id"))
		}
	}

	// Originals keep their wiring.
	if gold.One("owner") != pirate || gold.Field("owner_id") != pirate.ID() {
		t.Error("original children must keep their parent wiring")
	}
}

func TestClone_CycleTerminatesWithDictionary(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", map[string]any{"name": "mary"})
	parrot := mustRecord(t, model, "parrot", map[string]any{"name": "polly"})
	if err := model.WriteOne(ctx, pirate, "parrot", parrot); err != nil {
		t.Fatal(err)
	}
	if err := model.WriteOne(ctx, parrot, "owner", pirate); err != nil {
		t.Fatal(err)
	}

	dict := registry.NewDictionary()
	cloned, err := cloner.Clone(ctx, pirate,
		graft.WithInclude(map[string]any{"parrot": "owner"}),
		graft.WithDictionary(dict),
	)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy := cloned.(*memory.Record)

	clonedParrot := kopy.One("parrot")
	if clonedParrot == nil {
		t.Fatal("parrot should be cloned")
	}
	if clonedParrot.One("owner") != kopy {
		t.Error("the cycle must resolve to the SAME top-level clone instance")
	}
	if dict.Len() != 2 {
		t.Errorf("dictionary has %d entries, want exactly one clone of each original", dict.Len())
	}
}

func TestClone_SharedEntityWithoutDictionaryDuplicates(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", nil)
	parrot := mustRecord(t, model, "parrot", map[string]any{"name": "polly"})
	if err := model.WriteOne(ctx, pirate, "parrot", parrot); err != nil {
		t.Fatal(err)
	}
	if err := model.WriteOne(ctx, pirate, "familiar", parrot); err != nil {
		t.Fatal(err)
	}

	include := []any{"parrot", "familiar"}

	// Without a dictionary two paths legally yield two distinct clones.
	cloned, err := cloner.Clone(ctx, pirate, graft.WithInclude(include))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy := cloned.(*memory.Record)
	if kopy.One("parrot") == kopy.One("familiar") {
		t.Error("without a dictionary, shared entities may not be deduplicated")
	}

	// With one, both paths resolve to the same clone.
	cloned, err = cloner.Clone(ctx, pirate, graft.WithInclude(include), graft.WithUseDictionary())
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy = cloned.(*memory.Record)
	if kopy.One("parrot") != kopy.One("familiar") {
		t.Error("with a dictionary, both paths must share one clone")
	}
}

func TestClone_NestedExceptFlowsOneLevel(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", map[string]any{"name": "mary"})
	parrot := mustRecord(t, model, "parrot", map[string]any{"name": "polly"})
	if err := model.WriteOne(ctx, pirate, "parrot", parrot); err != nil {
		t.Fatal(err)
	}

	cloned, err := cloner.Clone(ctx, pirate,
		graft.WithInclude("parrot"),
		graft.WithExcept([]any{map[string]any{"parrot": []any{"name"}}}),
	)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy := cloned.(*memory.Record)

	if kopy.Field("name") != "mary" {
		t.Error("the parent's own fields must be untouched by nested exceptions")
	}
	if got := kopy.One("parrot").Field("name"); got != "" {
		t.Errorf("nested excepted field = %v, want parrot's schema default", got)
	}
}

func TestClone_AlwaysIncludedPolicyMerges(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()

	policy := registry.NewPolicy()
	policy.Declare("pirate", "treasures")
	cloner := graft.New(model, graft.WithPolicy(policy))

	pirate := mustRecord(t, model, "pirate", nil)
	gold := mustRecord(t, model, "treasure", map[string]any{"label": "gold"})
	if err := model.WriteMany(ctx, pirate, "treasures", []any{gold}); err != nil {
		t.Fatal(err)
	}

	// No explicit include: the type-level policy alone drives traversal.
	cloned, err := cloner.Clone(ctx, pirate)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if got := cloned.(*memory.Record).Many("treasures"); len(got) != 1 {
		t.Fatalf("always-included relationship populated %d members, want 1", len(got))
	}
}

func TestClone_PolicyIsTypeScopedAtDepth(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()

	// Declared on the parrot type, not on the root's type.
	policy := registry.NewPolicy()
	policy.Declare("parrot", "toys")
	cloner := graft.New(model, graft.WithPolicy(policy))

	pirate := mustRecord(t, model, "pirate", nil)
	parrot := mustRecord(t, model, "parrot", nil)
	ball := mustRecord(t, model, "toy", map[string]any{"label": "ball"})
	if err := model.WriteOne(ctx, pirate, "parrot", parrot); err != nil {
		t.Fatal(err)
	}
	if err := model.WriteMany(ctx, parrot, "toys", []any{ball}); err != nil {
		t.Fatal(err)
	}

	cloned, err := cloner.Clone(ctx, pirate, graft.WithInclude("parrot"))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	clonedParrot := cloned.(*memory.Record).One("parrot")
	if clonedParrot == nil {
		t.Fatal("parrot should be cloned")
	}
	if got := clonedParrot.Many("toys"); len(got) != 1 {
		t.Errorf("nested type's own policy populated %d toys, want 1", len(got))
	}
}

func TestClone_UnknownIncludeIsResolutionError(t *testing.T) {
	model := newCrewModel(t)
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", nil)

	_, err := cloner.Clone(context.Background(), pirate, graft.WithInclude("ship"))
	var resErr *domain.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Clone error = %v, want ResolutionError", err)
	}
	if resErr.Type != "pirate" || resErr.Relationship != "ship" {
		t.Errorf("ResolutionError = %+v, want pirate/ship", resErr)
	}
}

func TestClone_MisconfiguredPolicyIsConfigurationError(t *testing.T) {
	model := newCrewModel(t)

	policy := registry.NewPolicy()
	policy.Declare("pirate", "ghost_rel")
	cloner := graft.New(model, graft.WithPolicy(policy))

	pirate := mustRecord(t, model, "pirate", nil)

	_, err := cloner.Clone(context.Background(), pirate)
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Clone error = %v, want ConfigurationError", err)
	}
	if cfgErr.Type != "pirate" {
		t.Errorf("ConfigurationError names type %q, want pirate", cfgErr.Type)
	}
}

func TestClone_SharedDictionaryAcrossInvocations(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", map[string]any{"name": "mary"})

	dict := registry.NewDictionary()
	first, err := cloner.Clone(ctx, pirate, graft.WithDictionary(dict))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	second, err := cloner.Clone(ctx, pirate, graft.WithDictionary(dict))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	if first != second {
		t.Error("a reused dictionary must hand back the same clone across invocations")
	}
}

func TestOptionsFromMap(t *testing.T) {
	model := newCrewModel(t)
	ctx := context.Background()
	cloner := graft.New(model, graft.WithPolicy(registry.NewPolicy()))

	pirate := mustRecord(t, model, "pirate", map[string]any{"rank": "captain"})
	parrot := mustRecord(t, model, "parrot", map[string]any{"name": "polly"})
	if err := model.WriteOne(ctx, pirate, "parrot", parrot); err != nil {
		t.Fatal(err)
	}

	opts, err := graft.OptionsFromMap(map[string]any{
		"include":        "parrot",
		"except":         "rank",
		"use_dictionary": true,
	})
	if err != nil {
		t.Fatalf("OptionsFromMap failed: %v", err)
	}

	cloned, err := cloner.Clone(ctx, pirate, opts...)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	kopy := cloned.(*memory.Record)

	if kopy.Field("rank") != "deckhand" {
		t.Error("map-shaped except was not applied")
	}
	if kopy.One("parrot") == nil {
		t.Error("map-shaped include was not applied")
	}
}
