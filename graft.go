package graft

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
	"github.com/aretw0/graft/pkg/registry"
	"github.com/aretw0/graft/pkg/spec"
)

// Cloner is the high-level entry point for the Graft library.
// It walks an entity graph through an EntityModel and produces a new,
// identity-distinct graph according to a traversal specification.
type Cloner struct {
	model  ports.EntityModel
	policy *registry.Policy
	logger *slog.Logger
}

// Option defines a functional option for configuring the Cloner.
type Option func(*Cloner)

// WithPolicy injects a custom relationship policy, bypassing the
// process-wide default registry.
func WithPolicy(p *registry.Policy) Option {
	return func(c *Cloner) {
		c.policy = p
	}
}

// WithLogger sets a custom structured logger for the cloner.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cloner) {
		c.logger = logger
	}
}

// New creates a Cloner over the given entity model.
func New(model ports.EntityModel, opts ...Option) *Cloner {
	c := &Cloner{
		model:  model,
		policy: registry.Default(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cloneConfig captures per-invocation options.
type cloneConfig struct {
	include       any
	except        any
	dictionary    *registry.Dictionary
	useDictionary bool
}

// CloneOption defines a functional option for a single Clone invocation.
type CloneOption func(*cloneConfig)

// WithInclude sets the relationships to follow. Accepts any shape
// spec.Normalize accepts: a bare name, a list, or a nested map.
func WithInclude(raw any) CloneOption {
	return func(cfg *cloneConfig) {
		cfg.include = raw
	}
}

// WithExcept sets the fields to reset to their schema defaults. Maps keyed
// by relationship name carry resets one level deeper per recursion.
func WithExcept(raw any) CloneOption {
	return func(cfg *cloneConfig) {
		cfg.except = raw
	}
}

// WithDictionary shares an externally owned clone dictionary, letting
// separate Clone invocations reuse each other's clones. The caller is
// responsible for serializing access across goroutines.
func WithDictionary(d *registry.Dictionary) CloneOption {
	return func(cfg *cloneConfig) {
		cfg.dictionary = d
	}
}

// WithUseDictionary materializes a fresh dictionary for this invocation if
// no external one was supplied. Without a dictionary, an entity reachable
// via two paths legally clones twice and cycles do not terminate.
func WithUseDictionary() CloneOption {
	return func(cfg *cloneConfig) {
		cfg.useDictionary = true
	}
}

// rawOptions is the map-shaped form of clone options, as hosts receive
// them from YAML documents or JSON requests.
type rawOptions struct {
	Include       any  `mapstructure:"include"`
	Except        any  `mapstructure:"except"`
	UseDictionary bool `mapstructure:"use_dictionary"`
}

// OptionsFromMap decodes map-shaped clone options into CloneOptions.
func OptionsFromMap(m map[string]any) ([]CloneOption, error) {
	var raw rawOptions
	if err := mapstructure.Decode(m, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode clone options: %w", err)
	}

	var opts []CloneOption
	if raw.Include != nil {
		opts = append(opts, WithInclude(raw.Include))
	}
	if raw.Except != nil {
		opts = append(opts, WithExcept(raw.Except))
	}
	if raw.UseDictionary {
		opts = append(opts, WithUseDictionary())
	}
	return opts, nil
}

// Clone produces a deep copy of entity following the configured traversal
// specification. The original graph is never mutated; any error aborts the
// whole invocation with no partial result.
func (c *Cloner) Clone(ctx context.Context, entity any, opts ...CloneOption) (any, error) {
	var cfg cloneConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sp, err := spec.Normalize(cfg.include, cfg.except)
	if err != nil {
		return nil, fmt.Errorf("invalid clone spec: %w", err)
	}

	dict := cfg.dictionary
	if dict == nil && cfg.useDictionary {
		dict = registry.NewDictionary()
	}

	c.logger.Debug("clone started",
		"type", c.model.TypeOf(entity),
		"identity", c.model.IdentityOf(entity),
		"dictionary", dict != nil)

	return c.clone(ctx, entity, sp, dict)
}

func (c *Cloner) clone(ctx context.Context, entity any, sp *spec.Spec, dict *registry.Dictionary) (any, error) {
	t := c.model.TypeOf(entity)

	// Shallow copy first. With a dictionary the entry is stored before any
	// recursion below, so a cycle back to this entity resolves to the
	// still-being-populated clone.
	var kopy any
	if dict != nil {
		memoized, created, err := dict.GetOrCreate(t, c.model.IdentityOf(entity), func() (any, error) {
			return c.model.ShallowClone(ctx, entity)
		})
		if err != nil {
			return nil, fmt.Errorf("shallow clone of %q failed: %w", t, err)
		}
		if !created {
			return memoized, nil
		}
		kopy = memoized
	} else {
		var err error
		kopy, err = c.model.ShallowClone(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("shallow clone of %q failed: %w", t, err)
		}
	}

	// Field exceptions reset to the schema default, not to zero. Unknown
	// fields fail fast via the adapter.
	for _, field := range sp.Except.Fields {
		def, err := c.model.DefaultFieldValue(ctx, t, field)
		if err != nil {
			return nil, fmt.Errorf("excepted field %q on type %q: %w", field, t, err)
		}
		if err := c.model.WriteField(ctx, kopy, field, def); err != nil {
			return nil, fmt.Errorf("resetting field %q on type %q: %w", field, t, err)
		}
	}

	descriptors, err := c.model.Relationships(ctx, t)
	if err != nil {
		return nil, &domain.ConfigurationError{Type: t, Reason: "relationship descriptors unreadable", Err: err}
	}
	byName := make(map[string]domain.Relationship, len(descriptors))
	for _, rd := range descriptors {
		byName[rd.Name] = rd
	}

	// The always-included set is type-scoped: a nested entity of a
	// different type gets its own type's policy merged in here.
	always := c.policy.AlwaysIncluded(t)
	for _, name := range always {
		if _, ok := byName[name]; !ok {
			return nil, &domain.ConfigurationError{
				Type:   t,
				Reason: fmt.Sprintf("always-included relationship %q is not declared", name),
			}
		}
	}

	for _, inc := range sp.Augmented(always) {
		rd, ok := byName[inc.Name]
		if !ok {
			return nil, &domain.ResolutionError{Type: t, Relationship: inc.Name}
		}

		child := c.childSpec(sp, inc)

		switch rd.Kind {
		case domain.ToOne:
			if err := c.cloneOne(ctx, entity, kopy, rd, child, dict); err != nil {
				return nil, err
			}
		case domain.ToMany:
			if err := c.cloneMany(ctx, entity, kopy, rd, child, dict); err != nil {
				return nil, err
			}
		default:
			return nil, &domain.ConfigurationError{
				Type:   t,
				Reason: fmt.Sprintf("relationship %q has unknown cardinality %q", rd.Name, rd.Kind),
			}
		}
	}

	return kopy, nil
}

// childSpec derives the spec for one relationship: the nested include (if
// any) plus the parent's exception table for that relationship.
func (c *Cloner) childSpec(parent *spec.Spec, inc spec.Include) *spec.Spec {
	child := &spec.Spec{Except: parent.Except.For(inc.Name)}
	if inc.Nested != nil {
		child.Include = inc.Nested.Include
		if !inc.Nested.Except.Empty() {
			child.Except = child.Except.Merged(inc.Nested.Except)
		}
	}
	return child
}

func (c *Cloner) cloneOne(ctx context.Context, original, kopy any, rd domain.Relationship, child *spec.Spec, dict *registry.Dictionary) error {
	current, err := c.model.ReadOne(ctx, original, rd.Name)
	if err != nil {
		return fmt.Errorf("reading relationship %q: %w", rd.Name, err)
	}
	if current == nil {
		// Absent stays absent.
		return nil
	}

	cloned, err := c.clone(ctx, current, child, dict)
	if err != nil {
		return err
	}
	if err := c.model.WriteOne(ctx, kopy, rd.Name, cloned); err != nil {
		return fmt.Errorf("writing relationship %q: %w", rd.Name, err)
	}
	return nil
}

func (c *Cloner) cloneMany(ctx context.Context, original, kopy any, rd domain.Relationship, child *spec.Spec, dict *registry.Dictionary) error {
	members, err := c.model.ReadMany(ctx, original, rd.Name)
	if err != nil {
		return fmt.Errorf("reading relationship %q: %w", rd.Name, err)
	}

	cloned := make([]any, 0, len(members))
	for _, src := range members {
		member, err := c.clone(ctx, src, child, dict)
		if err != nil {
			return err
		}

		// Rewire the back-reference to the NEW parent and drop the stored
		// parent key; persistence re-derives it from the rewired edge.
		if rd.Inverse != "" {
			if err := c.model.WriteOne(ctx, member, rd.Inverse, kopy); err != nil {
				return fmt.Errorf("rewiring %q on cloned %q: %w", rd.Inverse, rd.Target, err)
			}
		}
		if rd.ForeignKey != "" {
			def, err := c.model.DefaultFieldValue(ctx, rd.Target, rd.ForeignKey)
			if err != nil {
				return fmt.Errorf("foreign key %q on type %q: %w", rd.ForeignKey, rd.Target, err)
			}
			if err := c.model.WriteField(ctx, member, rd.ForeignKey, def); err != nil {
				return fmt.Errorf("resetting foreign key %q on cloned %q: %w", rd.ForeignKey, rd.Target, err)
			}
		}

		cloned = append(cloned, member)
	}

	if err := c.model.WriteMany(ctx, kopy, rd.Name, cloned); err != nil {
		return fmt.Errorf("writing relationship %q: %w", rd.Name, err)
	}
	return nil
}
