package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Field declares one field of a type schema, with its schema default.
type Field struct {
	Name    string
	Default any
}

// Schema declares an entity type for the Redis model. Schemas live
// in-process; only entity data lives in Redis.
type Schema struct {
	Type          domain.TypeID
	Fields        []Field
	Relationships []domain.Relationship
}

// Entity is a handle to a Redis-backed entity. Field and relationship data
// are read through the model on demand.
type Entity struct {
	Type domain.TypeID
	ID   string
}

// Ref returns the "type:id" form used in relationship storage.
func (e *Entity) Ref() string {
	return string(e.Type) + ":" + e.ID
}

// Model implements ports.EntityModel over Redis. Entities are hashes of
// JSON-encoded field values; to-one links are a per-entity hash of refs;
// to-many collections are lists of refs. Type names must not contain ":".
type Model struct {
	client *backend.Client
	prefix string

	mu      sync.RWMutex
	schemas map[domain.TypeID]*Schema
}

// Ensure Model implements the port.
var _ ports.EntityModel = (*Model)(nil)

// Option configures the model.
type Option func(*Model)

// WithPrefix sets the key prefix for entity data.
func WithPrefix(prefix string) Option {
	return func(m *Model) {
		m.prefix = prefix
	}
}

// New creates a Redis model with its own client.
func New(address, password string, db int, opts ...Option) *Model {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis model from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Model {
	m := &Model{
		client:  client,
		prefix:  "graft:",
		schemas: make(map[domain.TypeID]*Schema),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close closes the redis client.
func (m *Model) Close() error {
	return m.client.Close()
}

// Register declares a type schema.
// If a schema with the same type exists, it is overwritten.
func (m *Model) Register(s Schema) error {
	if s.Type == "" {
		return fmt.Errorf("schema missing type")
	}
	if strings.Contains(string(s.Type), ":") {
		return fmt.Errorf("type %q: names must not contain %q", s.Type, ":")
	}
	for _, rd := range s.Relationships {
		if rd.Kind != domain.ToOne && rd.Kind != domain.ToMany {
			return fmt.Errorf("relationship %q on type %q: unknown cardinality %q", rd.Name, s.Type, rd.Kind)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	schema := s
	m.schemas[s.Type] = &schema
	return nil
}

func (m *Model) fieldsKey(e *Entity) string {
	return m.prefix + "entity:" + e.Ref()
}

func (m *Model) relKey(e *Entity) string {
	return m.prefix + "rel:" + e.Ref()
}

func (m *Model) listKey(e *Entity, rel string) string {
	return m.prefix + "list:" + e.Ref() + ":" + rel
}

func (m *Model) schemaOf(t domain.TypeID) (*Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	schema, ok := m.schemas[t]
	if !ok {
		return nil, fmt.Errorf("type %q is not registered", t)
	}
	return schema, nil
}

func (m *Model) fieldOf(t domain.TypeID, name string) (Field, error) {
	schema, err := m.schemaOf(t)
	if err != nil {
		return Field{}, err
	}
	for _, f := range schema.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, fmt.Errorf("field %q is not declared on type %q", name, t)
}

func (m *Model) descriptorOf(t domain.TypeID, name string) (domain.Relationship, error) {
	schema, err := m.schemaOf(t)
	if err != nil {
		return domain.Relationship{}, err
	}
	for _, rd := range schema.Relationships {
		if rd.Name == name {
			return rd, nil
		}
	}
	return domain.Relationship{}, &domain.ResolutionError{Type: t, Relationship: name}
}

func asEntity(entity any) (*Entity, error) {
	e, ok := entity.(*Entity)
	if !ok || e == nil {
		return nil, fmt.Errorf("expected *redis.Entity, got %T", entity)
	}
	return e, nil
}

func parseRef(ref string) (*Entity, error) {
	typeName, id, ok := strings.Cut(ref, ":")
	if !ok || typeName == "" || id == "" {
		return nil, fmt.Errorf("malformed entity ref %q", ref)
	}
	return &Entity{Type: domain.TypeID(typeName), ID: id}, nil
}

// NewEntity creates and persists an entity of a registered type. Missing
// declared fields take their schema defaults; undeclared keys are rejected.
func (m *Model) NewEntity(ctx context.Context, t domain.TypeID, fields map[string]any) (*Entity, error) {
	schema, err := m.schemaOf(t)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]bool, len(schema.Fields))
	values := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		declared[f.Name] = true
		values[f.Name] = f.Default
	}
	for name, value := range fields {
		if !declared[name] {
			return nil, fmt.Errorf("field %q is not declared on type %q", name, t)
		}
		values[name] = value
	}

	e := &Entity{Type: t, ID: uuid.NewString()}
	if err := m.writeFields(ctx, e, values); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns a handle to an existing entity, or domain.ErrEntityNotFound.
func (m *Model) Get(ctx context.Context, t domain.TypeID, id string) (*Entity, error) {
	e := &Entity{Type: t, ID: id}
	exists, err := m.client.Exists(ctx, m.fieldsKey(e)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check entity in redis: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%s %q: %w", t, id, domain.ErrEntityNotFound)
	}
	return e, nil
}

func (m *Model) writeFields(ctx context.Context, e *Entity, values map[string]any) error {
	encoded := make(map[string]string, len(values))
	for name, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal field %q: %w", name, err)
		}
		encoded[name] = string(data)
	}
	if len(encoded) == 0 {
		// An entity with no fields still needs its key to exist.
		encoded["_"] = "null"
	}
	if err := m.client.HSet(ctx, m.fieldsKey(e), encoded).Err(); err != nil {
		return fmt.Errorf("failed to save entity to redis: %w", err)
	}
	return nil
}

// TypeOf returns the handle's type.
func (m *Model) TypeOf(entity any) domain.TypeID {
	if e, ok := entity.(*Entity); ok {
		return e.Type
	}
	return ""
}

// IdentityOf returns the handle's identity.
func (m *Model) IdentityOf(entity any) string {
	if e, ok := entity.(*Entity); ok {
		return e.ID
	}
	return ""
}

// ReadField returns the decoded value of a declared field.
func (m *Model) ReadField(ctx context.Context, entity any, name string) (any, error) {
	e, err := asEntity(entity)
	if err != nil {
		return nil, err
	}
	if _, err := m.fieldOf(e.Type, name); err != nil {
		return nil, err
	}

	raw, err := m.client.HGet(ctx, m.fieldsKey(e), name).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read field from redis: %w", err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal field %q: %w", name, err)
	}
	return value, nil
}

// WriteField sets a declared field.
func (m *Model) WriteField(ctx context.Context, entity any, name string, value any) error {
	e, err := asEntity(entity)
	if err != nil {
		return err
	}
	if _, err := m.fieldOf(e.Type, name); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal field %q: %w", name, err)
	}
	if err := m.client.HSet(ctx, m.fieldsKey(e), name, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to write field to redis: %w", err)
	}
	return nil
}

// DefaultFieldValue returns the schema default for a declared field.
func (m *Model) DefaultFieldValue(ctx context.Context, t domain.TypeID, name string) (any, error) {
	field, err := m.fieldOf(t, name)
	if err != nil {
		return nil, err
	}
	return field.Default, nil
}

// FieldNames returns the type's declared field names in declaration order.
func (m *Model) FieldNames(ctx context.Context, t domain.TypeID) ([]string, error) {
	schema, err := m.schemaOf(t)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		names = append(names, f.Name)
	}
	return names, nil
}

// Relationships returns the type's descriptors in declaration order.
func (m *Model) Relationships(ctx context.Context, t domain.TypeID) ([]domain.Relationship, error) {
	schema, err := m.schemaOf(t)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Relationship, len(schema.Relationships))
	copy(out, schema.Relationships)
	return out, nil
}

// ReadOne returns the target of a to-one relationship, or nil if unset.
func (m *Model) ReadOne(ctx context.Context, entity any, name string) (any, error) {
	e, err := asEntity(entity)
	if err != nil {
		return nil, err
	}
	rd, err := m.descriptorOf(e.Type, name)
	if err != nil {
		return nil, err
	}
	if rd.Kind != domain.ToOne {
		return nil, fmt.Errorf("relationship %q on type %q is not to-one", name, e.Type)
	}

	ref, err := m.client.HGet(ctx, m.relKey(e), name).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read relationship from redis: %w", err)
	}

	target, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	return target, nil
}

// ReadMany returns the members of a to-many relationship, in list order.
func (m *Model) ReadMany(ctx context.Context, entity any, name string) ([]any, error) {
	e, err := asEntity(entity)
	if err != nil {
		return nil, err
	}
	rd, err := m.descriptorOf(e.Type, name)
	if err != nil {
		return nil, err
	}
	if rd.Kind != domain.ToMany {
		return nil, fmt.Errorf("relationship %q on type %q is not to-many", name, e.Type)
	}

	refs, err := m.client.LRange(ctx, m.listKey(e, name), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read collection from redis: %w", err)
	}

	out := make([]any, 0, len(refs))
	for _, ref := range refs {
		member, err := parseRef(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, nil
}

// WriteOne sets the target of a to-one relationship.
func (m *Model) WriteOne(ctx context.Context, entity any, name string, target any) error {
	e, err := asEntity(entity)
	if err != nil {
		return err
	}
	rd, err := m.descriptorOf(e.Type, name)
	if err != nil {
		return err
	}
	if rd.Kind != domain.ToOne {
		return fmt.Errorf("relationship %q on type %q is not to-one", name, e.Type)
	}

	if target == nil {
		if err := m.client.HDel(ctx, m.relKey(e), name).Err(); err != nil {
			return fmt.Errorf("failed to clear relationship in redis: %w", err)
		}
		return nil
	}

	targetEntity, err := asEntity(target)
	if err != nil {
		return err
	}
	if targetEntity.Type != rd.Target {
		return fmt.Errorf("relationship %q on type %q expects target type %q, got %q", name, e.Type, rd.Target, targetEntity.Type)
	}
	if err := m.client.HSet(ctx, m.relKey(e), name, targetEntity.Ref()).Err(); err != nil {
		return fmt.Errorf("failed to write relationship to redis: %w", err)
	}
	return nil
}

// WriteMany replaces the members of a to-many relationship.
func (m *Model) WriteMany(ctx context.Context, entity any, name string, targets []any) error {
	e, err := asEntity(entity)
	if err != nil {
		return err
	}
	rd, err := m.descriptorOf(e.Type, name)
	if err != nil {
		return err
	}
	if rd.Kind != domain.ToMany {
		return fmt.Errorf("relationship %q on type %q is not to-many", name, e.Type)
	}

	refs := make([]any, 0, len(targets))
	for _, target := range targets {
		targetEntity, err := asEntity(target)
		if err != nil {
			return err
		}
		if targetEntity.Type != rd.Target {
			return fmt.Errorf("relationship %q on type %q expects target type %q, got %q", name, e.Type, rd.Target, targetEntity.Type)
		}
		refs = append(refs, targetEntity.Ref())
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.listKey(e, name))
	if len(refs) > 0 {
		pipe.RPush(ctx, m.listKey(e, name), refs...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write collection to redis: %w", err)
	}
	return nil
}

// ShallowClone persists a new entity with a fresh identity and copied
// field values. Relationship keys start empty.
func (m *Model) ShallowClone(ctx context.Context, entity any) (any, error) {
	e, err := asEntity(entity)
	if err != nil {
		return nil, err
	}

	encoded, err := m.client.HGetAll(ctx, m.fieldsKey(e)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entity from redis: %w", err)
	}
	if len(encoded) == 0 {
		return nil, fmt.Errorf("%s %q: %w", e.Type, e.ID, domain.ErrEntityNotFound)
	}

	kopy := &Entity{Type: e.Type, ID: uuid.NewString()}
	if err := m.client.HSet(ctx, m.fieldsKey(kopy), encoded).Err(); err != nil {
		return nil, fmt.Errorf("failed to save clone to redis: %w", err)
	}
	return kopy, nil
}
