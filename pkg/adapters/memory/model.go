package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Field declares one field of a type schema, with its schema default.
// The default is what an excepted field resets to during cloning.
type Field struct {
	Name    string
	Default any
}

// Schema declares an entity type: its fields and relationship descriptors.
type Schema struct {
	Type          domain.TypeID
	Fields        []Field
	Relationships []domain.Relationship
}

// Model implements ports.EntityModel over in-memory records.
// Schema registration is safe for concurrent use; individual record graphs
// are not, matching the single-invocation contract of the cloner.
type Model struct {
	mu      sync.RWMutex
	schemas map[domain.TypeID]*Schema
}

// Ensure Model implements the port.
var _ ports.EntityModel = (*Model)(nil)

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		schemas: make(map[domain.TypeID]*Schema),
	}
}

// Register declares a type schema.
// If a schema with the same type exists, it is overwritten.
func (m *Model) Register(s Schema) error {
	if s.Type == "" {
		return fmt.Errorf("schema missing type")
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

// Record is an in-memory entity: a type tag, a generated identity, field
// values, and its relationship targets.
type Record struct {
	typeID domain.TypeID
	id     string
	fields map[string]any
	one    map[string]*Record
	many   map[string][]*Record
}

// Type returns the record's type identity.
func (r *Record) Type() domain.TypeID { return r.typeID }

// ID returns the record's identity, unique within its type.
func (r *Record) ID() string { return r.id }

// Field returns the current value of a field, or nil if unset.
func (r *Record) Field(name string) any { return r.fields[name] }

// One returns the current target of a to-one relationship, or nil.
func (r *Record) One(name string) *Record { return r.one[name] }

// Many returns the current members of a to-many relationship, in order.
func (r *Record) Many(name string) []*Record { return r.many[name] }

// NewRecord creates a record of a registered type. Missing declared fields
// take their schema defaults; undeclared field keys are rejected.
func (m *Model) NewRecord(t domain.TypeID, fields map[string]any) (*Record, error) {
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

	return &Record{
		typeID: t,
		id:     uuid.NewString(),
		fields: values,
		one:    make(map[string]*Record),
		many:   make(map[string][]*Record),
	}, nil
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

func asRecord(entity any) (*Record, error) {
	rec, ok := entity.(*Record)
	if !ok || rec == nil {
		return nil, fmt.Errorf("expected *memory.Record, got %T", entity)
	}
	return rec, nil
}

// TypeOf returns the type identity of an entity.
func (m *Model) TypeOf(entity any) domain.TypeID {
	if rec, ok := entity.(*Record); ok {
		return rec.typeID
	}
	return ""
}

// IdentityOf returns the entity's generated identity.
func (m *Model) IdentityOf(entity any) string {
	if rec, ok := entity.(*Record); ok {
		return rec.id
	}
	return ""
}

// ReadField returns the current value of a declared field.
func (m *Model) ReadField(ctx context.Context, entity any, name string) (any, error) {
	rec, err := asRecord(entity)
	if err != nil {
		return nil, err
	}
	if _, err := m.fieldOf(rec.typeID, name); err != nil {
		return nil, err
	}
	return rec.fields[name], nil
}

// WriteField sets a declared field.
func (m *Model) WriteField(ctx context.Context, entity any, name string, value any) error {
	rec, err := asRecord(entity)
	if err != nil {
		return err
	}
	if _, err := m.fieldOf(rec.typeID, name); err != nil {
		return err
	}
	rec.fields[name] = value
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

// ReadOne returns the target of a to-one relationship, or nil if unset.
func (m *Model) ReadOne(ctx context.Context, entity any, name string) (any, error) {
	rec, err := asRecord(entity)
	if err != nil {
		return nil, err
	}
	rd, err := m.descriptorOf(rec.typeID, name)
	if err != nil {
		return nil, err
	}
	if rd.Kind != domain.ToOne {
		return nil, fmt.Errorf("relationship %q on type %q is not to-one", name, rec.typeID)
	}

	target := rec.one[name]
	if target == nil {
		return nil, nil
	}
	return target, nil
}

// ReadMany returns the members of a to-many relationship, in order.
func (m *Model) ReadMany(ctx context.Context, entity any, name string) ([]any, error) {
	rec, err := asRecord(entity)
	if err != nil {
		return nil, err
	}
	rd, err := m.descriptorOf(rec.typeID, name)
	if err != nil {
		return nil, err
	}
	if rd.Kind != domain.ToMany {
		return nil, fmt.Errorf("relationship %q on type %q is not to-many", name, rec.typeID)
	}

	members := rec.many[name]
	out := make([]any, len(members))
	for i, member := range members {
		out[i] = member
	}
	return out, nil
}

// WriteOne sets the target of a to-one relationship.
func (m *Model) WriteOne(ctx context.Context, entity any, name string, target any) error {
	rec, err := asRecord(entity)
	if err != nil {
		return err
	}
	rd, err := m.descriptorOf(rec.typeID, name)
	if err != nil {
		return err
	}
	if rd.Kind != domain.ToOne {
		return fmt.Errorf("relationship %q on type %q is not to-one", name, rec.typeID)
	}

	if target == nil {
		delete(rec.one, name)
		return nil
	}
	targetRec, err := asRecord(target)
	if err != nil {
		return err
	}
	if targetRec.typeID != rd.Target {
		return fmt.Errorf("relationship %q on type %q expects target type %q, got %q", name, rec.typeID, rd.Target, targetRec.typeID)
	}
	rec.one[name] = targetRec
	return nil
}

// WriteMany replaces the members of a to-many relationship.
func (m *Model) WriteMany(ctx context.Context, entity any, name string, targets []any) error {
	rec, err := asRecord(entity)
	if err != nil {
		return err
	}
	rd, err := m.descriptorOf(rec.typeID, name)
	if err != nil {
		return err
	}
	if rd.Kind != domain.ToMany {
		return fmt.Errorf("relationship %q on type %q is not to-many", name, rec.typeID)
	}

	members := make([]*Record, len(targets))
	for i, target := range targets {
		targetRec, err := asRecord(target)
		if err != nil {
			return err
		}
		if targetRec.typeID != rd.Target {
			return fmt.Errorf("relationship %q on type %q expects target type %q, got %q", name, rec.typeID, rd.Target, targetRec.typeID)
		}
		members[i] = targetRec
	}
	rec.many[name] = members
	return nil
}

// ShallowClone produces a new record with a fresh identity and copied
// fields. Relationships start empty.
func (m *Model) ShallowClone(ctx context.Context, entity any) (any, error) {
	rec, err := asRecord(entity)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(rec.fields))
	for k, v := range rec.fields {
		fields[k] = v
	}

	return &Record{
		typeID: rec.typeID,
		id:     uuid.NewString(),
		fields: fields,
		one:    make(map[string]*Record),
		many:   make(map[string][]*Record),
	}, nil
}
