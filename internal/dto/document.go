// Package dto defines the YAML document format hosts use to describe an
// entity graph and a clone request, and builds a memory model from it.
package dto

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/graft/pkg/adapters/memory"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/registry"
)

// FieldDecl declares one field of a type, with its schema default.
type FieldDecl struct {
	Name    string `yaml:"name" json:"name"`
	Default any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// TypeDecl declares one entity type.
type TypeDecl struct {
	Type          string                `yaml:"type" json:"type"`
	Fields        []FieldDecl           `yaml:"fields,omitempty" json:"fields,omitempty"`
	Relationships []domain.Relationship `yaml:"relationships,omitempty" json:"relationships,omitempty"`
}

// EntityDecl declares one entity row. Key is a document-local handle used
// to wire relationships; it is not the entity's identity.
type EntityDecl struct {
	Key    string              `yaml:"key" json:"key"`
	Type   string              `yaml:"type" json:"type"`
	Fields map[string]any      `yaml:"fields,omitempty" json:"fields,omitempty"`
	One    map[string]string   `yaml:"one,omitempty" json:"one,omitempty"`
	Many   map[string][]string `yaml:"many,omitempty" json:"many,omitempty"`
}

// CloneDecl is the clone request carried by a document.
type CloneDecl struct {
	Root          string `yaml:"root" json:"root"`
	Include       any    `yaml:"include,omitempty" json:"include,omitempty"`
	Except        any    `yaml:"except,omitempty" json:"except,omitempty"`
	UseDictionary bool   `yaml:"use_dictionary,omitempty" json:"use_dictionary,omitempty"`
}

// Document is a complete graph description: type schemas, entity rows,
// optional always-include policy, and an optional clone request.
type Document struct {
	Types         []TypeDecl          `yaml:"types" json:"types"`
	Entities      []EntityDecl        `yaml:"entities" json:"entities"`
	AlwaysInclude map[string][]string `yaml:"always_include,omitempty" json:"always_include,omitempty"`
	Clone         *CloneDecl          `yaml:"clone,omitempty" json:"clone,omitempty"`
}

// Load decodes a document from a reader.
func Load(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse graph document: %w", err)
	}
	if len(doc.Types) == 0 {
		return nil, fmt.Errorf("graph document declares no types")
	}
	return &doc, nil
}

// LoadFile decodes a document from a file path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph document: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Build materializes the document into a memory model: registers schemas,
// creates records, wires relationships, and fills the policy with the
// document's always-include declarations. The returned map is keyed by the
// document-local entity keys.
func Build(doc *Document, policy *registry.Policy) (*memory.Model, map[string]*memory.Record, error) {
	model := memory.NewModel()

	for _, td := range doc.Types {
		fields := make([]memory.Field, 0, len(td.Fields))
		for _, fd := range td.Fields {
			fields = append(fields, memory.Field{Name: fd.Name, Default: fd.Default})
		}
		err := model.Register(memory.Schema{
			Type:          domain.TypeID(td.Type),
			Fields:        fields,
			Relationships: td.Relationships,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	records := make(map[string]*memory.Record, len(doc.Entities))
	for _, ed := range doc.Entities {
		if ed.Key == "" {
			return nil, nil, fmt.Errorf("entity of type %q missing key", ed.Type)
		}
		if _, exists := records[ed.Key]; exists {
			return nil, nil, fmt.Errorf("duplicate entity key %q", ed.Key)
		}
		rec, err := model.NewRecord(domain.TypeID(ed.Type), ed.Fields)
		if err != nil {
			return nil, nil, fmt.Errorf("entity %q: %w", ed.Key, err)
		}
		records[ed.Key] = rec
	}

	// Wiring happens after all records exist so forward references work.
	ctx := context.Background()
	for _, ed := range doc.Entities {
		rec := records[ed.Key]
		for rel, targetKey := range ed.One {
			target, ok := records[targetKey]
			if !ok {
				return nil, nil, fmt.Errorf("entity %q: relationship %q references unknown key %q", ed.Key, rel, targetKey)
			}
			if err := model.WriteOne(ctx, rec, rel, target); err != nil {
				return nil, nil, fmt.Errorf("entity %q: %w", ed.Key, err)
			}
		}
		for rel, targetKeys := range ed.Many {
			members := make([]any, 0, len(targetKeys))
			for _, targetKey := range targetKeys {
				target, ok := records[targetKey]
				if !ok {
					return nil, nil, fmt.Errorf("entity %q: relationship %q references unknown key %q", ed.Key, rel, targetKey)
				}
				members = append(members, target)
			}
			if err := model.WriteMany(ctx, rec, rel, members); err != nil {
				return nil, nil, fmt.Errorf("entity %q: %w", ed.Key, err)
			}
		}
	}

	if policy != nil {
		for typeName, rels := range doc.AlwaysInclude {
			policy.Declare(domain.TypeID(typeName), rels...)
		}
	}

	return model, records, nil
}
