package dto

import (
	"context"
	"fmt"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// FieldLister is an optional adapter capability: enumerating the declared
// field names of a type. Both bundled adapters implement it; Snapshot
// needs it to render entities without knowing their concrete shape.
type FieldLister interface {
	FieldNames(ctx context.Context, t domain.TypeID) ([]string, error)
}

// Snapshot walks an entity graph through the model and returns a nested
// map suitable for YAML/JSON output. An entity reached a second time
// (shared node or cycle) renders as a {"$ref": identity} stub.
func Snapshot(ctx context.Context, model ports.EntityModel, entity any) (map[string]any, error) {
	lister, ok := model.(FieldLister)
	if !ok {
		return nil, fmt.Errorf("model %T does not support field enumeration", model)
	}
	return snapshot(ctx, model, lister, entity, make(map[domain.Ref]bool))
}

func snapshot(ctx context.Context, model ports.EntityModel, lister FieldLister, entity any, visited map[domain.Ref]bool) (map[string]any, error) {
	t := model.TypeOf(entity)
	id := model.IdentityOf(entity)

	key := domain.Ref{Type: t, Identity: id}
	if visited[key] {
		return map[string]any{"$ref": id}, nil
	}
	visited[key] = true

	out := map[string]any{
		"type":     string(t),
		"identity": id,
	}

	names, err := lister.FieldNames(ctx, t)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(names))
	for _, name := range names {
		value, err := model.ReadField(ctx, entity, name)
		if err != nil {
			return nil, err
		}
		fields[name] = value
	}
	if len(fields) > 0 {
		out["fields"] = fields
	}

	descriptors, err := model.Relationships(ctx, t)
	if err != nil {
		return nil, err
	}
	for _, rd := range descriptors {
		switch rd.Kind {
		case domain.ToOne:
			target, err := model.ReadOne(ctx, entity, rd.Name)
			if err != nil {
				return nil, err
			}
			if target == nil {
				continue
			}
			node, err := snapshot(ctx, model, lister, target, visited)
			if err != nil {
				return nil, err
			}
			out[rd.Name] = node
		case domain.ToMany:
			members, err := model.ReadMany(ctx, entity, rd.Name)
			if err != nil {
				return nil, err
			}
			if len(members) == 0 {
				continue
			}
			nodes := make([]any, 0, len(members))
			for _, member := range members {
				node, err := snapshot(ctx, model, lister, member, visited)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, node)
			}
			out[rd.Name] = nodes
		}
	}

	return out, nil
}
