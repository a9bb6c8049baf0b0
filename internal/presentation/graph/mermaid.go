package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Overlay contains clone-session data to visualize on the graph.
type Overlay struct {
	// ClonedIDs are identities produced by a clone invocation; they get the
	// "cloned" style so originals and clones are distinguishable side by side.
	ClonedIDs []string
	RootID    string
}

// GenerateMermaid walks an entity graph through the model and produces a
// Mermaid flowchart (graph TD). Node shapes carry semantics:
// - Root entity: ((Circle))
// - Other entities: [Rectangle]
// Edges are labeled with the relationship name; to-many edges use thick
// arrows, to-one edges plain ones. Shared nodes and cycles render once.
func GenerateMermaid(ctx context.Context, model ports.EntityModel, root any, overlay *Overlay) (string, error) {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	visited := make(map[domain.Ref]bool)
	if err := walk(ctx, model, root, true, visited, &sb); err != nil {
		return "", err
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef cloned fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef root fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.ClonedIDs {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s cloned;\n", safeID))
			}
		}
		if overlay.RootID != "" {
			sb.WriteString(fmt.Sprintf("    class %s root;\n", sanitizeMermaidID(overlay.RootID)))
		}
	}

	return sb.String(), nil
}

func walk(ctx context.Context, model ports.EntityModel, entity any, isRoot bool, visited map[domain.Ref]bool, sb *strings.Builder) error {
	t := model.TypeOf(entity)
	id := model.IdentityOf(entity)

	key := domain.Ref{Type: t, Identity: id}
	if visited[key] {
		return nil
	}
	visited[key] = true

	safeID := sanitizeMermaidID(id)

	// Node shape: the root gets a circle, everything else a rectangle.
	opener, closer := "[", "]"
	if isRoot {
		opener, closer = "((", "))"
	}
	sb.WriteString(fmt.Sprintf("    %s%s\"%s<br/>%s\"%s\n", safeID, opener, t, shortID(id), closer))

	descriptors, err := model.Relationships(ctx, t)
	if err != nil {
		return err
	}
	for _, rd := range descriptors {
		switch rd.Kind {
		case domain.ToOne:
			target, err := model.ReadOne(ctx, entity, rd.Name)
			if err != nil {
				return err
			}
			if target == nil {
				continue
			}
			safeTo := sanitizeMermaidID(model.IdentityOf(target))
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, rd.Name, safeTo))
			if err := walk(ctx, model, target, false, visited, sb); err != nil {
				return err
			}
		case domain.ToMany:
			members, err := model.ReadMany(ctx, entity, rd.Name)
			if err != nil {
				return err
			}
			for _, member := range members {
				safeTo := sanitizeMermaidID(model.IdentityOf(member))
				sb.WriteString(fmt.Sprintf("    %s == \"%s\" ==> %s\n", safeID, rd.Name, safeTo))
				if err := walk(ctx, model, member, false, visited, sb); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
