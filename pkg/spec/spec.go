package spec

import (
	"fmt"
	"sort"
)

// Spec is the canonical form of a traversal specification: an ordered set
// of relationships to follow, plus the field exceptions to apply at this
// level and carry into children.
type Spec struct {
	Include []Include
	Except  Exceptions
}

// Include pairs a relationship name with an optional nested spec governing
// the traversal below it.
type Include struct {
	Name   string
	Nested *Spec
}

// Exceptions holds the fields to reset on the current entity and the
// per-relationship exception tables that become each child's own
// Exceptions. Nested rules flow exactly one level per recursion.
type Exceptions struct {
	Fields []string
	ByRel  map[string]Exceptions
}

// Empty reports whether there is nothing to apply at this level or below.
func (e Exceptions) Empty() bool {
	return len(e.Fields) == 0 && len(e.ByRel) == 0
}

// For returns the exception table carried into the named relationship's
// child spec.
func (e Exceptions) For(rel string) Exceptions {
	return e.ByRel[rel]
}

// Merged returns the union of two exception tables without mutating
// either operand.
func (e Exceptions) Merged(other Exceptions) Exceptions {
	out := mergeExceptions(Exceptions{}, e)
	return mergeExceptions(out, other)
}

// Normalize converts raw include/except values into the canonical Spec.
//
// Accepted include shapes: nil, a bare relationship name, a sequence mixing
// names and single-entry maps, or a map of relationship name to nested
// value. A map value may itself be an explicit sub-spec using the reserved
// keys "include" and "except". Map entries are ordered by name so
// normalization is deterministic.
//
// Accepted except shapes: nil, a bare field name, or a sequence mixing
// field names and maps keyed by relationship name (whose values are
// normalized recursively).
func Normalize(include, except any) (*Spec, error) {
	inc, err := normalizeInclude(include)
	if err != nil {
		return nil, err
	}
	exc, err := normalizeExcept(except)
	if err != nil {
		return nil, err
	}
	return &Spec{Include: inc, Except: exc}, nil
}

// Augmented returns the include list with the type-level always-included
// names appended as bare entries. Names already present are not duplicated
// and never double-traverse.
func (s *Spec) Augmented(always []string) []Include {
	out := make([]Include, len(s.Include), len(s.Include)+len(always))
	copy(out, s.Include)
	seen := make(map[string]bool, len(out))
	for _, inc := range out {
		seen[inc.Name] = true
	}
	for _, name := range always {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Include{Name: name})
	}
	return out
}

func normalizeInclude(raw any) ([]Include, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []Include{{Name: v}}, nil
	case []string:
		var out []Include
		for _, name := range v {
			out = appendInclude(out, Include{Name: name})
		}
		return out, nil
	case []any:
		var out []Include
		for _, item := range v {
			entries, err := normalizeInclude(item)
			if err != nil {
				return nil, err
			}
			for _, inc := range entries {
				out = appendInclude(out, inc)
			}
		}
		return out, nil
	case map[string]any:
		var out []Include
		for _, name := range sortedKeys(v) {
			nested, err := normalizeNested(v[name])
			if err != nil {
				return nil, fmt.Errorf("relationship %q: %w", name, err)
			}
			out = appendInclude(out, Include{Name: name, Nested: nested})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported include shape %T", raw)
	}
}

// normalizeNested handles the value side of a map entry. An explicit
// sub-spec ({include: ..., except: ...}) is lifted as-is; any other shape
// is treated as that child's include value.
func normalizeNested(raw any) (*Spec, error) {
	if raw == nil {
		return nil, nil
	}
	if m, ok := raw.(map[string]any); ok && isExplicitSpec(m) {
		return Normalize(m["include"], m["except"])
	}
	return Normalize(raw, nil)
}

func isExplicitSpec(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for key := range m {
		if key != "include" && key != "except" {
			return false
		}
	}
	return true
}

func normalizeExcept(raw any) (Exceptions, error) {
	switch v := raw.(type) {
	case nil:
		return Exceptions{}, nil
	case string:
		return Exceptions{Fields: []string{v}}, nil
	case []string:
		out := Exceptions{}
		for _, f := range v {
			out.Fields = appendField(out.Fields, f)
		}
		return out, nil
	case []any:
		out := Exceptions{}
		for _, item := range v {
			sub, err := normalizeExcept(item)
			if err != nil {
				return Exceptions{}, err
			}
			out = mergeExceptions(out, sub)
		}
		return out, nil
	case map[string]any:
		out := Exceptions{}
		for _, rel := range sortedKeys(v) {
			sub, err := normalizeExcept(v[rel])
			if err != nil {
				return Exceptions{}, fmt.Errorf("relationship %q: %w", rel, err)
			}
			if out.ByRel == nil {
				out.ByRel = make(map[string]Exceptions)
			}
			out.ByRel[rel] = mergeExceptions(out.ByRel[rel], sub)
		}
		return out, nil
	default:
		return Exceptions{}, fmt.Errorf("unsupported except shape %T", raw)
	}
}

func mergeExceptions(dst, src Exceptions) Exceptions {
	for _, f := range src.Fields {
		dst.Fields = appendField(dst.Fields, f)
	}
	for rel, sub := range src.ByRel {
		if dst.ByRel == nil {
			dst.ByRel = make(map[string]Exceptions)
		}
		dst.ByRel[rel] = mergeExceptions(dst.ByRel[rel], sub)
	}
	return dst
}

func appendInclude(list []Include, inc Include) []Include {
	for _, existing := range list {
		if existing.Name == inc.Name {
			// First occurrence wins; duplicates never double-traverse.
			return list
		}
	}
	return append(list, inc)
}

func appendField(list []string, field string) []string {
	for _, existing := range list {
		if existing == field {
			return list
		}
	}
	return append(list, field)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys
}
