package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/graft/internal/dto"
	"github.com/aretw0/graft/pkg/adapters/memory"
	"github.com/aretw0/graft/pkg/registry"
)

// loadDocument reads the graph document named by --file and materializes
// it into a memory model with its own policy registry.
func loadDocument(cmd *cobra.Command) (*dto.Document, *memory.Model, map[string]*memory.Record, *registry.Policy, error) {
	path, _ := cmd.Flags().GetString("file")

	doc, err := dto.LoadFile(path)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	policy := registry.NewPolicy()
	model, records, err := dto.Build(doc, policy)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to build graph from %s: %w", path, err)
	}
	return doc, model, records, policy, nil
}

// parseYAMLFlag decodes a flag value like "parrot" or "[mateys, {parrot: toys}]"
// into the raw shape the spec parser accepts.
func parseYAMLFlag(value string) (any, error) {
	if value == "" {
		return nil, nil
	}
	var raw any
	if err := yaml.Unmarshal([]byte(value), &raw); err != nil {
		return nil, fmt.Errorf("invalid spec %q: %w", value, err)
	}
	return raw, nil
}
