package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graft",
	Short: "Graft is a deep-clone engine for entity graphs",
	Long:  `Graft clones an entity graph from a root entity, following a declarative traversal spec that says which relationships to follow and which fields to reset.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("file", "f", "graph.yaml", "Graph document describing types, entities and the clone request")
}
