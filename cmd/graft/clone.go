package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/internal/dto"
	"github.com/aretw0/graft/internal/presentation/graph"
)

// cloneCmd represents the clone command
var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Clone an entity graph from a document",
	Long:  `Loads a graph document, runs the clone request (from the document or from flags), and prints the cloned subgraph.`,
	Run: func(cmd *cobra.Command, args []string) {
		doc, model, records, policy, err := loadDocument(cmd)
		if err != nil {
			fmt.Printf("Error loading document: %v\n", err)
			os.Exit(1)
		}

		// Flags override the document's clone request.
		req := doc.Clone
		if req == nil {
			req = &dto.CloneDecl{}
		}
		if rootKey, _ := cmd.Flags().GetString("root"); rootKey != "" {
			req.Root = rootKey
		}
		if includeFlag, _ := cmd.Flags().GetString("include"); includeFlag != "" {
			raw, err := parseYAMLFlag(includeFlag)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			req.Include = raw
		}
		if exceptFlag, _ := cmd.Flags().GetString("except"); exceptFlag != "" {
			raw, err := parseYAMLFlag(exceptFlag)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			req.Except = raw
		}
		if useDict, _ := cmd.Flags().GetBool("use-dictionary"); useDict {
			req.UseDictionary = true
		}

		root, ok := records[req.Root]
		if !ok {
			fmt.Printf("Error: unknown root entity %q\n", req.Root)
			os.Exit(1)
		}

		opts, err := graft.OptionsFromMap(map[string]any{
			"include":        req.Include,
			"except":         req.Except,
			"use_dictionary": req.UseDictionary,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		cloner := graft.New(model, graft.WithPolicy(policy))
		cloned, err := cloner.Clone(ctx, root, opts...)
		if err != nil {
			fmt.Printf("Clone failed: %v\n", err)
			os.Exit(1)
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "mermaid":
			out, err := graph.GenerateMermaid(ctx, model, cloned, &graph.Overlay{
				RootID: model.IdentityOf(cloned),
			})
			if err != nil {
				fmt.Printf("Error rendering graph: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(out)
		default:
			snap, err := dto.Snapshot(ctx, model, cloned)
			if err != nil {
				fmt.Printf("Error serializing clone: %v\n", err)
				os.Exit(1)
			}
			out, err := yaml.Marshal(snap)
			if err != nil {
				fmt.Printf("Error encoding clone: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(out))
		}
	},
}

func init() {
	cloneCmd.Flags().String("root", "", "Root entity key (overrides the document's clone request)")
	cloneCmd.Flags().String("include", "", "Include spec as YAML (e.g. '[mateys, {parrot: toys}]')")
	cloneCmd.Flags().String("except", "", "Except spec as YAML (e.g. '[rank, {parrot: [name]}]')")
	cloneCmd.Flags().Bool("use-dictionary", false, "Memoize clones within this invocation")
	cloneCmd.Flags().String("format", "yaml", "Output format: yaml or mermaid")
	rootCmd.AddCommand(cloneCmd)
}
