package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft/internal/presentation/graph"
	"github.com/aretw0/graft/internal/presentation/tui"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render a document's entity graph as a Mermaid diagram",
	Run: func(cmd *cobra.Command, args []string) {
		doc, model, records, _, err := loadDocument(cmd)
		if err != nil {
			fmt.Printf("Error loading document: %v\n", err)
			os.Exit(1)
		}

		rootKey, _ := cmd.Flags().GetString("root")
		if rootKey == "" && doc.Clone != nil {
			rootKey = doc.Clone.Root
		}
		root, ok := records[rootKey]
		if !ok {
			fmt.Printf("Error: unknown root entity %q\n", rootKey)
			os.Exit(1)
		}

		out, err := graph.GenerateMermaid(context.Background(), model, root, nil)
		if err != nil {
			fmt.Printf("Error rendering graph: %v\n", err)
			os.Exit(1)
		}

		if pretty, _ := cmd.Flags().GetBool("render"); pretty {
			tui.PrintBanner()
			render := tui.NewRenderer()
			styled, err := render("```mermaid\n" + out + "```\n")
			if err != nil {
				// Fall back to the raw diagram on render failure.
				fmt.Print(out)
				return
			}
			fmt.Print(styled)
			return
		}
		fmt.Print(out)
	},
}

func init() {
	graphCmd.Flags().String("root", "", "Entity key to start the walk from (defaults to the document's clone root)")
	graphCmd.Flags().Bool("render", false, "Render the diagram with terminal styling")
	rootCmd.AddCommand(graphCmd)
}
