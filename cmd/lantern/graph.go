package main

import (
	"fmt"

	"github.com/aretw0/lantern/internal/presentation/graph"
	"github.com/aretw0/lantern/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <experience-id>",
	Short: "Export an experience as a Mermaid diagram",
	Long:  `Loads an experience from the experiences directory and prints a Mermaid flowchart (graph TD) of its groups, steps and jumps.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		exp, err := file.NewLoader(cfg.ExperiencesDir).Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(exp, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
