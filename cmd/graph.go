/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the stages and routing of the builder pipeline",
	Long: `Graph prints the pipeline's nodes and edges without contacting any model.

Formats:
  text  one line per edge, conditional edges marked
  yaml  machine-readable stages and edges`,
	Args: cobra.NoArgs,
	// Describing the graph needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return pipeline.WriteDescription(cmd.OutOrStdout(), format)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", pipeline.FormatText, "output format: text or yaml")
}
