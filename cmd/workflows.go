package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DomeenoH/MuMuAINovel/internal/config"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

var workflowsFile string

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List the available workflows and their steps",
	Long: `List the built-in workflows, or the ones defined in a YAML file.

Examples:
  mumu workflows
  mumu workflows --file my-workflows.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loadDefinitions(workflowsFile)
		if err != nil {
			return err
		}
		printDefinitions(cmd.OutOrStdout(), defs)
		return nil
	},
}

// loadDefinitions reads workflows from file, falling back to the configured
// file and then to the built-in set.
func loadDefinitions(file string) ([]*workflow.Definition, error) {
	if file == "" {
		file = config.Get().Workflows.File
	}
	if file == "" {
		return workflow.Builtin()
	}

	defs, err := workflow.LoadWorkflows(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflows: %w", err)
	}
	if err := workflow.ValidateAll(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func printDefinitions(w io.Writer, defs []*workflow.Definition) {
	for _, d := range defs {
		fmt.Fprintf(w, "📋 %s (%s)\n", d.Name, d.ID)
		if d.Description != "" {
			fmt.Fprintf(w, "   %s\n", d.Description)
		}
		for i, s := range d.Steps {
			h := s.Header()
			marker := ""
			if h.Optional {
				marker = " [optional]"
			}
			fmt.Fprintf(w, "   %2d. %-6s %s%s\n", i+1, s.Kind(), h.Name, marker)
		}
	}
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.Flags().StringVarP(&workflowsFile, "file", "f", "", "workflow YAML file (default: built-in workflows)")
}
