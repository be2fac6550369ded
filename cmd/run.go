package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/DomeenoH/MuMuAINovel/internal/backend"
	"github.com/DomeenoH/MuMuAINovel/internal/catalog"
	"github.com/DomeenoH/MuMuAINovel/internal/config"
	"github.com/DomeenoH/MuMuAINovel/internal/handoff"
	"github.com/DomeenoH/MuMuAINovel/internal/log"
	"github.com/DomeenoH/MuMuAINovel/internal/wizard"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

var (
	runFile          string
	runModel         string
	runCreateProject bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-id>",
	Short: "Run a workflow interactively in the terminal",
	Long: `Run walks through a workflow step by step. Form fields and template
variables are read one line each; an empty line keeps the shown value.
At any prompt, :back returns to the previous step and :skip skips an
optional one. While choosing a template, :retry reloads the list; while
filling variables, :change picks another template.

Examples:
  mumu run tishen
  mumu run fanfic-generator --create-project
  mumu run my-flow --file my-workflows.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		defs, err := loadDefinitions(runFile)
		if err != nil {
			return err
		}
		def := workflow.Find(defs, args[0])
		if def == nil {
			return fmt.Errorf("workflow %q not found", args[0])
		}

		cat, closeCatalog, err := catalog.FromConfig(cfg)
		if err != nil {
			return err
		}
		defer closeCatalog()

		registry, err := backend.FromConfig(cfg)
		if err != nil {
			return err
		}
		defer registry.Close()
		llm, err := registry.MustLLM("")
		if err != nil {
			return err
		}

		var h handoff.Handoff = handoff.LogHandoff{Logger: log.WithModule("handoff")}
		if runCreateProject {
			h = handoff.NewHTTPHandoff(cfg.API.BaseURL, cfg.API.Timeout)
		}

		out := cmd.OutOrStdout()
		e, err := wizard.New(def, cat, llm,
			wizard.WithHandoff(h),
			wizard.WithModel(runModel),
			wizard.WithGeneration(cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature),
			wizard.WithChunkHandler(func(chunk string) { fmt.Fprint(out, chunk) }),
		)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintf(out, "🚀 %s: %d steps, backend %s\n", def.Name, def.Len(), llm.Name())
		d := newDriver(e, cmd.InOrStdin(), out)
		if err := d.run(ctx); err != nil {
			return err
		}
		d.summary()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "workflow YAML file (default: built-in workflows)")
	runCmd.Flags().StringVar(&runModel, "model", "", "model override for AI steps")
	runCmd.Flags().BoolVar(&runCreateProject, "create-project", false, "create a MuMu project when the workflow finishes")
}
