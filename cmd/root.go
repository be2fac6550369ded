package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/DomeenoH/MuMuAINovel/internal/config"
	"github.com/DomeenoH/MuMuAINovel/internal/log"
	"github.com/DomeenoH/MuMuAINovel/internal/tracing"
)

var (
	cfgFile  string
	logLevel string

	shutdownTracing func(context.Context) error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mumu",
	Short: "Guided AI writing workflows for MuMu novels",
	Long: `mumu walks through creative writing workflows one step at a time.

Each step either collects input through a form or runs an AI call over a
prompt template chosen from the template catalog. Results flow into a
shared context that later steps reuse, and a finished workflow creates a
project in MuMu.

Examples:
  mumu workflows
  mumu run tishen
  mumu slots templates/theme.md --format json
  mumu catalog import ./templates --db mumu.db`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		cfg := config.Get()
		cfg.WithLogging(logLevel, "")
		log.Setup(cfg.Log.Level, cfg.Log.Format)

		shutdown, err := tracing.Setup(cmd.Context(), cfg.Tracing.Enabled, cfg.Tracing.ServiceName)
		if err != nil {
			return err
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTracing == nil {
			return nil
		}
		return shutdownTracing(context.Background())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./mumu.yaml or $HOME/.mumu/mumu.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
