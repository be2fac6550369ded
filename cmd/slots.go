package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/DomeenoH/MuMuAINovel/internal/prompt"
)

var slotsFormat string

type slotsReport struct {
	Slots        prompt.Slots      `json:"slots" yaml:"slots"`
	Variables    []prompt.Variable `json:"variables" yaml:"variables"`
	Placeholders []string          `json:"placeholders" yaml:"placeholders"`
	Sections     prompt.Sections   `json:"sections" yaml:"sections"`
}

var slotsCmd = &cobra.Command{
	Use:   "slots <template.md>",
	Short: "Show the slots and sections parsed from a prompt template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return writeSlotsReport(cmd.OutOrStdout(), string(data), slotsFormat)
	},
}

func writeSlotsReport(w io.Writer, text, format string) error {
	report := slotsReport{
		Slots:        prompt.ParseSlots(text),
		Variables:    prompt.ParseVariables(text),
		Placeholders: prompt.Placeholders(text),
		Sections:     prompt.ExtractSections(text),
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(report)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

func init() {
	rootCmd.AddCommand(slotsCmd)
	slotsCmd.Flags().StringVar(&slotsFormat, "format", "yaml", "output format: yaml or json")
}
