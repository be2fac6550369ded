package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DomeenoH/MuMuAINovel/internal/catalog"
	"github.com/DomeenoH/MuMuAINovel/internal/config"
)

var (
	importDB     string
	listCategory string
	listKeywords []string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and maintain the prompt template catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import markdown templates from a directory into the SQLite catalog",
	Long: `Import reads every .md file below dir and upserts it into the SQLite
catalog. Front matter (id, name, description, category, tags) is honored;
otherwise the file stem is the id, the first "# " heading the name and the
parent directory the category.

Examples:
  mumu catalog import ./templates
  mumu catalog import ./templates --db ./data/mumu.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("templates directory: %w", err)
		}

		items, err := catalog.NewFSSource(os.DirFS(dir)).List(cmd.Context())
		if err != nil {
			return err
		}

		db := importDB
		if db == "" {
			db = config.Get().Catalog.DBPath
		}
		store, err := catalog.OpenSQLite(db)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Upsert(cmd.Context(), items...)
		if err != nil {
			return err
		}
		total, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Imported %d templates into %s (%d total)\n", n, db, total)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates from the configured catalog source",
	Long: `List prints the templates a prompt step would be offered. With
--category (and optionally --keyword) the same matching a workflow step uses
is applied; without, every template is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, closeFn, err := catalog.FromConfig(config.Get())
		if err != nil {
			return err
		}
		defer closeFn()

		var items []catalog.TemplateItem
		if listCategory == "" {
			items, err = cat.Items(cmd.Context())
		} else {
			items, err = cat.Find(cmd.Context(), catalog.Query{Category: listCategory, Keywords: listKeywords})
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, it := range items {
			fmt.Fprintf(out, "%-24s %-16s %s\n", it.ID, it.Category, it.Name)
		}
		fmt.Fprintf(out, "%d templates\n", len(items))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)
	catalogImportCmd.Flags().StringVar(&importDB, "db", "", "SQLite database path (default from config)")
	catalogListCmd.Flags().StringVar(&listCategory, "category", "", "only templates matching this category")
	catalogListCmd.Flags().StringSliceVar(&listKeywords, "keyword", nil, "keywords narrowing a large category")
}
