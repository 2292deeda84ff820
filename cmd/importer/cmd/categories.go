package cmd

import (
	"fmt"
	"os"
	"strings"

	"golang-statement-import-service/cmd/importer/config"
	"golang-statement-import-service/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var categoriesStorePath string

// categoriesCmd groups category management subcommands
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage spending categories and their matching rules",
}

// categoriesImportCmd imports category rules from a CSV mapping file
var categoriesImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import category rules from a CSV mapping file",
	Long: `Import reads a CSV file mapping transaction descriptions to category
names and merges the rules into the store's category list. Unknown
category names create new categories.

The file needs a description column and a category column; header names
are matched loosely, falling back to the first two columns.

Example:
  importer categories import rules.csv --store ledger.db`,

	Args: cobra.ExactArgs(1),
	RunE: runCategoriesImport,
}

// categoriesListCmd prints the configured categories
var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured categories and their rules",
	Args:  cobra.NoArgs,
	RunE:  runCategoriesList,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.AddCommand(categoriesImportCmd)
	categoriesCmd.AddCommand(categoriesListCmd)

	categoriesCmd.PersistentFlags().StringVarP(&categoriesStorePath, "store", "s", "", "path to the transaction store database (default: transactions.db)")
	viper.BindPFlag("categories-store", categoriesCmd.PersistentFlags().Lookup("store"))
}

func resolveCategoriesStore() string {
	path := viper.GetString("categories-store")
	if path == "" {
		path = config.DefaultStorePath()
	}
	return path
}

func runCategoriesImport(cmd *cobra.Command, args []string) error {
	rulesFile := args[0]
	if err := validateFileExists(rulesFile, "category rules file"); err != nil {
		return err
	}

	st, err := store.Open(resolveCategoriesStore())
	if err != nil {
		return err
	}
	defer st.Close()

	existing, err := st.Categories()
	if err != nil {
		return err
	}

	updated, err := config.LoadCategoryRules(rulesFile, existing)
	if err != nil {
		return err
	}

	if err := st.SaveCategories(updated); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported category rules from %s: %d categories configured.\n",
		rulesFile, len(updated))
	return nil
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	st, err := store.Open(resolveCategoriesStore())
	if err != nil {
		return err
	}
	defer st.Close()

	categories, err := st.Categories()
	if err != nil {
		return err
	}

	if len(categories) == 0 {
		fmt.Fprintln(os.Stdout, "No categories configured.")
		return nil
	}

	for _, cat := range categories {
		fmt.Fprintf(os.Stdout, "%s (%s)\n", cat.Name, cat.ID)
		if len(cat.Rules) > 0 {
			fmt.Fprintf(os.Stdout, "  rules: %s\n", strings.Join(cat.Rules, ", "))
		}
	}
	return nil
}
