package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang-statement-import-service/cmd/importer/config"
	"golang-statement-import-service/internal/importer"
	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/parsers"
	"golang-statement-import-service/internal/reporter"
	"golang-statement-import-service/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the import command
var (
	bankHint         string
	storePath        string
	categoriesFile   string
	outputFormat     string
	outputFile       string
	deterministicIDs bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import bank statement files into the transaction store",
	Long: `Import parses one or more bank statement files, normalizes their
transactions, drops duplicates already present in the store, assigns
categories, and writes the result to the local store.

The bank format is detected automatically from each file's contents.
Use --bank to force a specific parser when detection is not possible.

Examples:
  # Auto-detect the bank format
  importer import statement.xlsx

  # Force the Max parser for several files
  importer import --bank max january.xlsx february.xlsx

  # Import against a specific store with a JSON report
  importer import --store ledger.db --output-format json \
    --output-file report.json statement.csv`,

	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateImportFlags,
	RunE:    runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&bankHint, "bank", "b", "auto", "bank format: auto, discount, discount-transactions, discount-credit, max, max-shekel, max-foreign, cal")
	importCmd.Flags().StringVarP(&storePath, "store", "s", "", "path to the transaction store database (default: transactions.db)")
	importCmd.Flags().StringVarP(&categoriesFile, "categories", "c", "", "category rules CSV to import before processing (optional)")

	importCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	importCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	importCmd.Flags().BoolVar(&deterministicIDs, "deterministic-ids", false, "derive transaction IDs from content instead of random suffixes")

	viper.BindPFlag("bank", importCmd.Flags().Lookup("bank"))
	viper.BindPFlag("store", importCmd.Flags().Lookup("store"))
	viper.BindPFlag("categories", importCmd.Flags().Lookup("categories"))
	viper.BindPFlag("output-format", importCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", importCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("deterministic-ids", importCmd.Flags().Lookup("deterministic-ids"))
}

func validateImportFlags(cmd *cobra.Command, args []string) error {
	// Viper values allow overrides from config file and environment
	bankHint = viper.GetString("bank")
	storePath = viper.GetString("store")
	categoriesFile = viper.GetString("categories")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	deterministicIDs = viper.GetBool("deterministic-ids")

	if _, err := models.ParseBankHint(bankHint); err != nil {
		return err
	}

	for i, file := range args {
		if err := validateFileExists(file, fmt.Sprintf("statement file %d", i+1)); err != nil {
			return err
		}
	}

	if categoriesFile != "" {
		if err := validateFileExists(categoriesFile, "categories file"); err != nil {
			return err
		}
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	hint, err := models.ParseBankHint(bankHint)
	if err != nil {
		return err
	}

	if storePath == "" {
		storePath = config.DefaultStorePath()
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting import...\n")
		fmt.Fprintf(os.Stderr, "Files: %s\n", strings.Join(args, ", "))
		fmt.Fprintf(os.Stderr, "Bank: %s\n", bankHint)
		fmt.Fprintf(os.Stderr, "Store: %s\n", storePath)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer st.Close()

	categories, err := st.Categories()
	if err != nil {
		return err
	}
	if categoriesFile != "" {
		categories, err = config.LoadCategoryRules(categoriesFile, categories)
		if err != nil {
			return err
		}
		if err := st.SaveCategories(categories); err != nil {
			return err
		}
	}

	var newID parsers.IDGenerator = parsers.RandomID
	if deterministicIDs {
		newID = models.DeterministicID
	}

	imp := importer.New(st, categories, newID)
	batch, err := imp.ImportFiles(ctx, args, hint)
	if err != nil {
		return err
	}

	reportConfig := config.CreateReportConfig(outputFormat)
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(batch, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nImport completed.\n")
		fmt.Fprintf(os.Stderr, "Processed %d files (%d failed).\n", len(batch.Files), batch.FailedFiles())
		fmt.Fprintf(os.Stderr, "Added %d records, dropped %d duplicates.\n", batch.TotalAdded, batch.TotalDuplicates)
		fmt.Fprintf(os.Stderr, "Store now holds %d transactions and %d upcoming charges.\n",
			batch.StoreTransactions, batch.StoreUpcomingCharges)
	}

	if batch.FailedFiles() > 0 {
		return fmt.Errorf("%d of %d files failed to import", batch.FailedFiles(), len(batch.Files))
	}

	return nil
}
