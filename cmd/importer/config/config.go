// Package config builds runtime configurations for the importer CLI.
package config

import (
	"os"

	"golang-statement-import-service/internal/categorizer"
	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/reporter"
	"golang-statement-import-service/internal/workbook"
	"golang-statement-import-service/pkg/errors"
)

// DefaultStoreFile is the store database created when --store is not given.
const DefaultStoreFile = "transactions.db"

// DefaultStorePath returns the store path used when none is configured.
func DefaultStorePath() string {
	if env := os.Getenv("IMPORTER_STORE"); env != "" {
		return env
	}
	return DefaultStoreFile
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
		config.IncludeSkippedRows = true
		config.IncludeStoreTotals = true
	case "json":
		config.Format = reporter.FormatJSON
		config.IncludeStoreTotals = true
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		// CSV is per-file rows only
		config.IncludeStoreTotals = false
	}

	return config
}

// LoadCategoryRules reads a description-to-category CSV mapping file and
// merges its rules into the given category list.
func LoadCategoryRules(path string, categories []*models.Category) ([]*models.Category, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileNotFound, path, err).
			WithSuggestion("Check that the category rules file exists and is readable")
	}
	defer file.Close()

	data, err := workbook.ReadCSV(file, path, workbook.DefaultCSVConfig())
	if err != nil {
		return nil, err
	}

	return categorizer.ImportRules(data, categories)
}
