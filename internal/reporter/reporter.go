// Package reporter renders import batch results for people and machines.
//
// Supported output formats:
//   - Console: human-readable summary for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: per-file rows for spreadsheet applications
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang-statement-import-service/internal/importer"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeSkippedRows bool `json:"include_skipped_rows"`
	IncludeStoreTotals bool `json:"include_store_totals"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:             FormatConsole,
		IncludeSkippedRows: true,
		IncludeStoreTotals: true,
		CSVDelimiter:       ',',
		CSVHeaders:         true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator generates import batch reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport writes a report of the batch result to the provided writer
func (rg *ReportGenerator) GenerateReport(batch *importer.BatchResult, writer io.Writer) error {
	if batch == nil {
		return fmt.Errorf("batch result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(batch, writer)
	case FormatJSON:
		return rg.generateJSONReport(batch, writer)
	case FormatCSV:
		return rg.generateCSVReport(batch, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(batch *importer.BatchResult, writer io.Writer) error {
	fmt.Fprintf(writer, "IMPORT REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", batch.Duration)

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Files:               %d\n", len(batch.Files))
	fmt.Fprintf(writer, "Failed Files:        %d\n", batch.FailedFiles())
	fmt.Fprintf(writer, "Records Added:       %d\n", batch.TotalAdded)
	fmt.Fprintf(writer, "Duplicates Dropped:  %d\n", batch.TotalDuplicates)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== FILES ===\n")
	for _, file := range batch.Files {
		if file.Failed() {
			fmt.Fprintf(writer, "FAILED  %s\n", file.Path)
			fmt.Fprintf(writer, "        %s\n", file.ErrorMessage)
			continue
		}
		fmt.Fprintf(writer, "OK      %s (%s)\n", file.Path, file.Parser)
		fmt.Fprintf(writer, "        transactions: %d, upcoming charges: %d, added: %d, duplicates: %d\n",
			file.Transactions, file.UpcomingCharges, file.Added, file.DuplicatesDropped)

		if rg.config.IncludeSkippedRows && len(file.Skipped) > 0 {
			fmt.Fprintf(writer, "        skipped rows (%d):\n", len(file.Skipped))
			for i, skip := range file.Skipped {
				fmt.Fprintf(writer, "          row %d: %s\n", skip.Row, skip.Reason)
				if i >= 9 && len(file.Skipped) > 10 {
					fmt.Fprintf(writer, "          ... and %d more\n", len(file.Skipped)-10)
					break
				}
			}
		}
	}
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeStoreTotals {
		fmt.Fprintf(writer, "=== STORE TOTALS ===\n")
		fmt.Fprintf(writer, "Transactions:     %d\n", batch.StoreTransactions)
		fmt.Fprintf(writer, "Upcoming Charges: %d\n", batch.StoreUpcomingCharges)
	}

	return nil
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(batch *importer.BatchResult, writer io.Writer) error {
	output := map[string]interface{}{
		"files":           batch.Files,
		"totalAdded":      batch.TotalAdded,
		"totalDuplicates": batch.TotalDuplicates,
		"failedFiles":     batch.FailedFiles(),
		"durationMs":      batch.Duration.Milliseconds(),
		"generatedAt":     time.Now().Format(time.RFC3339),
	}
	if rg.config.IncludeStoreTotals {
		output["storeTransactions"] = batch.StoreTransactions
		output["storeUpcomingCharges"] = batch.StoreUpcomingCharges
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// generateCSVReport generates a CSV report with one row per file
func (rg *ReportGenerator) generateCSVReport(batch *importer.BatchResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"File",
			"Status",
			"Parser",
			"Transactions",
			"Upcoming_Charges",
			"Skipped_Rows",
			"Added",
			"Duplicates_Dropped",
			"Error",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, file := range batch.Files {
		status := "ok"
		if file.Failed() {
			status = "failed"
		}
		record := []string{
			file.Path,
			status,
			file.Parser,
			strconv.Itoa(file.Transactions),
			strconv.Itoa(file.UpcomingCharges),
			strconv.Itoa(len(file.Skipped)),
			strconv.Itoa(file.Added),
			strconv.Itoa(file.DuplicatesDropped),
			file.ErrorMessage,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write file record: %w", err)
		}
	}

	return csvWriter.Error()
}
