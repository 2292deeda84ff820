// Package workbook loads statement files into raw tabular data. It is a
// pure format adapter: XLSX workbooks become 2-D arrays of raw cell values
// (Excel date serials preserved as numeric strings) and CSV text becomes
// header-keyed records. No bank-specific logic lives here.
package workbook

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang-statement-import-service/pkg/errors"
	"golang-statement-import-service/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// Workbook wraps an open XLSX file and exposes sheets as row arrays.
type Workbook struct {
	file   *excelize.File
	path   string
	logger logger.Logger
}

// Open reads a workbook from a binary stream. It fails if the workbook
// cannot be decoded or contains no sheets.
func Open(r io.Reader, name string) (*Workbook, error) {
	log := logger.GetGlobalLogger().WithComponent("workbook")

	f, err := excelize.OpenReader(r)
	if err != nil {
		log.WithError(err).WithField("file", name).Error("Failed to decode workbook")
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}

	if len(f.GetSheetList()) == 0 {
		f.Close()
		return nil, errors.ParseError(errors.CodeMissingWorksheet, name, 0, "", nil)
	}

	log.WithFields(logger.Fields{
		"file":   name,
		"sheets": f.GetSheetList(),
	}).Debug("Opened workbook")

	return &Workbook{file: f, path: name, logger: log}, nil
}

// OpenFile reads a workbook from disk.
func OpenFile(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer f.Close()

	return Open(f, path)
}

// Close releases the underlying file resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns the workbook's sheet names in order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// FirstSheet returns the first worksheet's contents as raw rows.
func (w *Workbook) FirstSheet() ([][]string, error) {
	return w.Sheet(w.file.GetSheetList()[0])
}

// Sheet returns the named worksheet's contents as raw rows. Cells keep
// their raw stored values, so Excel date serials come back as numbers
// rather than locale-formatted strings. Missing sheet is an error; a sheet
// that is merely empty returns an empty slice.
func (w *Workbook) Sheet(name string) ([][]string, error) {
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		w.logger.WithError(err).WithFields(logger.Fields{
			"file":  w.path,
			"sheet": name,
		}).Error("Failed to read worksheet")
		return nil, errors.ParseError(errors.CodeMissingWorksheet, w.path, 0, name, err)
	}

	return rows, nil
}

// HasSheet reports whether the workbook contains the named sheet.
func (w *Workbook) HasSheet(name string) bool {
	for _, s := range w.file.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

// CSVConfig holds configuration for CSV reading
type CSVConfig struct {
	Delimiter        rune
	TrimLeadingSpace bool
	ValidateEncoding bool
}

// DefaultCSVConfig returns a configuration with sensible defaults
func DefaultCSVConfig() *CSVConfig {
	return &CSVConfig{
		Delimiter:        ',',
		TrimLeadingSpace: true,
		ValidateEncoding: true,
	}
}

// CSVData is the parsed content of a CSV statement: the header row in
// original order plus header-keyed records for each data row.
type CSVData struct {
	Headers []string
	Records []map[string]string
}

// ReadCSV parses CSV text into header-keyed records. The header row is
// required and consumed. Empty data after the header is not an error and
// yields an empty record list; callers must check length.
func ReadCSV(r io.Reader, name string, config *CSVConfig) (*CSVData, error) {
	if config == nil {
		config = DefaultCSVConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("workbook")

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}

	if config.ValidateEncoding && !utf8.Valid(content) {
		return nil, errors.ParseError(errors.CodeEncodingError, name, 0, "", nil).
			WithSuggestion("Save the file in UTF-8 encoding and try again")
	}

	// Strip a UTF-8 BOM so the first header cell matches exactly.
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = config.Delimiter
	reader.TrimLeadingSpace = config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.ValidationError(errors.CodeMissingField, "header_row", "empty file", nil).
				WithSuggestion("Ensure the CSV contains a header row")
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, name, 1, "", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	data := &CSVData{Headers: headers}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"file": name,
				"line": line,
			}).Warn("Skipping malformed CSV line")
			continue
		}

		if isEmptyRecord(record) {
			continue
		}

		keyed := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				keyed[h] = strings.TrimSpace(record[i])
			}
		}
		data.Records = append(data.Records, keyed)
	}

	log.WithFields(logger.Fields{
		"file":    name,
		"headers": headers,
		"records": len(data.Records),
	}).Debug("Parsed CSV")

	return data, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
