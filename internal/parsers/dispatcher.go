package parsers

import (
	"os"
	"path/filepath"
	"strings"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/workbook"
	"golang-statement-import-service/pkg/errors"
	"golang-statement-import-service/pkg/logger"
)

// StatementParser is the capability every bank-specific parser implements.
// Parsers are registered in a priority-ordered list the dispatcher
// iterates, so adding a bank does not touch dispatch logic.
type StatementParser interface {
	// Name is the registry/hint name of the parser.
	Name() string
	// Bank is the origin tag stamped on parsed transactions.
	Bank() models.BankType
	// Parse locates the parser's table(s) in the workbook and normalizes
	// them. Returning an error or an empty result signals "not my format"
	// during auto-detection.
	Parse(wb *workbook.Workbook) (*ParseResult, error)
}

// Dispatcher routes a statement file to the right parser: the hinted one
// first, then each registered parser in priority order, then the generic
// column-mapper fallback.
type Dispatcher struct {
	registry []StatementParser
	generic  *GenericParser
	newID    IDGenerator
	logger   logger.Logger
}

// NewDispatcher creates a dispatcher with the default parser registry.
// The auto-detection priority order is fixed: Discount, Max (shekel),
// then Cal.
func NewDispatcher(newID IDGenerator) *Dispatcher {
	if newID == nil {
		newID = RandomID
	}
	return &Dispatcher{
		registry: []StatementParser{
			NewDiscountParser(DiscountBoth, newID),
			NewMaxParser(MaxShekel, newID),
			NewCalParser(newID),
		},
		generic: NewGenericParser(newID),
		newID:   newID,
		logger:  logger.GetGlobalLogger().WithComponent("dispatcher"),
	}
}

// ParseFile parses one statement file. XLSX/XLS are routed through the
// bank parsers with the generic mapper as fallback; CSV goes straight to
// the generic mapper. Unsupported extensions fail immediately.
func (d *Dispatcher) ParseFile(path string, hint models.BankHint) (*ParseResult, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xls":
		wb, err := workbook.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer wb.Close()
		return d.ParseWorkbook(wb, hint, path)

	case ".csv":
		return d.parseCSVFile(path)

	default:
		return nil, errors.FileError(errors.CodeUnsupportedFormat, path, nil)
	}
}

// ParseWorkbook runs the detection chain over an open workbook.
func (d *Dispatcher) ParseWorkbook(wb *workbook.Workbook, hint models.BankHint, path string) (*ParseResult, error) {
	// Step 1: a specific hint picks its parser directly. Errors and empty
	// results fall through to auto-detection instead of propagating.
	if hint != "" && hint != models.HintAuto {
		parser := d.parserForHint(hint)
		if parser != nil {
			result, err := parser.Parse(wb)
			if err == nil && result.Count() > 0 {
				return result, nil
			}
			d.logger.WithFields(logger.Fields{
				"file":   path,
				"hint":   string(hint),
				"parser": parser.Name(),
			}).WithError(err).Warn("Hinted parser did not match, falling back to auto-detection")
		}
	}

	// Step 2: fixed priority order; the first parser yielding at least one
	// record wins. Other parsers' errors are logged and ignored.
	for _, parser := range d.registry {
		result, err := parser.Parse(wb)
		if err != nil {
			d.logger.WithFields(logger.Fields{
				"file":   path,
				"parser": parser.Name(),
			}).WithError(err).Debug("Parser did not match")
			continue
		}
		if result.Count() > 0 {
			d.logger.WithFields(logger.Fields{
				"file":    path,
				"parser":  parser.Name(),
				"records": result.Count(),
			}).Info("Auto-detected statement format")
			return result, nil
		}
	}

	// Step 3: generic column-mapper on the raw sheet. A resolved header
	// row with zero valid data rows is an empty result, not an error.
	rows, err := wb.FirstSheet()
	if err == nil {
		result, genErr := d.generic.ParseRows(rows)
		if genErr == nil {
			d.logger.WithFields(logger.Fields{
				"file":    path,
				"records": result.Count(),
			}).Info("Parsed with generic column mapper")
			return result, nil
		}
		err = genErr
	}

	return nil, errors.ParseError(errors.CodeNoRecognizedFormat, path, 0, "", err)
}

func (d *Dispatcher) parseCSVFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}
	defer f.Close()

	data, err := workbook.ReadCSV(f, path, nil)
	if err != nil {
		return nil, err
	}

	result, err := d.generic.ParseCSV(data)
	if err != nil {
		return nil, errors.ParseError(errors.CodeNoRecognizedFormat, path, 0, "", err)
	}
	return result, nil
}

// parserForHint maps a bank-type hint to a parser instance. Sub-variant
// hints select a specific table or sheet within the bank's export.
func (d *Dispatcher) parserForHint(hint models.BankHint) StatementParser {
	switch hint {
	case models.HintDiscount:
		return NewDiscountParser(DiscountBoth, d.newID)
	case models.HintDiscountTransactions:
		return NewDiscountParser(DiscountTransactionsOnly, d.newID)
	case models.HintDiscountCredit:
		return NewDiscountParser(DiscountCreditOnly, d.newID)
	case models.HintMax, models.HintMaxShekel:
		return NewMaxParser(MaxShekel, d.newID)
	case models.HintMaxForeign:
		return NewMaxParser(MaxForeign, d.newID)
	case models.HintCal:
		return NewCalParser(d.newID)
	}
	return nil
}
