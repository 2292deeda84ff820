package parsers

import (
	"fmt"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/workbook"
	"golang-statement-import-service/pkg/errors"
	"golang-statement-import-service/pkg/logger"
)

// MaxParser parses Max credit-card workbooks. Max exports carry two sheet
// variants, shekel and foreign-currency, each under its own Hebrew sheet
// name with the header row at a fixed offset. Charges are listed as
// positive magnitudes and are sign-flipped to the canonical
// negative-equals-outflow convention.
type MaxParser struct {
	variant MaxVariant
	newID   IDGenerator
	logger  logger.Logger
}

// NewMaxParser creates a parser for the given Max sheet variant.
func NewMaxParser(variant MaxVariant, newID IDGenerator) *MaxParser {
	if variant == "" {
		variant = MaxShekel
	}
	if newID == nil {
		newID = RandomID
	}
	return &MaxParser{
		variant: variant,
		newID:   newID,
		logger:  logger.GetGlobalLogger().WithComponent("max_parser"),
	}
}

// Name returns the parser's registry name.
func (p *MaxParser) Name() string {
	return string(p.variant)
}

// Bank returns the origin bank tag.
func (p *MaxParser) Bank() models.BankType {
	return models.BankMax
}

// sheetName returns the worksheet name for the configured variant.
func (p *MaxParser) sheetName() string {
	if p.variant == MaxForeign {
		return maxForeignSheet
	}
	return maxShekelSheet
}

// Parse reads the variant's named worksheet and normalizes its rows.
func (p *MaxParser) Parse(wb *workbook.Workbook) (*ParseResult, error) {
	name := p.sheetName()
	if !wb.HasSheet(name) {
		return nil, errors.ParseError(errors.CodeMissingWorksheet, "", 0, name, nil).
			WithSuggestion("The file does not look like a Max export; expected sheet '" + name + "'")
	}

	rows, err := wb.Sheet(name)
	if err != nil {
		return nil, err
	}
	return p.ParseRows(rows)
}

// ParseRows locates the header row near its fixed offset and normalizes
// the table body.
func (p *MaxParser) ParseRows(rows [][]string) (*ParseResult, error) {
	result := &ParseResult{Parser: p.Name()}

	// Header sits at row 4; scan a small window around it so minor export
	// drift does not break detection.
	headerIdx := -1
	var cols map[string]int
	for i := 0; i < len(rows) && i <= maxHeaderRow+3; i++ {
		if idx := maxTable.match(rows[i]); idx != nil {
			headerIdx, cols = i, idx
			break
		}
	}
	if headerIdx < 0 {
		return nil, errors.ParseError(errors.CodeMissingColumn, "", 0, "max header row", nil)
	}

	seq := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			break
		}

		dateStr := cell(row, cols["date"])
		merchant := cell(row, cols["merchant"])
		amountStr := cell(row, cols["amount"])

		if dateStr == "" && merchant == "" && amountStr == "" {
			continue
		}

		date, err := CellDate(dateStr)
		if err != nil {
			result.Skip(i+1, fmt.Sprintf("bad date: %v", err))
			continue
		}

		amount, err := CellAmount(amountStr)
		if err != nil {
			result.Skip(i+1, fmt.Sprintf("bad amount: %v", err))
			continue
		}
		amount = forceNegative(amount)

		tx := &models.Transaction{
			ID:          p.newID(models.BankMax, date, amount, merchant, seq),
			Date:        date,
			Description: merchant,
			Amount:      amount,
			Bank:        models.BankMax,
			Reference:   cell(row, cols["card"]),
			Location:    cell(row, cols["notes"]),
		}

		// An invalid charge date is dropped, never defaulted to the
		// transaction date.
		if cd, err := CellDate(cell(row, cols["chargeDate"])); err == nil {
			tx.ChargeDate = &cd
		}

		result.Transactions = append(result.Transactions, tx)
		seq++
	}

	p.logger.WithFields(logger.Fields{
		"variant":      string(p.variant),
		"transactions": len(result.Transactions),
		"skipped":      len(result.Skipped),
	}).Debug("Parsed max sheet")

	return result, nil
}
