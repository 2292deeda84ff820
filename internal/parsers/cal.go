package parsers

import (
	"fmt"
	"strings"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/workbook"
	"golang-statement-import-service/pkg/errors"
	"golang-statement-import-service/pkg/logger"
)

// CalParser parses Cal credit-card workbooks. Cal exports prepend a
// variable number of banner rows, so the header row is found by substring
// matching within the first few rows rather than at a fixed offset. Card
// charges are sign-flipped to the canonical negative-equals-outflow
// convention, as with Max.
type CalParser struct {
	newID  IDGenerator
	logger logger.Logger
}

// NewCalParser creates a parser for Cal workbooks.
func NewCalParser(newID IDGenerator) *CalParser {
	if newID == nil {
		newID = RandomID
	}
	return &CalParser{
		newID:  newID,
		logger: logger.GetGlobalLogger().WithComponent("cal_parser"),
	}
}

// Name returns the parser's registry name.
func (p *CalParser) Name() string {
	return "cal"
}

// Bank returns the origin bank tag.
func (p *CalParser) Bank() models.BankType {
	return models.BankCal
}

// Parse reads the workbook's first sheet and normalizes its single table.
func (p *CalParser) Parse(wb *workbook.Workbook) (*ParseResult, error) {
	rows, err := wb.FirstSheet()
	if err != nil {
		return nil, err
	}
	return p.ParseRows(rows)
}

// ParseRows locates the header within the banner-row window and
// normalizes the table body.
func (p *CalParser) ParseRows(rows [][]string) (*ParseResult, error) {
	result := &ParseResult{Parser: p.Name()}

	headerIdx, cols := p.locateHeader(rows)
	if headerIdx < 0 {
		return nil, errors.ParseError(errors.CodeMissingColumn, "", 0, "cal header row", nil)
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
			ID:          p.newID(models.BankCal, date, amount, merchant, seq),
			Date:        date,
			Description: merchant,
			Amount:      amount,
			Bank:        models.BankCal,
		}

		result.Transactions = append(result.Transactions, tx)
		seq++
	}

	p.logger.WithFields(logger.Fields{
		"transactions": len(result.Transactions),
		"skipped":      len(result.Skipped),
	}).Debug("Parsed cal sheet")

	return result, nil
}

// locateHeader scans the banner-row window for a row containing a
// date-like, a merchant-like and an amount-like header cell. The amount
// header matches either "סכום" or the shekel-sign spelling.
func (p *CalParser) locateHeader(rows [][]string) (int, map[string]int) {
	limit := calHeaderScanRows
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		idx := calTable.match(rows[i])
		if idx == nil {
			// Retry the amount column under its alternate label.
			idx = p.matchWithAltAmount(rows[i])
		}
		if idx != nil {
			return i, idx
		}
	}
	return -1, nil
}

func (p *CalParser) matchWithAltAmount(row []string) map[string]int {
	idx := make(map[string]int)
	for j, c := range row {
		c = stripMarks(c)
		if c == "" {
			continue
		}
		switch {
		case strings.Contains(c, calTable.Columns["merchant"]):
			if _, seen := idx["merchant"]; !seen {
				idx["merchant"] = j
			}
		case strings.Contains(c, calAltAmountLabel):
			if _, seen := idx["amount"]; !seen {
				idx["amount"] = j
			}
		case strings.Contains(c, calTable.Columns["date"]):
			if _, seen := idx["date"]; !seen {
				idx["date"] = j
			}
		}
	}

	if len(idx) < calTable.MinHits {
		return nil
	}
	return idx
}
