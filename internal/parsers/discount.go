package parsers

import (
	"fmt"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/workbook"
	"golang-statement-import-service/pkg/logger"
)

// DiscountMode selects which of Discount's stacked tables to parse.
type DiscountMode string

const (
	// DiscountBoth parses every table found in the sheet.
	DiscountBoth DiscountMode = "discount"
	// DiscountTransactionsOnly parses only the main account-movements table.
	DiscountTransactionsOnly DiscountMode = "discount-transactions"
	// DiscountCreditOnly parses only the credit-card charges table.
	DiscountCreditOnly DiscountMode = "discount-credit"
)

// DiscountParser parses Discount bank checking-account workbooks. A single
// sheet may contain a main transactions table and a credit-card charges
// table stacked one after the other; both are located independently by
// their own header dictionaries. Main-table rows that merely summarize an
// external credit card's debit are filtered out so they are not counted
// twice once that card's own statement is imported.
type DiscountParser struct {
	mode   DiscountMode
	newID  IDGenerator
	logger logger.Logger
}

// NewDiscountParser creates a parser for Discount workbooks.
func NewDiscountParser(mode DiscountMode, newID IDGenerator) *DiscountParser {
	if mode == "" {
		mode = DiscountBoth
	}
	if newID == nil {
		newID = RandomID
	}
	return &DiscountParser{
		mode:   mode,
		newID:  newID,
		logger: logger.GetGlobalLogger().WithComponent("discount_parser"),
	}
}

// Name returns the parser's registry name.
func (p *DiscountParser) Name() string {
	return string(p.mode)
}

// Bank returns the origin bank tag.
func (p *DiscountParser) Bank() models.BankType {
	return models.BankDiscount
}

// Parse reads the workbook's first sheet and parses every located table.
func (p *DiscountParser) Parse(wb *workbook.Workbook) (*ParseResult, error) {
	rows, err := wb.FirstSheet()
	if err != nil {
		return nil, err
	}
	return p.ParseRows(rows)
}

// ParseRows locates and parses Discount tables in raw sheet rows.
func (p *DiscountParser) ParseRows(rows [][]string) (*ParseResult, error) {
	result := &ParseResult{Parser: p.Name()}

	if p.mode != DiscountCreditOnly {
		for from := 0; from < len(rows); {
			headerIdx, cols := discountMainTable.locate(rows, from)
			if headerIdx < 0 {
				break
			}
			end := p.parseMainTable(rows, headerIdx, cols, result)
			from = end
		}
	}

	if p.mode != DiscountTransactionsOnly {
		for from := 0; from < len(rows); {
			headerIdx, cols := discountCreditTable.locate(rows, from)
			if headerIdx < 0 {
				break
			}
			end := p.parseCreditTable(rows, headerIdx, cols, result)
			from = end
		}
	}

	p.logger.WithFields(logger.Fields{
		"transactions":     len(result.Transactions),
		"upcoming_charges": len(result.UpcomingCharges),
		"skipped":          len(result.Skipped),
	}).Debug("Parsed discount sheet")

	return result, nil
}

// parseMainTable normalizes the account-movements table body starting
// after the header row. It returns the row index at which scanning for the
// next table should resume (past the blank-row sentinel).
func (p *DiscountParser) parseMainTable(rows [][]string, headerIdx int, cols map[string]int, result *ParseResult) int {
	seq := 0
	i := headerIdx + 1
	for ; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			break
		}

		dateStr := cell(row, cols["date"])
		description := cell(row, cols["description"])
		amountStr := cell(row, cols["amount"])

		// Rows with none of the required fields are layout noise, not data.
		if dateStr == "" && description == "" && amountStr == "" {
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

		if isExternalCardCharge(description, amount.IsNegative()) {
			result.Skip(i+1, "external credit card summary charge")
			continue
		}

		tx := &models.Transaction{
			ID:          p.newID(models.BankDiscount, date, amount, description, seq),
			Date:        date,
			Description: description,
			Amount:      amount,
			Balance:     CellBalance(cell(row, cols["balance"])),
			Bank:        models.BankDiscount,
			Reference:   cell(row, cols["reference"]),
		}

		// The value date degrades to absent when unparseable, never to a
		// wrong date.
		if vd, err := CellDate(cell(row, cols["valueDate"])); err == nil {
			tx.ChargeDate = &vd
		}

		result.Transactions = append(result.Transactions, tx)
		seq++
	}

	return i + 1
}

// parseCreditTable normalizes the bank's own credit-card charges table
// into upcoming charges. The external-card keyword filter is deliberately
// not applied here.
func (p *DiscountParser) parseCreditTable(rows [][]string, headerIdx int, cols map[string]int, result *ParseResult) int {
	seq := 0
	i := headerIdx + 1
	for ; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			break
		}

		dateStr := cell(row, cols["date"])
		description := cell(row, cols["description"])
		amountStr := cell(row, cols["amount"])

		if dateStr == "" && description == "" && amountStr == "" {
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

		charge := &models.UpcomingCharge{
			ID:          p.newID(models.BankDiscount, date, amount, description, seq),
			Date:        date,
			Description: description,
			Amount:      forceNegative(amount),
			Bank:        models.BankDiscount,
		}

		result.UpcomingCharges = append(result.UpcomingCharges, charge)
		seq++
	}

	return i + 1
}
