package parsers

import (
	"fmt"
	"strings"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/workbook"
	"golang-statement-import-service/pkg/errors"
	"golang-statement-import-service/pkg/logger"
)

// GenericParser is the column-mapper fallback used for CSV files and for
// XLSX layouts no bank-specific parser recognized. It guesses a coarse
// bank type from the header row, picks that bank's column-name dictionary
// and converts rows with the shared date/amount parsing. The guess decides
// the bank tag and the sign convention only; column resolution also
// tolerates generic English headers.
type GenericParser struct {
	newID  IDGenerator
	logger logger.Logger
}

// NewGenericParser creates the generic column-mapper.
func NewGenericParser(newID IDGenerator) *GenericParser {
	if newID == nil {
		newID = RandomID
	}
	return &GenericParser{
		newID:  newID,
		logger: logger.GetGlobalLogger().WithComponent("generic_parser"),
	}
}

// Name returns the parser's registry name.
func (p *GenericParser) Name() string {
	return "generic"
}

// ParseCSV converts header-keyed CSV records.
func (p *GenericParser) ParseCSV(data *workbook.CSVData) (*ParseResult, error) {
	return p.parseTable(data.Headers, data.Records)
}

// ParseRows converts raw sheet rows, treating the first non-empty row as
// the header.
func (p *GenericParser) ParseRows(rows [][]string) (*ParseResult, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, errors.ParseError(errors.CodeMissingColumn, "", 0, "header row", nil)
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	var records []map[string]string
	for _, row := range rows[headerIdx+1:] {
		if isBlankRow(row) {
			continue
		}
		keyed := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				keyed[h] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, keyed)
	}

	return p.parseTable(headers, records)
}

// parseTable resolves the column mapping for the guessed bank type and
// normalizes every record.
func (p *GenericParser) parseTable(headers []string, records []map[string]string) (*ParseResult, error) {
	bank := DetectBankType(headers)
	cols := genericColumnTable[bank]

	dateCol := resolveColumn(headers, cols.DateColumn, "date")
	descCol := resolveColumn(headers, cols.DescriptionColumn, "description")
	amountCol := resolveColumn(headers, cols.AmountColumn, "amount")

	if dateCol == "" || descCol == "" || amountCol == "" {
		return nil, errors.ParseError(errors.CodeMissingColumn, "", 0,
			fmt.Sprintf("date/description/amount headers (bank guess: %s)", bank), nil)
	}

	balanceCol := resolveColumn(headers, cols.BalanceColumn, "balance")
	referenceCol := resolveColumn(headers, cols.ReferenceColumn, "reference")

	p.logger.WithFields(logger.Fields{
		"bank_guess": string(bank),
		"date":       dateCol,
		"amount":     amountCol,
		"records":    len(records),
	}).Debug("Resolved generic column mapping")

	result := &ParseResult{Parser: p.Name()}
	seq := 0
	for i, record := range records {
		rowNum := i + 2 // 1-based, after the header row

		dateStr := record[dateCol]
		description := record[descCol]
		amountStr := record[amountCol]

		if dateStr == "" && description == "" && amountStr == "" {
			continue
		}

		date, err := CellDate(dateStr)
		if err != nil {
			result.Skip(rowNum, fmt.Sprintf("bad date: %v", err))
			continue
		}

		amount, err := CellAmount(amountStr)
		if err != nil {
			result.Skip(rowNum, fmt.Sprintf("bad amount: %v", err))
			continue
		}
		if cols.ForceNegative {
			amount = forceNegative(amount)
		}

		tx := &models.Transaction{
			ID:          p.newID(bank, date, amount, description, seq),
			Date:        date,
			Description: description,
			Amount:      amount,
			Bank:        bank,
		}

		if balanceCol != "" {
			tx.Balance = CellBalance(record[balanceCol])
		}
		if referenceCol != "" {
			tx.Reference = record[referenceCol]
		}

		result.Transactions = append(result.Transactions, tx)
		seq++
	}

	return result, nil
}

// resolveColumn finds the header cell backing a logical column: first the
// dictionary label (exact, then case-insensitive), then the generic alias
// list for the logical name.
func resolveColumn(headers []string, label, logical string) string {
	if label != "" {
		for _, h := range headers {
			if h == label {
				return h
			}
		}
		for _, h := range headers {
			if strings.EqualFold(h, label) {
				return h
			}
		}
	}

	for _, alias := range genericHeaderAliases[logical] {
		for _, h := range headers {
			if strings.EqualFold(stripMarks(h), alias) {
				return h
			}
		}
	}

	return ""
}
