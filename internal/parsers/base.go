// Package parsers implements the bank statement parsing pipeline: per-bank
// table locators and row normalizers, a generic column-mapper fallback, and
// an auto-detecting dispatcher.
//
// Every parser converges on the canonical models.Transaction shape. Row
// level failures never abort a parse: offending rows are recorded in the
// result's Skipped list with the row number and reason, and parsing
// continues. File-level failures (unsupported format, missing worksheet,
// no recognizable table) are returned as errors.
//
// Bank quirks handled here:
//   - Hebrew/RTL headers located by fuzzy or exact matching, with banner
//     rows and multiple stacked tables per sheet
//   - Excel date serials alongside several string date encodings
//   - Currency-formatted amounts with locale separators
//   - Per-bank sign conventions (card charges reported as positive
//     magnitudes that must be negated)
package parsers

import (
	"strconv"
	"strings"
	"time"

	"golang-statement-import-service/internal/models"

	"github.com/shopspring/decimal"
)

// SkippedRow records a row that was dropped during parsing and why.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParseResult is the outcome of parsing one statement file or table:
// normalized transactions, upcoming charges (credit-card ledger tables
// only), and the rows that were rejected.
type ParseResult struct {
	Transactions    []*models.Transaction    `json:"transactions"`
	UpcomingCharges []*models.UpcomingCharge `json:"upcomingCharges,omitempty"`
	Skipped         []SkippedRow             `json:"skipped,omitempty"`
	Parser          string                   `json:"parser"`
}

// Count returns the number of normalized records produced.
func (r *ParseResult) Count() int {
	return len(r.Transactions) + len(r.UpcomingCharges)
}

// Skip records a dropped row.
func (r *ParseResult) Skip(row int, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Row: row, Reason: reason})
}

// Merge folds another result into this one, preserving order.
func (r *ParseResult) Merge(other *ParseResult) {
	r.Transactions = append(r.Transactions, other.Transactions...)
	r.UpcomingCharges = append(r.UpcomingCharges, other.UpcomingCharges...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// IDGenerator produces a transaction identifier. The default generator
// embeds a random suffix; tests inject models.DeterministicID for
// reproducible output.
type IDGenerator func(bank models.BankType, date time.Time, amount decimal.Decimal, description string, seq int) string

// RandomID is the default IDGenerator.
func RandomID(bank models.BankType, date time.Time, amount decimal.Decimal, description string, seq int) string {
	return models.NewTransactionID(bank, date, amount)
}

// excelEpochSerial is the Excel serial value of 1970-01-01.
const excelEpochSerial = 25569

// serialBounds keep plain numeric cells (references, card numbers) from
// being misread as dates. 10000 ~ 1927, 80000 ~ 2119.
const (
	minDateSerial = 10000
	maxDateSerial = 80000
)

// dateLayouts are tried in order after the Excel-serial check.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02.01.2006",
	"02-01-2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006 15:04",
}

// CellDate parses a raw cell into a calendar date. Excel date serials are
// tried first, then the string layouts, day before month. An error means
// the row must be dropped, never defaulted.
func CellDate(value string) (time.Time, error) {
	s := stripMarks(value)
	if s == "" {
		return time.Time{}, &CellError{Value: value, Reason: "empty date cell"}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minDateSerial || serial > maxDateSerial {
			return time.Time{}, &CellError{Value: value, Reason: "numeric cell out of date range"}
		}
		days := serial - excelEpochSerial
		t := time.Unix(int64(days*86400), 0).UTC()
		return models.DateOnly(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() < 1970 || t.Year() > 2100 {
				continue
			}
			return models.DateOnly(t), nil
		}
	}

	return time.Time{}, &CellError{Value: value, Reason: "unrecognized date format"}
}

// amountReplacer strips currency symbols, thousand separators and
// whitespace variants seen in Israeli bank exports.
var amountReplacer = strings.NewReplacer(
	"₪", "",
	"$", "",
	"€", "",
	",", "",
	" ", "",
	" ", "",
)

// CellAmount parses a raw cell into a signed decimal amount. A zero result
// is treated as "no amount found" and returned as an error, so rows never
// enter the store with a garbage zero amount.
func CellAmount(value string) (decimal.Decimal, error) {
	s := amountReplacer.Replace(stripMarks(value))
	if s == "" || s == "-" {
		return decimal.Zero, &CellError{Value: value, Reason: "empty amount cell"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &CellError{Value: value, Reason: "unparseable amount", Err: err}
	}

	if d.IsZero() {
		return decimal.Zero, &CellError{Value: value, Reason: "zero amount"}
	}

	return d, nil
}

// CellBalance parses an optional running-balance cell. Unlike CellAmount a
// zero balance is legitimate; an unparseable cell degrades to nil.
func CellBalance(value string) *decimal.Decimal {
	s := amountReplacer.Replace(stripMarks(value))
	if s == "" {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// CellError describes why a single cell failed to parse.
type CellError struct {
	Value  string
	Reason string
	Err    error
}

func (e *CellError) Error() string {
	if e.Err != nil {
		return e.Reason + " '" + e.Value + "': " + e.Err.Error()
	}
	return e.Reason + " '" + e.Value + "'"
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// stripMarks trims whitespace and the RTL/LTR direction marks Hebrew
// exports embed around numeric cells.
func stripMarks(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "‎", "")
	s = strings.ReplaceAll(s, "‏", "")
	return strings.TrimSpace(s)
}

// cell returns the trimmed value at column idx, or empty when the row is
// too short or the column was not located.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isBlankRow reports whether every cell in the row is empty. A blank row
// is the sentinel that ends a located table body.
func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// forceNegative applies the card-charge sign convention: statements that
// list charges as positive magnitudes are flipped to the canonical
// negative-equals-outflow rule.
func forceNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsPositive() {
		return d.Neg()
	}
	return d
}
