package parsers

import (
	"strings"

	"golang-statement-import-service/internal/models"
)

// TableConfig describes how to locate one table inside a sheet: the exact
// Hebrew header label per logical column and how many of those labels must
// appear in a single row for it to be accepted as the table's header row.
// Configs are immutable; parsers receive them by value and never mutate.
type TableConfig struct {
	Name      string
	Columns   map[string]string // logical name -> header label
	MinHits   int
	Substring bool // match labels as substrings instead of exact equality
}

// locate scans rows for the first header row matching the config, starting
// at the given row index. It returns the header row index and the resolved
// logical-column -> cell-index mapping, or -1 when no header matches.
func (tc TableConfig) locate(rows [][]string, from int) (int, map[string]int) {
	for i := from; i < len(rows); i++ {
		if idx := tc.match(rows[i]); idx != nil {
			return i, idx
		}
	}
	return -1, nil
}

// match tests a single row against the config's header labels.
func (tc TableConfig) match(row []string) map[string]int {
	idx := make(map[string]int)
	for j, c := range row {
		c = stripMarks(c)
		if c == "" {
			continue
		}
		for logical, label := range tc.Columns {
			if _, seen := idx[logical]; seen {
				continue
			}
			if tc.Substring {
				if strings.Contains(c, label) {
					idx[logical] = j
				}
			} else if c == label {
				idx[logical] = j
			}
		}
	}

	if len(idx) < tc.MinHits {
		return nil
	}
	return idx
}

// Discount's checking-account workbook stacks up to two tables in one
// sheet: the main account-movements table and a credit-card charges table.
var (
	discountMainTable = TableConfig{
		Name: "discount-transactions",
		Columns: map[string]string{
			"date":        "תאריך",
			"valueDate":   "יום ערך",
			"description": "תיאור התנועה",
			"amount":      "₪ זכות/חובה",
			"balance":     "₪ יתרה",
			"reference":   "אסמכתה",
			"fee":         "עמלה",
			"channel":     "ערוץ ביצוע",
		},
		MinHits: 4,
	}

	discountCreditTable = TableConfig{
		Name: "discount-credit",
		Columns: map[string]string{
			"date":        "תאריך רכישה",
			"valueDate":   "תאריך חיוב",
			"description": "שם בית העסק",
			"amount":      "סכום החיוב",
			"balance":     "יתרה לחיוב",
			"notes":       "הערות",
		},
		MinHits: 4,
	}
)

// externalCardKeywords flags main-table rows that are summary debits of an
// external credit card. Those rows duplicate the card's own statement and
// are filtered from the main table to avoid double counting. The list is a
// fixed substring match on the description; a merchant whose name contains
// one of these words would be mis-filtered (known limitation, preserved).
var externalCardKeywords = []string{
	"כאל",
	"cal",
	"מקס",
	"max",
	"ישראכרט",
	"isracard",
	"לאומי קארד",
	"leumi card",
	"אמריקן אקספרס",
	"american express",
	"דיינרס",
}

// isExternalCardCharge reports whether a main-table row is a summary debit
// of an external card: description matches a known card keyword and the
// amount is negative.
func isExternalCardCharge(description string, negative bool) bool {
	if !negative {
		return false
	}
	lower := strings.ToLower(description)
	for _, kw := range externalCardKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MaxVariant selects which of Max's two sheet variants to parse.
type MaxVariant string

const (
	MaxShekel  MaxVariant = "max-shekel"
	MaxForeign MaxVariant = "max-foreign"
)

// Max sheet names per variant.
const (
	maxShekelSheet  = "עסקאות במועד החיוב"
	maxForeignSheet = "עסקאות חו\"ל ומט\"ח"
)

// maxHeaderRow is the fixed row offset at which Max places its header row
// (1-based row 4). A small scan window around it absorbs export drift.
const maxHeaderRow = 3

var maxTable = TableConfig{
	Name: "max",
	Columns: map[string]string{
		"date":             "תאריך עסקה",
		"merchant":         "שם בית העסק",
		"category":         "קטגוריה",
		"card":             "4 ספרות אחרונות של כרטיס האשראי",
		"type":             "סוג עסקה",
		"amount":           "סכום חיוב",
		"currency":         "מטבע חיוב",
		"originalAmount":   "סכום עסקה מקורי",
		"originalCurrency": "מטבע עסקה מקורי",
		"chargeDate":       "תאריך חיוב",
		"notes":            "הערות",
		"tags":             "תיוגים",
	},
	MinHits: 4,
}

// Cal exports carry a variable number of banner rows before the header, so
// the header is found by substring matching within the first few rows: a
// date-like cell, a merchant-like cell and an amount-like cell.
var calTable = TableConfig{
	Name: "cal",
	Columns: map[string]string{
		"date":     "תאריך",
		"merchant": "בית עסק",
		"amount":   "סכום",
	},
	MinHits:   3,
	Substring: true,
}

// calAltAmountLabel is the shekel-sign variant of Cal's amount header.
const calAltAmountLabel = "ש\"ח"

// calHeaderScanRows bounds the banner-row scan.
const calHeaderScanRows = 5

// GenericColumns is the column-name dictionary the generic mapper uses for
// one coarse bank type.
type GenericColumns struct {
	DateColumn        string
	DescriptionColumn string
	AmountColumn      string
	BalanceColumn     string
	ReferenceColumn   string
	ForceNegative     bool
}

// genericColumnTable maps a coarse bank-type guess to its column names.
var genericColumnTable = map[models.BankType]GenericColumns{
	models.BankDiscount: {
		DateColumn:        "תאריך",
		DescriptionColumn: "תיאור התנועה",
		AmountColumn:      "₪ זכות/חובה",
		BalanceColumn:     "₪ יתרה",
		ReferenceColumn:   "אסמכתה",
	},
	models.BankMax: {
		DateColumn:        "תאריך עסקה",
		DescriptionColumn: "שם בית העסק",
		AmountColumn:      "סכום חיוב",
		ForceNegative:     true,
	},
	models.BankCal: {
		DateColumn:        "תאריך עסקה",
		DescriptionColumn: "שם בית עסק",
		AmountColumn:      "סכום חיוב",
		ForceNegative:     true,
	},
	models.BankUnknown: {
		DateColumn:        "date",
		DescriptionColumn: "description",
		AmountColumn:      "amount",
		BalanceColumn:     "balance",
		ReferenceColumn:   "reference",
	},
}

// genericHeaderAliases lets the unknown-bank dictionary tolerate common
// English header variants, matched case-insensitively.
var genericHeaderAliases = map[string][]string{
	"date":        {"date", "transaction date", "posting date", "תאריך"},
	"description": {"description", "details", "narrative", "merchant", "תיאור"},
	"amount":      {"amount", "sum", "value", "סכום"},
	"balance":     {"balance", "יתרה"},
	"reference":   {"reference", "ref", "אסמכתא", "אסמכתה"},
}

// DetectBankType sniffs a header row for bank-identifying Hebrew labels
// and falls back to generic date/description/amount headers. Ambiguous
// generic headers default to discount, preserving the sign convention the
// original pipeline applied in that case.
func DetectBankType(headers []string) models.BankType {
	joined := strings.ToLower(strings.Join(headers, "|"))

	switch {
	case strings.Contains(joined, "תיאור התנועה") || strings.Contains(joined, "זכות/חובה"):
		return models.BankDiscount
	case strings.Contains(joined, "4 ספרות אחרונות"):
		return models.BankMax
	case strings.Contains(joined, "שם בית עסק"):
		return models.BankCal
	}

	var hasDate, hasDescription, hasAmount bool
	for _, h := range headers {
		h = strings.ToLower(stripMarks(h))
		for _, alias := range genericHeaderAliases["date"] {
			if h == alias {
				hasDate = true
			}
		}
		for _, alias := range genericHeaderAliases["description"] {
			if h == alias {
				hasDescription = true
			}
		}
		for _, alias := range genericHeaderAliases["amount"] {
			if h == alias {
				hasAmount = true
			}
		}
	}

	if hasDate && hasDescription && hasAmount {
		return models.BankDiscount
	}
	return models.BankUnknown
}
