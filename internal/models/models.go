// Package models defines the canonical transaction shape that every bank
// parser converges to, together with upcoming charges, categories and the
// identifier/dedup-key helpers shared across the pipeline.
package models

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankType identifies the origin parser of a transaction.
type BankType string

const (
	BankMax      BankType = "max"
	BankDiscount BankType = "discount"
	BankCal      BankType = "cal"
	BankUnknown  BankType = "unknown"
)

// String returns the string representation of BankType
func (b BankType) String() string {
	return string(b)
}

// IsValid checks if the bank type is valid
func (b BankType) IsValid() bool {
	switch b {
	case BankMax, BankDiscount, BankCal, BankUnknown:
		return true
	}
	return false
}

// BankHint is the bank-type hint accepted by the dispatcher. Beyond the
// plain bank types it includes sub-variants selecting a specific table or
// sheet within a bank's export.
type BankHint string

const (
	HintAuto                 BankHint = "auto"
	HintMax                  BankHint = "max"
	HintMaxShekel            BankHint = "max-shekel"
	HintMaxForeign           BankHint = "max-foreign"
	HintDiscount             BankHint = "discount"
	HintDiscountTransactions BankHint = "discount-transactions"
	HintDiscountCredit       BankHint = "discount-credit"
	HintCal                  BankHint = "cal"
)

// ParseBankHint validates a hint string. An empty string is treated as auto.
func ParseBankHint(s string) (BankHint, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return HintAuto, nil
	}

	switch BankHint(s) {
	case HintAuto, HintMax, HintMaxShekel, HintMaxForeign,
		HintDiscount, HintDiscountTransactions, HintDiscountCredit, HintCal:
		return BankHint(s), nil
	}
	return "", fmt.Errorf("invalid bank type '%s': must be one of auto, max, max-shekel, max-foreign, discount, discount-transactions, discount-credit, cal", s)
}

// DateFormat is the canonical calendar-date layout used throughout the
// pipeline and in all serialized output.
const DateFormat = "2006-01-02"

// Transaction is the unified, bank-agnostic record all parsers produce.
// Amount is signed: positive means inflow, negative means outflow. Fields
// other than Category are immutable once the record is created.
type Transaction struct {
	ID          string           `json:"id"`
	Date        time.Time        `json:"date"`
	ChargeDate  *time.Time       `json:"chargeDate,omitempty"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	Category    string           `json:"category,omitempty"`
	Bank        BankType         `json:"bank"`
	Reference   string           `json:"reference,omitempty"`
	Location    string           `json:"location,omitempty"`
}

// Validate performs basic validation on the Transaction
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if t.Amount.IsZero() {
		return fmt.Errorf("transaction amount cannot be zero")
	}

	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	if !t.Bank.IsValid() {
		return fmt.Errorf("invalid bank type: %s", t.Bank)
	}

	return nil
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Date: %s, Amount: %s, Bank: %s, Description: %s}",
		t.ID, t.Date.Format(DateFormat), t.Amount.String(), t.Bank, t.Description)
}

// MarshalJSON implements custom JSON marshaling for Transaction. Dates are
// emitted as calendar-date strings and amounts as decimal strings.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	aux := &struct {
		Date       string  `json:"date"`
		ChargeDate *string `json:"chargeDate,omitempty"`
		Amount     string  `json:"amount"`
		Balance    *string `json:"balance,omitempty"`
		*Alias
	}{
		Date:   t.Date.Format(DateFormat),
		Amount: t.Amount.String(),
		Alias:  (*Alias)(t),
	}

	if t.ChargeDate != nil {
		s := t.ChargeDate.Format(DateFormat)
		aux.ChargeDate = &s
	}
	if t.Balance != nil {
		s := t.Balance.String()
		aux.Balance = &s
	}

	return json.Marshal(aux)
}

// UnmarshalJSON implements custom JSON unmarshaling for Transaction
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type Alias Transaction
	aux := &struct {
		Date       string  `json:"date"`
		ChargeDate *string `json:"chargeDate,omitempty"`
		Amount     string  `json:"amount"`
		Balance    *string `json:"balance,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	t.Date, err = time.Parse(DateFormat, aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	t.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	if aux.ChargeDate != nil {
		cd, err := time.Parse(DateFormat, *aux.ChargeDate)
		if err != nil {
			return fmt.Errorf("invalid charge date format: %w", err)
		}
		t.ChargeDate = &cd
	}

	if aux.Balance != nil {
		b, err := decimal.NewFromString(*aux.Balance)
		if err != nil {
			return fmt.Errorf("invalid balance format: %w", err)
		}
		t.Balance = &b
	}

	return nil
}

// IsExpense returns true if the transaction is an outflow
func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsIncome returns true if the transaction is an inflow
func (t *Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// DedupKey returns the composite key used to detect re-imported duplicates:
// calendar date, amount and the first 50 characters of the description. Two
// records sharing this key are considered the same transaction.
func (t *Transaction) DedupKey() string {
	return DedupKey(t.Date, t.Amount, t.Description)
}

// DedupKey builds the duplicate-detection key from its parts.
func DedupKey(date time.Time, amount decimal.Decimal, description string) string {
	runes := []rune(description)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return date.Format(DateFormat) + "|" + amount.String() + "|" + string(runes)
}

// NewTransactionID generates a globally unique transaction identifier:
// bank prefix, booking date, amount and a random suffix.
func NewTransactionID(bank BankType, date time.Time, amount decimal.Decimal) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s-%s", bank, date.Format("20060102"), amount.String(), suffix)
}

// DeterministicID derives a reproducible identifier from the record's
// content plus a sequence disambiguator for identical sibling rows. Used
// where stable ids are needed, e.g. golden-file tests.
func DeterministicID(bank BankType, date time.Time, amount decimal.Decimal, description string, seq int) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", bank, date.Format(DateFormat), amount.String(), description, seq)
	return fmt.Sprintf("%s-%s", bank, hex.EncodeToString(h.Sum(nil))[:16])
}

// UpcomingCharge represents a future or pending debit, typically a
// credit-card charge not yet settled against the checking account. It is
// produced from the same parse pass as transactions but routed to a
// separate collection.
type UpcomingCharge struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Bank        BankType        `json:"bank"`
}

// Validate performs basic validation on the UpcomingCharge
func (u *UpcomingCharge) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("upcoming charge ID cannot be empty")
	}

	if u.Amount.IsZero() {
		return fmt.Errorf("upcoming charge amount cannot be zero")
	}

	if u.Date.IsZero() {
		return fmt.Errorf("upcoming charge date cannot be zero")
	}

	return nil
}

// DedupKey returns the duplicate-detection key for the charge.
func (u *UpcomingCharge) DedupKey() string {
	return DedupKey(u.Date, u.Amount, u.Description)
}

// MarshalJSON implements custom JSON marshaling for UpcomingCharge
func (u *UpcomingCharge) MarshalJSON() ([]byte, error) {
	type Alias UpcomingCharge
	return json.Marshal(&struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
		*Alias
	}{
		Date:   u.Date.Format(DateFormat),
		Amount: u.Amount.String(),
		Alias:  (*Alias)(u),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for UpcomingCharge
func (u *UpcomingCharge) UnmarshalJSON(data []byte) error {
	type Alias UpcomingCharge
	aux := &struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
		*Alias
	}{
		Alias: (*Alias)(u),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	u.Date, err = time.Parse(DateFormat, aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	u.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	return nil
}

// CategoryOther is the sentinel category assigned when no rule matches.
const CategoryOther = "other"

// Category is a user-defined transaction category. Rules is an ordered
// list of lowercase substrings; the first category in store order whose
// any rule matches the lowercased description wins.
type Category struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"`
	Rules []string `json:"rules"`
}

// Validate performs basic validation on the Category
func (c *Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("category ID cannot be empty")
	}

	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name cannot be empty")
	}

	return nil
}

// DateOnly truncates a timestamp to a UTC calendar date. Parsers use it so
// that dedup keys and sorting never depend on the time-of-day component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
