// Package store persists normalized transactions, upcoming charges and
// categories in a local sqlite database, and owns the dedup-and-merge
// step that makes repeated imports of overlapping date ranges safe.
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/pkg/errors"
	"golang-statement-import-service/pkg/logger"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	date        TEXT NOT NULL,
	charge_date TEXT,
	description TEXT NOT NULL,
	amount      TEXT NOT NULL,
	balance     TEXT,
	category    TEXT,
	bank        TEXT NOT NULL,
	reference   TEXT,
	location    TEXT
);

CREATE TABLE IF NOT EXISTS upcoming_charges (
	id          TEXT PRIMARY KEY,
	date        TEXT NOT NULL,
	description TEXT NOT NULL,
	amount      TEXT NOT NULL,
	category    TEXT,
	bank        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	color    TEXT,
	rules    TEXT NOT NULL DEFAULT '[]',
	position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_upcoming_charges_date ON upcoming_charges(date);
`

// Store is a sqlite-backed transaction store. Callers are expected to
// serialize imports; the store performs no internal locking beyond
// sqlite's own.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (creating if necessary) the store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreOpenFailed, "open", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.StoreError(errors.CodeStoreOpenFailed, "schema migration", err)
	}

	log := logger.GetGlobalLogger().WithComponent("store")
	log.WithField("path", path).Debug("Opened transaction store")

	return &Store{db: db, logger: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Transactions returns all stored transactions, newest first.
func (s *Store) Transactions() ([]*models.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, date, charge_date, description, amount, balance, category, bank, reference, location
		FROM transactions ORDER BY date DESC, id`)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreQueryFailed, "load transactions", err)
	}
	defer rows.Close()

	var result []*models.Transaction
	for rows.Next() {
		var (
			tx         models.Transaction
			dateStr    string
			chargeDate sql.NullString
			amountStr  string
			balance    sql.NullString
			category   sql.NullString
			bank       string
			reference  sql.NullString
			location   sql.NullString
		)
		if err := rows.Scan(&tx.ID, &dateStr, &chargeDate, &tx.Description, &amountStr,
			&balance, &category, &bank, &reference, &location); err != nil {
			return nil, errors.StoreError(errors.CodeStoreQueryFailed, "scan transaction", err)
		}

		tx.Date, err = time.Parse(models.DateFormat, dateStr)
		if err != nil {
			return nil, errors.StoreError(errors.CodeStoreQueryFailed, "parse stored date", err)
		}
		tx.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, errors.StoreError(errors.CodeStoreQueryFailed, "parse stored amount", err)
		}
		if chargeDate.Valid {
			if cd, err := time.Parse(models.DateFormat, chargeDate.String); err == nil {
				tx.ChargeDate = &cd
			}
		}
		if balance.Valid {
			if b, err := decimal.NewFromString(balance.String); err == nil {
				tx.Balance = &b
			}
		}
		tx.Category = category.String
		tx.Bank = models.BankType(bank)
		tx.Reference = reference.String
		tx.Location = location.String

		result = append(result, &tx)
	}

	return result, rows.Err()
}

// UpcomingCharges returns all stored upcoming charges, oldest first.
func (s *Store) UpcomingCharges() ([]*models.UpcomingCharge, error) {
	rows, err := s.db.Query(`
		SELECT id, date, description, amount, category, bank
		FROM upcoming_charges ORDER BY date ASC, id`)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreQueryFailed, "load upcoming charges", err)
	}
	defer rows.Close()

	var result []*models.UpcomingCharge
	for rows.Next() {
		var (
			charge    models.UpcomingCharge
			dateStr   string
			amountStr string
			category  sql.NullString
			bank      string
		)
		if err := rows.Scan(&charge.ID, &dateStr, &charge.Description, &amountStr, &category, &bank); err != nil {
			return nil, errors.StoreError(errors.CodeStoreQueryFailed, "scan upcoming charge", err)
		}

		charge.Date, err = time.Parse(models.DateFormat, dateStr)
		if err != nil {
			return nil, errors.StoreError(errors.CodeStoreQueryFailed, "parse stored date", err)
		}
		charge.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, errors.StoreError(errors.CodeStoreQueryFailed, "parse stored amount", err)
		}
		charge.Category = category.String
		charge.Bank = models.BankType(bank)

		result = append(result, &charge)
	}

	return result, rows.Err()
}

// AddTransactions merges a freshly parsed batch into the store. Records
// whose dedup key already exists, in the store or earlier in the batch,
// are dropped; survivors are appended atomically.
func (s *Store) AddTransactions(txs []*models.Transaction, charges []*models.UpcomingCharge) (*MergeResult, error) {
	existing, err := s.Transactions()
	if err != nil {
		return nil, err
	}
	existingCharges, err := s.UpcomingCharges()
	if err != nil {
		return nil, err
	}

	merged := Merge(existing, existingCharges, txs, charges)
	if len(merged.AddedTransactions) == 0 && len(merged.AddedCharges) == 0 {
		s.logger.WithField("duplicates", merged.DuplicatesDropped).Info("Nothing new to store")
		return merged, nil
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreWriteFailed, "begin merge", err)
	}
	defer dbTx.Rollback()

	txStmt, err := dbTx.Prepare(`
		INSERT INTO transactions (id, date, charge_date, description, amount, balance, category, bank, reference, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreWriteFailed, "prepare insert", err)
	}
	defer txStmt.Close()

	for _, tx := range merged.AddedTransactions {
		var chargeDate, balance interface{}
		if tx.ChargeDate != nil {
			chargeDate = tx.ChargeDate.Format(models.DateFormat)
		}
		if tx.Balance != nil {
			balance = tx.Balance.String()
		}
		if _, err := txStmt.Exec(tx.ID, tx.Date.Format(models.DateFormat), chargeDate,
			tx.Description, tx.Amount.String(), balance, tx.Category,
			string(tx.Bank), tx.Reference, tx.Location); err != nil {
			return nil, errors.StoreError(errors.CodeStoreWriteFailed, "insert transaction", err)
		}
	}

	chargeStmt, err := dbTx.Prepare(`
		INSERT INTO upcoming_charges (id, date, description, amount, category, bank)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreWriteFailed, "prepare insert", err)
	}
	defer chargeStmt.Close()

	for _, charge := range merged.AddedCharges {
		if _, err := chargeStmt.Exec(charge.ID, charge.Date.Format(models.DateFormat),
			charge.Description, charge.Amount.String(), charge.Category, string(charge.Bank)); err != nil {
			return nil, errors.StoreError(errors.CodeStoreWriteFailed, "insert upcoming charge", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, errors.StoreError(errors.CodeStoreWriteFailed, "commit merge", err)
	}

	s.logger.WithFields(logger.Fields{
		"added_transactions": len(merged.AddedTransactions),
		"added_charges":      len(merged.AddedCharges),
		"duplicates_dropped": merged.DuplicatesDropped,
	}).Info("Merged batch into store")

	return merged, nil
}

// Categories returns the stored category list in order.
func (s *Store) Categories() ([]*models.Category, error) {
	rows, err := s.db.Query(`SELECT id, name, color, rules FROM categories ORDER BY position`)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreQueryFailed, "load categories", err)
	}
	defer rows.Close()

	var result []*models.Category
	for rows.Next() {
		var (
			cat   models.Category
			color sql.NullString
			rules string
		)
		if err := rows.Scan(&cat.ID, &cat.Name, &color, &rules); err != nil {
			return nil, errors.StoreError(errors.CodeStoreQueryFailed, "scan category", err)
		}
		cat.Color = color.String
		if err := json.Unmarshal([]byte(rules), &cat.Rules); err != nil {
			return nil, errors.StoreError(errors.CodeStoreQueryFailed, "parse category rules", err)
		}
		result = append(result, &cat)
	}

	return result, rows.Err()
}

// SaveCategories replaces the stored category list, preserving order.
func (s *Store) SaveCategories(categories []*models.Category) error {
	dbTx, err := s.db.Begin()
	if err != nil {
		return errors.StoreError(errors.CodeStoreWriteFailed, "begin category save", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM categories`); err != nil {
		return errors.StoreError(errors.CodeStoreWriteFailed, "clear categories", err)
	}

	stmt, err := dbTx.Prepare(`INSERT INTO categories (id, name, color, rules, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.StoreError(errors.CodeStoreWriteFailed, "prepare category insert", err)
	}
	defer stmt.Close()

	for i, cat := range categories {
		rules := cat.Rules
		if rules == nil {
			rules = []string{}
		}
		encoded, err := json.Marshal(rules)
		if err != nil {
			return errors.StoreError(errors.CodeStoreWriteFailed, "encode category rules", err)
		}
		if _, err := stmt.Exec(cat.ID, cat.Name, cat.Color, string(encoded), i); err != nil {
			return errors.StoreError(errors.CodeStoreWriteFailed, "insert category", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return errors.StoreError(errors.CodeStoreWriteFailed, "commit category save", err)
	}

	return nil
}
