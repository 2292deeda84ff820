package store

import (
	"sort"

	"golang-statement-import-service/internal/models"
)

// MergeResult describes the outcome of merging a freshly parsed batch
// into the existing record set.
type MergeResult struct {
	// Transactions is the full merged list, sorted descending by date.
	Transactions []*models.Transaction
	// UpcomingCharges is the full merged list, sorted ascending by date.
	UpcomingCharges []*models.UpcomingCharge
	// AddedTransactions are the new-batch survivors that were appended.
	AddedTransactions []*models.Transaction
	// AddedCharges are the new-batch survivors that were appended.
	AddedCharges []*models.UpcomingCharge
	// DuplicatesDropped counts new-batch records rejected as duplicates.
	DuplicatesDropped int
}

// Merge deduplicates a new batch against existing records and appends the
// survivors. The dedup key is date, amount and the first 50 characters of
// the description; a new record whose key already exists, either in the
// store or earlier in the same batch, is dropped (first occurrence wins).
// Re-importing an identical file is therefore a net no-op.
func Merge(existingTx []*models.Transaction, existingCharges []*models.UpcomingCharge,
	newTx []*models.Transaction, newCharges []*models.UpcomingCharge) *MergeResult {

	result := &MergeResult{
		Transactions:    append([]*models.Transaction(nil), existingTx...),
		UpcomingCharges: append([]*models.UpcomingCharge(nil), existingCharges...),
	}

	txKeys := make(map[string]struct{}, len(existingTx))
	for _, tx := range existingTx {
		txKeys[tx.DedupKey()] = struct{}{}
	}

	for _, tx := range newTx {
		key := tx.DedupKey()
		if _, dup := txKeys[key]; dup {
			result.DuplicatesDropped++
			continue
		}
		txKeys[key] = struct{}{}
		result.Transactions = append(result.Transactions, tx)
		result.AddedTransactions = append(result.AddedTransactions, tx)
	}

	chargeKeys := make(map[string]struct{}, len(existingCharges))
	for _, charge := range existingCharges {
		chargeKeys[charge.DedupKey()] = struct{}{}
	}

	for _, charge := range newCharges {
		key := charge.DedupKey()
		if _, dup := chargeKeys[key]; dup {
			result.DuplicatesDropped++
			continue
		}
		chargeKeys[key] = struct{}{}
		result.UpcomingCharges = append(result.UpcomingCharges, charge)
		result.AddedCharges = append(result.AddedCharges, charge)
	}

	sort.SliceStable(result.Transactions, func(i, j int) bool {
		return result.Transactions[i].Date.After(result.Transactions[j].Date)
	})
	sort.SliceStable(result.UpcomingCharges, func(i, j int) bool {
		return result.UpcomingCharges[i].Date.Before(result.UpcomingCharges[j].Date)
	})

	return result
}
