// Package importer orchestrates statement imports: each file runs through
// the parser dispatcher, the categorizer and the store's dedup-and-merge,
// sequentially and with per-file failure isolation so one bad file never
// aborts the rest of the batch.
package importer

import (
	"context"
	"time"

	"golang-statement-import-service/internal/categorizer"
	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/parsers"
	"golang-statement-import-service/internal/store"
	"golang-statement-import-service/pkg/errors"
	"golang-statement-import-service/pkg/logger"
)

// FileResult reports the outcome of importing one file.
type FileResult struct {
	Path              string               `json:"path"`
	Parser            string               `json:"parser,omitempty"`
	Transactions      int                  `json:"transactions"`
	UpcomingCharges   int                  `json:"upcomingCharges"`
	Skipped           []parsers.SkippedRow `json:"skipped,omitempty"`
	Added             int                  `json:"added"`
	DuplicatesDropped int                  `json:"duplicatesDropped"`
	Err               error                `json:"-"`
	ErrorMessage      string               `json:"error,omitempty"`
}

// Failed reports whether the file import failed outright.
func (fr *FileResult) Failed() bool {
	return fr.Err != nil
}

// BatchResult reports the outcome of a whole import batch.
type BatchResult struct {
	Files                []*FileResult `json:"files"`
	TotalAdded           int           `json:"totalAdded"`
	TotalDuplicates      int           `json:"totalDuplicates"`
	StoreTransactions    int           `json:"storeTransactions"`
	StoreUpcomingCharges int           `json:"storeUpcomingCharges"`
	Duration             time.Duration `json:"-"`
}

// FailedFiles returns how many files in the batch failed.
func (br *BatchResult) FailedFiles() int {
	n := 0
	for _, f := range br.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

// Importer wires the dispatcher, categorizer and store into the import
// pipeline. Imports are processed one file at a time; the caller is
// expected to serialize concurrent batches against the same store.
type Importer struct {
	dispatcher  *parsers.Dispatcher
	store       *store.Store
	categorizer *categorizer.Categorizer
	logger      logger.Logger
}

// New creates an Importer over an open store and a category list.
func New(st *store.Store, categories []*models.Category, newID parsers.IDGenerator) *Importer {
	return &Importer{
		dispatcher:  parsers.NewDispatcher(newID),
		store:       st,
		categorizer: categorizer.New(categories),
		logger:      logger.GetGlobalLogger().WithComponent("importer"),
	}
}

// ImportFiles imports the given statement files sequentially. Each file's
// success or failure is reported independently in the batch result; only
// a store failure or context cancellation aborts the batch early.
func (imp *Importer) ImportFiles(ctx context.Context, paths []string, hint models.BankHint) (*BatchResult, error) {
	started := time.Now()
	batch := &BatchResult{}
	progress := logger.NewBatchProgress("import", len(paths), imp.logger)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return batch, errors.Wrap(err, errors.CategoryImport, errors.CodeImportFailed, "import batch cancelled")
		}

		result := imp.importFile(path, hint)
		batch.Files = append(batch.Files, result)
		batch.TotalAdded += result.Added
		batch.TotalDuplicates += result.DuplicatesDropped
		progress.FileDone(path, result.Transactions+result.UpcomingCharges)
	}
	progress.Finish()

	storedTx, err := imp.store.Transactions()
	if err != nil {
		return batch, err
	}
	storedCharges, err := imp.store.UpcomingCharges()
	if err != nil {
		return batch, err
	}
	batch.StoreTransactions = len(storedTx)
	batch.StoreUpcomingCharges = len(storedCharges)
	batch.Duration = time.Since(started)

	imp.logger.WithFields(logger.Fields{
		"files":       len(batch.Files),
		"failed":      batch.FailedFiles(),
		"added":       batch.TotalAdded,
		"duplicates":  batch.TotalDuplicates,
		"store_total": batch.StoreTransactions,
		"duration_ms": batch.Duration.Milliseconds(),
	}).Info("Import batch finished")

	return batch, nil
}

// importFile parses, categorizes and merges a single file. Parse failures
// are captured on the result instead of propagating.
func (imp *Importer) importFile(path string, hint models.BankHint) *FileResult {
	result := &FileResult{Path: path}

	parsed, err := imp.dispatcher.ParseFile(path, hint)
	if err != nil {
		imp.logger.WithError(err).WithField("file", path).Error("File import failed")
		result.Err = err
		result.ErrorMessage = err.Error()
		return result
	}

	result.Parser = parsed.Parser
	result.Transactions = len(parsed.Transactions)
	result.UpcomingCharges = len(parsed.UpcomingCharges)
	result.Skipped = parsed.Skipped

	imp.categorizer.Apply(parsed.Transactions, parsed.UpcomingCharges)

	merged, err := imp.store.AddTransactions(parsed.Transactions, parsed.UpcomingCharges)
	if err != nil {
		imp.logger.WithError(err).WithField("file", path).Error("Store merge failed")
		result.Err = err
		result.ErrorMessage = err.Error()
		return result
	}

	result.Added = len(merged.AddedTransactions) + len(merged.AddedCharges)
	result.DuplicatesDropped = merged.DuplicatesDropped

	imp.logger.WithFields(logger.Fields{
		"file":       path,
		"parser":     result.Parser,
		"parsed":     result.Transactions + result.UpcomingCharges,
		"added":      result.Added,
		"duplicates": result.DuplicatesDropped,
		"skipped":    len(result.Skipped),
	}).Info("Imported file")

	return result
}
