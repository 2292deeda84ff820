package logger

import (
	"sync"
	"time"
)

// BatchProgress tracks progress across a multi-file import batch and
// periodically logs how far along the batch is.
type BatchProgress struct {
	logger      Logger
	operation   string
	totalFiles  int
	doneFiles   int
	rowsParsed  int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mu          sync.Mutex
}

// NewBatchProgress creates a progress tracker for an import batch.
func NewBatchProgress(operation string, totalFiles int, log Logger) *BatchProgress {
	if log == nil {
		log = GetGlobalLogger()
	}

	bp := &BatchProgress{
		logger:      log.WithComponent("progress"),
		operation:   operation,
		totalFiles:  totalFiles,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: 2 * time.Second,
	}

	bp.logger.WithFields(Fields{
		"operation":   operation,
		"total_files": totalFiles,
	}).Info("Starting batch")

	return bp
}

// FileDone records one completed file and the rows it contributed.
func (bp *BatchProgress) FileDone(path string, rows int) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.doneFiles++
	bp.rowsParsed += int64(rows)

	if time.Since(bp.lastLogTime) < bp.logInterval && bp.doneFiles < bp.totalFiles {
		return
	}
	bp.lastLogTime = time.Now()

	bp.logger.WithFields(Fields{
		"operation":  bp.operation,
		"file":       path,
		"done":       bp.doneFiles,
		"total":      bp.totalFiles,
		"rows":       bp.rowsParsed,
		"elapsed_ms": time.Since(bp.startTime).Milliseconds(),
	}).Info("Batch progress")
}

// Finish logs the final batch summary.
func (bp *BatchProgress) Finish() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.logger.WithFields(Fields{
		"operation": bp.operation,
		"files":     bp.doneFiles,
		"rows":      bp.rowsParsed,
		"duration":  time.Since(bp.startTime).String(),
	}).Info("Batch completed")
}
