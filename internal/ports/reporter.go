package ports

import (
	"context"

	"github.com/soctools/logwarden/internal/domain"
)

// Reporter receives the fully populated address→result map. The reporting
// layer performs no further aggregation, only presentation.
//
// Implementations:
//   - JSONReporter: machine-readable report file or stdout
//   - CSVReporter: spreadsheet-friendly summary
//
// Thread Safety: Report is called once per hand-off from a single goroutine.
type Reporter interface {
	Report(ctx context.Context, results map[string]*domain.ScoredResult) error

	// Close flushes and releases the underlying destination.
	Close() error
}

// BatchObserver is notified after each watch-mode batch cycle. Used by the
// metrics exporter and by alert printers; implementations must return
// quickly to avoid delaying the next cycle.
type BatchObserver interface {
	OnBatch(results map[string]*domain.ScoredResult)
}
