// Package ports defines the interfaces between the analysis core and the
// adapters that implement parsing, detection and reporting.
//
// Dependencies flow inward: the core composes these interfaces and never
// imports an adapter package.
package ports

import (
	"github.com/soctools/logwarden/internal/domain"
)

// Classifier inspects one address's aggregated activity and returns zero or
// more threat findings in detection order. Implementations must be pure:
// same record in, same findings out.
type Classifier interface {
	Classify(rec *domain.ActivityRecord) []domain.Finding
}

// Scorer converts a record plus its findings into a bounded severity score.
//
// Contract: the result is always within [0,100] and is a pure function of
// its inputs.
type Scorer interface {
	Score(rec *domain.ActivityRecord, findings []domain.Finding) int
}

// LineParser turns one raw log line into a LogLine. A line that cannot be
// parsed returns a recoverable error; callers skip the line and continue.
type LineParser interface {
	Parse(line string) (*domain.LogLine, error)
}

// AddressFilter decides which addresses are excluded from aggregation.
type AddressFilter interface {
	// Excluded reports whether the address should be skipped, with a short
	// reason for logging ("whitelisted", "internal").
	Excluded(address string) (bool, string)
}
