package app

import (
	"github.com/rs/zerolog/log"

	"github.com/soctools/logwarden/internal/domain"
	"github.com/soctools/logwarden/internal/ports"
	"github.com/soctools/logwarden/pkg/sanitize"
)

// rawPrefixLen bounds how much of a bad line ends up in the warning log.
const rawPrefixLen = 50

// Aggregator folds a batch of raw lines into per-address activity records.
//
// Per-line filters, in order, each a short-circuit skip: parse failure
// (warned with line number and raw prefix), whitelisted address, internal
// address when internal exclusion is on. Surviving lines update the
// address's record with min/max first/last-seen semantics.
type Aggregator struct {
	parser ports.LineParser
	filter ports.AddressFilter
	stats  *domain.RunStats
}

func NewAggregator(parser ports.LineParser, filter ports.AddressFilter, stats *domain.RunStats) *Aggregator {
	if stats == nil {
		stats = domain.NewRunStats()
	}
	return &Aggregator{parser: parser, filter: filter, stats: stats}
}

// Ingest processes one batch. Line numbers in warnings are 1-based within
// the batch. No error return: every per-line condition is recoverable.
func (a *Aggregator) Ingest(lines []string) map[string]*domain.ActivityRecord {
	records := make(map[string]*domain.ActivityRecord)

	for i, raw := range lines {
		if raw == "" {
			continue
		}
		a.stats.IncrementLines()

		parsed, err := a.parser.Parse(raw)
		if err != nil {
			a.stats.IncrementParseErrors()
			log.Warn().
				Int("line", i+1).
				Str("raw", sanitize.Line(raw, rawPrefixLen)).
				Msg("Parse error, line skipped")
			continue
		}

		if a.filter != nil {
			if skip, reason := a.filter.Excluded(parsed.Address); skip {
				a.stats.IncrementFiltered()
				log.Debug().
					Str("address", parsed.Address).
					Str("reason", reason).
					Msg("Address filtered")
				continue
			}
		}

		rec, ok := records[parsed.Address]
		if !ok {
			rec = domain.NewActivityRecord(parsed.Address)
			records[parsed.Address] = rec
		}
		rec.Observe(parsed)
	}
	return records
}
