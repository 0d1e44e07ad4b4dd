package app

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soctools/logwarden/internal/domain"
	"github.com/soctools/logwarden/internal/ports"
)

// BatchAnalyzer composes the aggregator, window filter, classifier and
// scorer into one "analyze this set of lines" operation. The same instance
// serves a one-shot run over a whole file and every incremental batch in
// watch mode.
type BatchAnalyzer struct {
	aggregator *Aggregator
	classifier ports.Classifier
	scorer     ports.Scorer
	stats      *domain.RunStats

	threshold int
	window    time.Duration
}

func NewBatchAnalyzer(
	aggregator *Aggregator,
	classifier ports.Classifier,
	scorer ports.Scorer,
	stats *domain.RunStats,
	threshold int,
	window time.Duration,
) *BatchAnalyzer {
	return &BatchAnalyzer{
		aggregator: aggregator,
		classifier: classifier,
		scorer:     scorer,
		stats:      stats,
		threshold:  threshold,
		window:     window,
	}
}

// Analyze aggregates the lines, keeps records whose activity span fits the
// window (inclusive) with a request count strictly above the threshold,
// and classifies and scores only those. Records outside the window are not
// "safe", merely outside this invocation's alerting criteria.
func (b *BatchAnalyzer) Analyze(lines []string) map[string]*domain.ScoredResult {
	records := b.aggregator.Ingest(lines)

	results := make(map[string]*domain.ScoredResult)
	for addr, rec := range records {
		if rec.Span() > b.window || rec.Count <= b.threshold {
			continue
		}

		findings := b.classifier.Classify(rec)
		results[addr] = &domain.ScoredResult{
			Record:      rec,
			Findings:    findings,
			ThreatScore: b.scorer.Score(rec, findings),
		}
		b.stats.AddFindings(len(findings))
	}
	return results
}

// AnalyzeFile runs one-shot analysis over a whole log file.
func (b *BatchAnalyzer) AnalyzeFile(path string) (map[string]*domain.ScoredResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), domain.MaxLineLength+1)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	log.Info().Int("lines", len(lines)).Str("file", path).Msg("Analyzing log file")
	return b.Analyze(lines), nil
}
