package domain

import (
	"sync/atomic"
	"time"
)

// RunStats counts what the pipeline has done so far. Shared between the
// aggregator, the watch engine and the metrics exporter, so all fields use
// atomics.
type RunStats struct {
	lines       atomic.Int64
	parseErrors atomic.Int64
	filtered    atomic.Int64
	batches     atomic.Int64
	rotations   atomic.Int64
	findings    atomic.Int64

	startTime time.Time
}

// StatsSnapshot is a point-in-time copy of RunStats.
type StatsSnapshot struct {
	Lines       int64
	ParseErrors int64
	Filtered    int64
	Batches     int64
	Rotations   int64
	Findings    int64
	Uptime      time.Duration
}

func NewRunStats() *RunStats {
	return &RunStats{startTime: time.Now()}
}

func (s *RunStats) IncrementLines()       { s.lines.Add(1) }
func (s *RunStats) IncrementParseErrors() { s.parseErrors.Add(1) }
func (s *RunStats) IncrementFiltered()    { s.filtered.Add(1) }
func (s *RunStats) IncrementBatches()     { s.batches.Add(1) }
func (s *RunStats) IncrementRotations()   { s.rotations.Add(1) }
func (s *RunStats) AddFindings(n int)     { s.findings.Add(int64(n)) }

func (s *RunStats) Lines() int64       { return s.lines.Load() }
func (s *RunStats) ParseErrors() int64 { return s.parseErrors.Load() }
func (s *RunStats) Batches() int64     { return s.batches.Load() }
func (s *RunStats) Rotations() int64   { return s.rotations.Load() }

func (s *RunStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Lines:       s.lines.Load(),
		ParseErrors: s.parseErrors.Load(),
		Filtered:    s.filtered.Load(),
		Batches:     s.batches.Load(),
		Rotations:   s.rotations.Load(),
		Findings:    s.findings.Load(),
		Uptime:      time.Since(s.startTime),
	}
}
