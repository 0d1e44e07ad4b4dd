package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mkLine(addr, status, method, path string, ts time.Time) *LogLine {
	return &LogLine{
		Address:   addr,
		Timestamp: ts,
		Status:    status,
		Method:    method,
		Path:      path,
	}
}

func TestActivityRecord_CountMatchesHistograms(t *testing.T) {
	rec := NewActivityRecord("203.0.113.9")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	lines := []*LogLine{
		mkLine("203.0.113.9", "200", "GET", "/", base),
		mkLine("203.0.113.9", "404", "GET", "/missing", base.Add(time.Second)),
		mkLine("203.0.113.9", "404", "GET", "/missing", base.Add(2*time.Second)),
		mkLine("203.0.113.9", "401", "POST", "/login", base.Add(3*time.Second)),
	}
	for _, l := range lines {
		rec.Observe(l)
	}

	assert.Equal(t, 4, rec.Count)

	statusSum := 0
	for _, n := range rec.StatusCodes {
		statusSum += n
	}
	requestSum := 0
	for _, n := range rec.Requests {
		requestSum += n
	}
	assert.Equal(t, rec.Count, statusSum)
	assert.Equal(t, rec.Count, requestSum)
	assert.Equal(t, 2, rec.StatusCodes["404"])
	assert.Equal(t, 2, rec.Requests["GET /missing"])
}

func TestActivityRecord_FirstLastSeenOrderIndependent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Out-of-order arrival: latest first, earliest last.
	rec := NewActivityRecord("198.51.100.7")
	rec.Observe(mkLine("198.51.100.7", "200", "GET", "/", base.Add(time.Minute)))
	rec.Observe(mkLine("198.51.100.7", "200", "GET", "/", base.Add(30*time.Second)))
	rec.Observe(mkLine("198.51.100.7", "200", "GET", "/", base))

	assert.Equal(t, base, rec.FirstSeen)
	assert.Equal(t, base.Add(time.Minute), rec.LastSeen)
	assert.True(t, !rec.LastSeen.Before(rec.FirstSeen))
	assert.Equal(t, time.Minute, rec.Span())
}

func TestActivityRecord_RateUndefinedForSingleInstant(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := NewActivityRecord("198.51.100.8")
	for i := 0; i < 1000; i++ {
		rec.Observe(mkLine("198.51.100.8", "200", "GET", "/", base))
	}

	assert.Equal(t, 1000, rec.Count)
	assert.Equal(t, float64(0), rec.RatePerMinute())
}

func TestActivityRecord_RatePerMinute(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := NewActivityRecord("198.51.100.9")
	// 120 requests over 60 seconds -> 120 req/min.
	for i := 0; i < 120; i++ {
		rec.Observe(mkLine("198.51.100.9", "200", "GET", "/", base.Add(time.Duration(i)*500*time.Millisecond)))
	}

	assert.InDelta(t, 120.0/59.5*60, rec.RatePerMinute(), 0.01)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "fe80::1", NormalizeAddress("fe80::1%eth0"))
	assert.Equal(t, "10.0.0.1", NormalizeAddress("10.0.0.1 extra"))
	assert.Equal(t, "192.0.2.1", NormalizeAddress("192.0.2.1"))
}

func TestRunStats(t *testing.T) {
	stats := NewRunStats()
	stats.IncrementLines()
	stats.IncrementLines()
	stats.IncrementParseErrors()
	stats.IncrementBatches()
	stats.IncrementRotations()
	stats.AddFindings(3)

	snap := stats.Snapshot()
	assert.Equal(t, int64(2), snap.Lines)
	assert.Equal(t, int64(1), snap.ParseErrors)
	assert.Equal(t, int64(1), snap.Batches)
	assert.Equal(t, int64(1), snap.Rotations)
	assert.Equal(t, int64(3), snap.Findings)
}
