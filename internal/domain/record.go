package domain

import (
	"time"
)

// ThreatKind identifies one class of suspicious behavior.
type ThreatKind string

const (
	ThreatBruteForce   ThreatKind = "BRUTE_FORCE"
	ThreatPortScan     ThreatKind = "PORT_SCAN"
	ThreatSQLInjection ThreatKind = "SQL_INJECTION"
	ThreatDDoS         ThreatKind = "DDoS"
)

// Finding is one classified threat plus its supporting evidence.
type Finding struct {
	Kind   ThreatKind `json:"kind"`
	Detail string     `json:"detail"`
}

// ActivityRecord accumulates everything observed for one client address.
// One instance exists per address per batch; the session keeps its own
// cumulative copy in watch mode.
type ActivityRecord struct {
	Address     string              `json:"address"`
	Count       int                 `json:"count"`
	StatusCodes map[string]int      `json:"status_codes"`
	Requests    map[string]int      `json:"requests"`
	FirstSeen   time.Time           `json:"first_seen"`
	LastSeen    time.Time           `json:"last_seen"`
	UserAgents  map[string]struct{} `json:"-"`
}

// NewActivityRecord returns an empty record with all sub-counters
// initialized. Callers never mutate a nil map.
func NewActivityRecord(address string) *ActivityRecord {
	return &ActivityRecord{
		Address:     address,
		StatusCodes: make(map[string]int),
		Requests:    make(map[string]int),
		UserAgents:  make(map[string]struct{}),
	}
}

// Observe folds one parsed line into the record. FirstSeen/LastSeen use
// min/max semantics so arrival order does not matter.
func (r *ActivityRecord) Observe(line *LogLine) {
	r.Count++
	r.StatusCodes[line.Status]++
	r.Requests[line.RequestKey()]++

	if r.FirstSeen.IsZero() || line.Timestamp.Before(r.FirstSeen) {
		r.FirstSeen = line.Timestamp
	}
	if r.LastSeen.IsZero() || line.Timestamp.After(r.LastSeen) {
		r.LastSeen = line.Timestamp
	}
	if line.UserAgent != "" {
		r.UserAgents[line.UserAgent] = struct{}{}
	}
}

// Span is the duration between the first and last observed request.
func (r *ActivityRecord) Span() time.Duration {
	if r.FirstSeen.IsZero() || r.LastSeen.IsZero() {
		return 0
	}
	return r.LastSeen.Sub(r.FirstSeen)
}

// RatePerMinute is the request rate over the record's span. Returns 0 when
// all traffic landed in the same instant: the rate is undefined there, not
// infinite, and rate-based rules must not fire.
func (r *ActivityRecord) RatePerMinute() float64 {
	span := r.Span().Seconds()
	if span <= 0 {
		return 0
	}
	return float64(r.Count) / span * 60
}

// StatusSum returns the summed occurrences of the given status codes.
func (r *ActivityRecord) StatusSum(codes []string) int {
	total := 0
	for _, code := range codes {
		total += r.StatusCodes[code]
	}
	return total
}

// ScoredResult is an address's record with its findings and clamped score,
// fully populated for the reporting layer.
type ScoredResult struct {
	Record      *ActivityRecord `json:"record"`
	Findings    []Finding       `json:"findings"`
	ThreatScore int             `json:"threat_score"`
}

// seenLayout is how reporters receive first/last-seen timestamps.
const seenLayout = "2006-01-02 15:04:05"

// FirstSeenString returns the formatted first-seen timestamp.
func (s *ScoredResult) FirstSeenString() string {
	return s.Record.FirstSeen.Format(seenLayout)
}

// LastSeenString returns the formatted last-seen timestamp.
func (s *ScoredResult) LastSeenString() string {
	return s.Record.LastSeen.Format(seenLayout)
}

// HasFinding reports whether a finding of the given kind is present.
func (s *ScoredResult) HasFinding(kind ThreatKind) bool {
	for _, f := range s.Findings {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
