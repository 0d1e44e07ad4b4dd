package domain

import "sync"

// Session is the cumulative address→result map maintained for the lifetime
// of a watch run. Entries are never deleted while monitoring runs.
//
// Merge rules for an address seen in more than one batch:
//   - Count is summed (cumulative traffic volume, never overwritten)
//   - ThreatScore takes the maximum (a session never de-escalates)
//   - Findings are unioned by kind; the first detail string is kept
//
// Thread Safety: Merge and Snapshot are safe for concurrent use, though the
// watch engine serializes batch cycles by design.
type Session struct {
	mu      sync.RWMutex
	results map[string]*ScoredResult
}

func NewSession() *Session {
	return &Session{results: make(map[string]*ScoredResult)}
}

// Merge folds one batch's results into the session.
func (s *Session) Merge(batch map[string]*ScoredResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for addr, res := range batch {
		existing, ok := s.results[addr]
		if !ok {
			s.results[addr] = res
			continue
		}

		existing.Record.Count += res.Record.Count
		if res.ThreatScore > existing.ThreatScore {
			existing.ThreatScore = res.ThreatScore
		}

		seen := make(map[ThreatKind]struct{}, len(existing.Findings))
		for _, f := range existing.Findings {
			seen[f.Kind] = struct{}{}
		}
		for _, f := range res.Findings {
			if _, dup := seen[f.Kind]; !dup {
				existing.Findings = append(existing.Findings, f)
				seen[f.Kind] = struct{}{}
			}
		}

		if res.Record.FirstSeen.Before(existing.Record.FirstSeen) {
			existing.Record.FirstSeen = res.Record.FirstSeen
		}
		if res.Record.LastSeen.After(existing.Record.LastSeen) {
			existing.Record.LastSeen = res.Record.LastSeen
		}
	}
}

// Snapshot returns a shallow copy of the session map for hand-off to the
// reporting layer.
func (s *Session) Snapshot() map[string]*ScoredResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*ScoredResult, len(s.results))
	for addr, res := range s.results {
		out[addr] = res
	}
	return out
}

// Len returns the number of flagged addresses in the session.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
