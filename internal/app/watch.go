package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/soctools/logwarden/internal/adapters/input"
	"github.com/soctools/logwarden/internal/domain"
	"github.com/soctools/logwarden/internal/ports"
)

// WatchEngine runs the continuous-monitoring loop: detect file growth,
// read only the newly appended lines, analyze them as one batch and merge
// the results into the cumulative session.
//
// One tail-read-and-merge cycle executes at a time. Change notifications
// and poll ticks are coalesced into a single pending flag, and a minimum
// re-analysis interval gates consecutive cycles, so overlapping events are
// never processed in parallel against the same tail state and session.
type WatchEngine struct {
	tail     *input.TailMonitor
	analyzer *BatchAnalyzer
	session  *domain.Session
	stats    *domain.RunStats

	minInterval time.Duration
	observers   []ports.BatchObserver
}

func NewWatchEngine(tail *input.TailMonitor, analyzer *BatchAnalyzer, stats *domain.RunStats, minInterval time.Duration) *WatchEngine {
	if minInterval <= 0 {
		minInterval = 5 * time.Second
	}
	return &WatchEngine{
		tail:        tail,
		analyzer:    analyzer,
		session:     domain.NewSession(),
		stats:       stats,
		minInterval: minInterval,
	}
}

// AddObserver registers a subscriber notified after every merged batch.
func (w *WatchEngine) AddObserver(obs ports.BatchObserver) {
	w.observers = append(w.observers, obs)
}

// Session exposes the cumulative state, mainly for metrics gauges.
func (w *WatchEngine) Session() *domain.Session {
	return w.session
}

// Run watches the file until the context is cancelled, then returns the
// cumulative session map for hand-off to the reporting layer. The only
// clean termination path is cancellation; per-cycle errors are logged and
// retried, never fatal.
func (w *WatchEngine) Run(ctx context.Context, path string, fromBeginning bool) (map[string]*domain.ScoredResult, error) {
	if err := w.tail.Prime(fromBeginning); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("File notifications unavailable, polling only")
	} else {
		defer watcher.Close()
		// Watch the directory: rotation replaces the file, and a watch on
		// the old inode would go silent.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			log.Warn().Err(err).Str("dir", filepath.Dir(path)).Msg("Cannot watch log directory, polling only")
		}
	}

	ticker := time.NewTicker(w.minInterval)
	defer ticker.Stop()

	log.Info().
		Str("file", path).
		Dur("min_interval", w.minInterval).
		Int64("offset", w.tail.Offset()).
		Msg("Watch mode started")

	var events <-chan fsnotify.Event
	var errors <-chan error
	if watcher != nil {
		events = watcher.Events
		errors = watcher.Errors
	}

	pending := false
	var lastCycle time.Time
	for {
		select {
		case <-ctx.Done():
			// Drain anything appended since the last cycle before the
			// final hand-off.
			w.cycle()
			log.Info().Int("addresses", w.session.Len()).Msg("Watch mode stopped")
			return w.session.Snapshot(), nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Name != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = true

		case err, ok := <-errors:
			if !ok {
				errors = nil
				continue
			}
			log.Warn().Err(err).Msg("File watcher error")

		case <-ticker.C:
			pending = true
		}

		if pending && time.Since(lastCycle) >= w.minInterval {
			w.cycle()
			lastCycle = time.Now()
			pending = false
		}
	}
}

// cycle performs one serialized tail-read-and-merge pass.
func (w *WatchEngine) cycle() {
	lines, rotated, err := w.tail.ReadNew()
	if rotated {
		w.stats.IncrementRotations()
	}
	if err != nil {
		// Offset was not advanced; the next cycle retries the same bytes.
		log.Warn().Err(err).Msg("Tail read failed, cycle aborted")
		return
	}
	if len(lines) == 0 {
		return
	}

	log.Debug().Int("lines", len(lines)).Msg("New log entries")

	results := w.analyzer.Analyze(lines)
	w.stats.IncrementBatches()
	if len(results) == 0 {
		return
	}

	w.session.Merge(results)
	for _, obs := range w.observers {
		obs.OnBatch(results)
	}
}
