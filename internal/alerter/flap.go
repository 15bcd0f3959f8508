package alerter

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FlapDetector suppresses alerts for pond parameters that keep crossing
// their thresholds back and forth.
type FlapDetector struct {
	log       zerolog.Logger
	threshold int
	window    time.Duration
	now       func() time.Time
	mu        sync.Mutex
	history   map[string][]time.Time // pond|parameter -> change times
	flapping  map[string]bool
}

// NewFlapDetector creates a detector that flags a key once threshold changes
// happen inside window.
func NewFlapDetector(log zerolog.Logger, threshold int, window time.Duration) *FlapDetector {
	return &FlapDetector{
		log:       log.With().Str("component", "flap-detector").Logger(),
		threshold: threshold,
		window:    window,
		now:       time.Now,
		history:   make(map[string][]time.Time),
		flapping:  make(map[string]bool),
	}
}

// RecordChange records a state change. justStarted is true only on the change
// that made the key flap.
func (f *FlapDetector) RecordChange(key string) (flapping bool, justStarted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	pruned := prune(f.history[key], now.Add(-f.window))
	pruned = append(pruned, now)
	f.history[key] = pruned

	if f.threshold <= 0 || len(pruned) < f.threshold {
		return false, false
	}

	wasFlapping := f.flapping[key]
	f.flapping[key] = true
	if !wasFlapping {
		f.log.Warn().Str("key", key).Int("changes", len(pruned)).Msg("flapping detected")
		return true, true
	}
	return true, false
}

// IsFlapping returns whether a key is currently marked as flapping
func (f *FlapDetector) IsFlapping(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flapping[key]
}

// Flapping returns the flapping keys in sorted order
func (f *FlapDetector) Flapping() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.flapping))
	for k := range f.flapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cleanup forgets changes older than the window and clears keys that have
// calmed down. Called from the housekeeping schedule.
func (f *FlapDetector) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.now().Add(-f.window)
	for key, timestamps := range f.history {
		pruned := prune(timestamps, cutoff)
		if len(pruned) == 0 {
			delete(f.history, key)
			delete(f.flapping, key)
			continue
		}
		f.history[key] = pruned
		if f.flapping[key] && len(pruned) < f.threshold {
			delete(f.flapping, key)
			f.log.Info().Str("key", key).Msg("flapping stopped")
		}
	}
}

func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	out := make([]time.Time, 0, len(timestamps)+1)
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			out = append(out, ts)
		}
	}
	return out
}
