package collector

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/types"
)

const (
	defaultUpdatesBuffer = 256
	// pull towards the baseline applied on every step
	meanReversion = 0.2

	// per-tick odds for a detected threat
	threatClearChance    = 0.2
	threatEscalateChance = 0.15
	threatEaseChance     = 0.1
)

// Simulator produces synthetic pond readings on a fixed interval
type Simulator struct {
	config     *config.Config
	logger     zerolog.Logger
	rng        *rand.Rand
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	updateChan chan types.Reading
	mu         sync.RWMutex
	latest     map[string]types.Reading
	history    map[string][]types.Reading
	health     Health
}

// Health tracks simulator activity
type Health struct {
	Running     bool      `json:"running"`
	Ponds       int       `json:"ponds"`
	LastUpdate  time.Time `json:"last_update"`
	UpdateCount int64     `json:"update_count"`
}

// NewSimulator creates a simulator seeded from the global config. A zero seed
// uses the current time.
func NewSimulator(cfg *config.Config, logger zerolog.Logger) *Simulator {
	seed := cfg.Site.Global.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{
		config:     cfg,
		logger:     logger.With().Str("component", "simulator").Logger(),
		rng:        rand.New(rand.NewSource(seed)),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		updateChan: make(chan types.Reading, defaultUpdatesBuffer),
		latest:     make(map[string]types.Reading),
		history:    make(map[string][]types.Reading),
		health:     Health{Ponds: len(cfg.Site.Ponds)},
	}
}

// SetClock replaces the time source used for reading timestamps
func (s *Simulator) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetConfig applies a reloaded configuration on the next tick
func (s *Simulator) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	for pondID := range s.latest {
		if _, ok := cfg.Site.Ponds[pondID]; !ok {
			delete(s.latest, pondID)
			delete(s.history, pondID)
		}
	}
	s.health.Ponds = len(cfg.Site.Ponds)
}

// Run ticks until ctx is cancelled or Close is called
func (s *Simulator) Run(ctx context.Context) {
	s.mu.Lock()
	interval := s.config.Site.Global.SimulationInterval
	s.health.Running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.health.Running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Dur("interval", interval).Msg("Simulator started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.publish(s.Tick())
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publish(s.Tick())
		}
	}
}

// Tick advances every pond by one step and returns the new readings
func (s *Simulator) Tick() []types.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	readings := make([]types.Reading, 0, len(s.config.Site.Ponds))
	for _, pondID := range s.config.PondIDs() {
		pond := s.config.Site.Ponds[pondID]
		prev, seen := s.latest[pondID]

		values := make(map[string]float64, len(pond.Baseline))
		for _, paramID := range s.config.ParameterIDs() {
			baseline, ok := pond.Baseline[paramID]
			if !ok {
				continue
			}
			current := baseline
			if seen {
				if v, ok := prev.Values[paramID]; ok {
					current = v
				}
			}
			values[paramID] = s.step(current, baseline, s.variation(paramID, baseline))
		}

		r := types.Reading{PondID: pondID, Values: values, Timestamp: ts}
		if len(s.config.Site.Threats) > 0 {
			r.Threats = make(map[string]types.Threat, len(s.config.Site.Threats))
			for _, threatID := range s.config.ThreatIDs() {
				var current types.Threat
				if seen {
					current = prev.Threats[threatID]
				}
				r.Threats[threatID] = s.stepThreat(current, s.config.Site.Threats[threatID])
			}
		}
		s.latest[pondID] = r
		s.history[pondID] = appendRing(s.history[pondID], r, s.config.Site.Global.HistorySize)
		readings = append(readings, r)
	}

	s.health.LastUpdate = ts
	s.health.UpdateCount++
	return readings
}

func (s *Simulator) publish(readings []types.Reading) {
	for _, r := range readings {
		s.logger.Debug().
			Str("pond", r.PondID).
			Interface("values", r.Values).
			Msg("Reading generated")

		select {
		case s.updateChan <- r:
		default:
			s.logger.Warn().Str("pond", r.PondID).Msg("Update channel full, dropping reading")
		}
	}
}

// step moves current randomly while pulling it back towards baseline
func (s *Simulator) step(current, baseline, variation float64) float64 {
	next := current + (baseline-current)*meanReversion + s.rng.NormFloat64()*variation
	if next < 0 {
		next = 0
	}
	return math.Round(next*100) / 100
}

// stepThreat detects an absent threat with the configured probability. A
// detected one may clear, or move its risk one level up or down.
func (s *Simulator) stepThreat(current types.Threat, cfg config.ThreatConfig) types.Threat {
	clear := types.Threat{Risk: types.SeverityLow}
	if !current.Detected {
		if s.rng.Float64() >= cfg.Probability || len(cfg.Organisms) == 0 {
			return clear
		}
		return types.Threat{
			Detected: true,
			Organism: cfg.Organisms[s.rng.Intn(len(cfg.Organisms))],
			Risk:     types.SeverityLow,
		}
	}

	roll := s.rng.Float64()
	switch {
	case roll < threatClearChance:
		return clear
	case roll < threatClearChance+threatEscalateChance:
		current.Risk = shiftRisk(current.Risk, 1)
	case roll < threatClearChance+threatEscalateChance+threatEaseChance:
		current.Risk = shiftRisk(current.Risk, -1)
	}
	return current
}

func shiftRisk(risk types.Severity, by int) types.Severity {
	levels := []types.Severity{types.SeverityLow, types.SeverityMedium, types.SeverityHigh}
	i := risk.Rank() - 1 + by
	if i < 0 {
		i = 0
	}
	if i >= len(levels) {
		i = len(levels) - 1
	}
	return levels[i]
}

func (s *Simulator) variation(paramID string, baseline float64) float64 {
	if v := s.config.Site.Parameters[paramID].Variation; v > 0 {
		return v
	}
	if baseline == 0 {
		return 0.01
	}
	return math.Abs(baseline) * 0.02
}

func appendRing(ring []types.Reading, r types.Reading, size int) []types.Reading {
	ring = append(ring, r)
	if size > 0 && len(ring) > size {
		ring = ring[len(ring)-size:]
	}
	return ring
}

// Latest returns the most recent reading of a pond
func (s *Simulator) Latest(pondID string) (types.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.latest[pondID]
	return r, ok
}

// History returns past readings of a pond, oldest first
func (s *Simulator) History(pondID string) []types.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Reading, len(s.history[pondID]))
	copy(out, s.history[pondID])
	return out
}

// Health returns the current simulator status
func (s *Simulator) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// Updates returns the channel for receiving readings
func (s *Simulator) Updates() <-chan types.Reading {
	return s.updateChan
}

// Done returns a channel that is closed when the simulator is shut down.
func (s *Simulator) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close stops the simulator
func (s *Simulator) Close() error {
	s.cancel()
	return nil
}
