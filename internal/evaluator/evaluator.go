package evaluator

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/types"
)

// Evaluator compares pond readings against configured thresholds
type Evaluator struct {
	config     *config.Config
	logger     zerolog.Logger
	stateCache map[string]parameterState
	mu         sync.RWMutex
}

// parameterState is the last evaluated state of one pond parameter
type parameterState struct {
	Severity  types.Severity
	Value     float64
	UpdatedAt time.Time
}

// StateChange represents a detected breach, escalation or recovery
type StateChange struct {
	PondID      string
	ParameterID string
	// Severity is empty when the parameter recovered
	Severity  types.Severity
	Previous  types.Severity
	Condition string
	Value     float64
	Threshold float64
	// Organism is set for biological threat detections
	Organism  i18n.Label
	Timestamp time.Time
}

// ConditionDetected marks a change raised by a biological threat
const ConditionDetected = "detected"

// Recovered reports whether the parameter went back inside its thresholds
func (c StateChange) Recovered() bool {
	return c.Severity == ""
}

// Key identifies the pond parameter the change applies to
func (c StateChange) Key() string {
	return stateKey(c.PondID, c.ParameterID)
}

// NewEvaluator creates a new threshold evaluator
func NewEvaluator(cfg *config.Config, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		config:     cfg,
		logger:     logger.With().Str("component", "evaluator").Logger(),
		stateCache: make(map[string]parameterState),
	}
}

// SetConfig swaps thresholds after a reload. Cached states are kept so open
// breaches are not reported twice.
func (e *Evaluator) SetConfig(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = cfg
	for key := range e.stateCache {
		pondID, paramID := splitKey(key)
		if _, ok := cfg.Site.Ponds[pondID]; !ok {
			delete(e.stateCache, key)
			continue
		}
		_, isParam := cfg.Site.Parameters[paramID]
		_, isThreat := cfg.Site.Threats[paramID]
		if !isParam && !isThreat {
			delete(e.stateCache, key)
		}
	}
}

// EvaluateReading processes a reading and returns the resulting state changes
func (e *Evaluator) EvaluateReading(reading types.Reading) []StateChange {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.config.Site.Ponds[reading.PondID]; !ok {
		e.logger.Debug().Str("pond", reading.PondID).Msg("Skipping reading for unknown pond")
		return nil
	}

	var changes []StateChange
	for _, paramID := range e.config.ParameterIDs() {
		value, ok := reading.Values[paramID]
		if !ok {
			continue
		}
		breached, hit := highestBreach(e.config.Site.Parameters[paramID].Thresholds, value)
		change := StateChange{
			PondID:      reading.PondID,
			ParameterID: paramID,
			Value:       value,
			Timestamp:   reading.Timestamp,
		}
		if breached != "" {
			change.Condition = hit.Condition
			change.Threshold = hit.Value
		}
		if c, ok := e.transition(change, breached); ok {
			changes = append(changes, c)
		}
	}

	for _, threatID := range e.config.ThreatIDs() {
		threat, ok := reading.Threats[threatID]
		if !ok {
			continue
		}
		var risk types.Severity
		change := StateChange{
			PondID:      reading.PondID,
			ParameterID: threatID,
			Timestamp:   reading.Timestamp,
		}
		if threat.Detected {
			risk = threat.Risk
			change.Condition = ConditionDetected
			change.Organism = threat.Organism
		}
		if c, ok := e.transition(change, risk); ok {
			changes = append(changes, c)
		}
	}

	for _, c := range changes {
		e.logger.Debug().
			Str("pond", c.PondID).
			Str("parameter", c.ParameterID).
			Str("severity", string(c.Severity)).
			Str("previous", string(c.Previous)).
			Float64("value", c.Value).
			Msg("State change detected")
	}

	return changes
}

// transition caches the new severity of a pond parameter or threat. It
// reports a change for a breach, an escalation or a recovery; a drop to a
// lower breach only updates the cache. Must be called with mu held.
func (e *Evaluator) transition(change StateChange, severity types.Severity) (StateChange, bool) {
	key := change.Key()
	prev := e.stateCache[key]
	e.stateCache[key] = parameterState{
		Severity:  severity,
		Value:     change.Value,
		UpdatedAt: change.Timestamp,
	}

	change.Previous = prev.Severity
	switch {
	case severity != "" && severity.Rank() > prev.Severity.Rank():
		change.Severity = severity
		return change, true
	case severity == "" && prev.Severity != "":
		change.Condition = ""
		change.Threshold = 0
		change.Organism = nil
		return change, true
	default:
		return StateChange{}, false
	}
}

// Breaches returns the open breach severity per parameter for a pond
func (e *Evaluator) Breaches(pondID string) map[string]types.Severity {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]types.Severity)
	add := func(id string) {
		if st, ok := e.stateCache[stateKey(pondID, id)]; ok && st.Severity != "" {
			out[id] = st.Severity
		}
	}
	for paramID := range e.config.Site.Parameters {
		add(paramID)
	}
	for threatID := range e.config.Site.Threats {
		add(threatID)
	}
	return out
}

// PondStatus reports critical when any high breach is open, warning for
// lower breaches and optimal otherwise.
func (e *Evaluator) PondStatus(pondID string) types.PondStatus {
	status := types.StatusOptimal
	for _, sev := range e.Breaches(pondID) {
		if sev == types.SeverityHigh {
			return types.StatusCritical
		}
		status = types.StatusWarning
	}
	return status
}

// highestBreach returns the most severe threshold crossed by value
func highestBreach(thresholds []config.ThresholdConfig, value float64) (types.Severity, config.ThresholdConfig) {
	var (
		best types.Severity
		hit  config.ThresholdConfig
	)
	for _, th := range thresholds {
		if !breaches(th, value) {
			continue
		}
		if th.Severity.Rank() > best.Rank() {
			best = th.Severity
			hit = th
		}
	}
	return best, hit
}

func breaches(th config.ThresholdConfig, value float64) bool {
	switch th.Condition {
	case ">":
		return value > th.Value
	case "<":
		return value < th.Value
	default:
		return false
	}
}

func stateKey(pondID, paramID string) string {
	return fmt.Sprintf("%s|%s", pondID, paramID)
}

func splitKey(key string) (string, string) {
	pondID, paramID, _ := strings.Cut(key, "|")
	return pondID, paramID
}
