package alerter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pondwatch/pondwatch/internal/alertstore"
	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/evaluator"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/notifier"
	"github.com/pondwatch/pondwatch/internal/types"
)

const notifyTimeout = 15 * time.Second

// Dispatcher delivers alert notifications to named channels
type Dispatcher interface {
	SendAlert(ctx context.Context, alert types.Alert, kind notifier.Kind, channels []string) error
}

// liveAlert is the open alert of a pond parameter
type liveAlert struct {
	ID       string
	Severity types.Severity
	FiredAt  time.Time
}

// Engine turns threshold state changes into stored alerts and notifications
type Engine struct {
	config     *config.Config
	store      *alertstore.Store
	dispatcher Dispatcher
	flap       *FlapDetector
	escalation *EscalationManager
	logger     zerolog.Logger
	now        func() time.Time
	newID      func() string
	live       map[string]liveAlert // pond|parameter -> open alert
	mu         sync.Mutex
}

// NewEngine creates a new alert engine writing into store
func NewEngine(cfg *config.Config, store *alertstore.Store, dispatcher Dispatcher, logger zerolog.Logger) *Engine {
	e := &Engine{
		config:     cfg,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "alerter").Logger(),
		now:        time.Now,
		newID:      uuid.NewString,
		live:       make(map[string]liveAlert),
	}
	behavior := cfg.Alerts.AlertBehavior
	e.flap = NewFlapDetector(logger, behavior.Flap.Threshold, behavior.Flap.Window)
	e.escalation = NewEscalationManager(logger, cfg.Alerts.Channels, e.escalate)
	return e
}

// SetClock replaces the time source for alert timestamps and windows
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
	e.flap.mu.Lock()
	e.flap.now = now
	e.flap.mu.Unlock()
}

// SetConfig applies a reloaded configuration
func (e *Engine) SetConfig(cfg *config.Config) {
	e.mu.Lock()
	e.config = cfg
	e.mu.Unlock()
	e.escalation.SetChannels(cfg.Alerts.Channels)
}

// Store returns the alert collection the engine writes to
func (e *Engine) Store() *alertstore.Store {
	return e.store
}

// ProcessStateChange creates, deduplicates or clears alerts for a change
func (e *Engine) ProcessStateChange(change evaluator.StateChange) {
	key := change.Key()

	flapping, justStarted := e.flap.RecordChange(key)
	if flapping {
		if justStarted {
			e.logger.Warn().
				Str("pond", change.PondID).
				Str("parameter", change.ParameterID).
				Msg("Parameter is flapping, suppressing alerts")
		}
		if change.Recovered() {
			e.clearLive(key)
		}
		return
	}

	if change.Recovered() {
		e.resolve(key)
		return
	}

	e.mu.Lock()
	now := e.now()
	if existing, ok := e.live[key]; ok &&
		existing.Severity.Rank() >= change.Severity.Rank() &&
		now.Sub(existing.FiredAt) < e.config.Alerts.AlertBehavior.DeduplicationWindow {
		e.mu.Unlock()
		e.logger.Debug().
			Str("alert_id", existing.ID).
			Str("key", key).
			Msg("Alert already open, skipping duplicate")
		return
	}

	alert := e.buildAlert(change, now)
	if err := e.store.Add(alert); err != nil {
		e.mu.Unlock()
		e.logger.Error().Err(err).Str("key", key).Msg("Failed to store alert")
		return
	}
	e.live[key] = liveAlert{ID: alert.ID, Severity: alert.Severity, FiredAt: now}
	channels := e.config.ChannelsForSeverity(string(alert.Severity))
	e.mu.Unlock()

	e.logger.Info().
		Str("alert_id", alert.ID).
		Str("pond", alert.PondID).
		Str("parameter", alert.ParameterID).
		Str("severity", string(alert.Severity)).
		Float64("value", alert.Value).
		Msg("Alert fired")

	e.dispatch(alert, notifier.KindFiring, channels)
	e.escalation.StartEscalation(alert, channels)
}

// resolve clears the open alert of key and sends a recovery notification.
// The stored alert is kept.
func (e *Engine) resolve(key string) {
	live, ok := e.clearLive(key)
	if !ok {
		return
	}
	alert, err := e.store.Get(live.ID)
	if err != nil {
		e.logger.Error().Err(err).Str("alert_id", live.ID).Msg("Open alert missing from store")
		return
	}

	e.logger.Info().
		Str("alert_id", alert.ID).
		Dur("duration", e.now().Sub(live.FiredAt)).
		Msg("Alert resolved")

	e.mu.Lock()
	channels := e.config.ChannelsForSeverity(string(alert.Severity))
	e.mu.Unlock()
	e.dispatch(alert, notifier.KindRecovered, channels)
}

func (e *Engine) clearLive(key string) (liveAlert, bool) {
	e.mu.Lock()
	live, ok := e.live[key]
	delete(e.live, key)
	e.mu.Unlock()
	if ok {
		e.escalation.CancelEscalation(live.ID)
	}
	return live, ok
}

// Acknowledge marks an alert as seen and stops its escalation. Unknown ids
// return alertstore.ErrNotFound.
func (e *Engine) Acknowledge(id string) error {
	if err := e.store.Acknowledge(id); err != nil {
		return err
	}
	e.escalation.CancelEscalation(id)
	e.logger.Info().Str("alert_id", id).Msg("Alert acknowledged")
	return nil
}

// escalate re-notifies channels if the alert is still unacknowledged
func (e *Engine) escalate(alert types.Alert, channels []string) {
	current, err := e.store.Get(alert.ID)
	if err != nil || current.Acknowledged {
		return
	}
	e.dispatch(current, notifier.KindEscalated, channels)
}

func (e *Engine) dispatch(alert types.Alert, kind notifier.Kind, channels []string) {
	if e.dispatcher == nil || len(channels) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := e.dispatcher.SendAlert(ctx, alert, kind, channels); err != nil {
		e.logger.Error().
			Err(err).
			Str("alert_id", alert.ID).
			Str("kind", string(kind)).
			Msg("Failed to send alert notification")
	}
}

// Housekeeping drops stale flap history. Scheduled by cron.
func (e *Engine) Housekeeping() {
	e.flap.Cleanup()

	e.mu.Lock()
	open := len(e.live)
	e.mu.Unlock()

	e.logger.Debug().
		Int("open", open).
		Int("flapping", len(e.flap.Flapping())).
		Int("escalations", e.escalation.Pending()).
		Msg("Housekeeping done")
}

// Flapping returns the pond|parameter keys currently suppressed
func (e *Engine) Flapping() []string {
	return e.flap.Flapping()
}

// Stop cancels pending escalations
func (e *Engine) Stop() {
	e.escalation.Stop()
}

// buildAlert renders the alert labels in every supported language
func (e *Engine) buildAlert(change evaluator.StateChange, now time.Time) types.Alert {
	pond := e.config.Site.Ponds[change.PondID]

	label := e.config.Site.Parameters[change.ParameterID].Label
	if change.Condition == evaluator.ConditionDetected {
		label = e.config.Site.Threats[change.ParameterID].Label
	}

	message := make(i18n.Label, len(i18n.Supported))
	for _, lang := range i18n.Supported {
		if change.Condition == evaluator.ConditionDetected {
			message[lang] = threatMessage(label, change, lang)
			continue
		}
		message[lang] = alertMessage(e.config.Site.Parameters[change.ParameterID], change, lang)
	}

	return types.Alert{
		ID:          e.newID(),
		PondID:      change.PondID,
		Pond:        pond.Name.Clone(),
		ParameterID: change.ParameterID,
		Parameter:   label.Clone(),
		Severity:    change.Severity,
		Message:     message,
		Value:       change.Value,
		Threshold:   change.Threshold,
		Organism:    change.Organism.Clone(),
		Timestamp:   now,
	}
}

// threatMessage reads like "Menace biologique détectée: Champignons,
// Saprolegnia (risque élevé)"
func threatMessage(label i18n.Label, change evaluator.StateChange, lang i18n.Language) string {
	return fmt.Sprintf("%s: %s, %s (%s %s)",
		i18n.T("threatDetected", lang),
		label.Text(lang),
		change.Organism.Text(lang),
		i18n.T("risk", lang),
		i18n.T("risk."+string(change.Severity), lang),
	)
}

// alertMessage reads like "Température critique: 29.1°C (Seuil: 28°C)"
func alertMessage(param config.ParameterConfig, change evaluator.StateChange, lang i18n.Language) string {
	qualifier := i18n.T("above", lang)
	if change.Condition == "<" {
		qualifier = i18n.T("below", lang)
	}
	if change.Severity == types.SeverityHigh {
		qualifier = i18n.T("criticalQualifier", lang)
	}
	return fmt.Sprintf("%s %s: %s (%s: %s)",
		param.Label.Text(lang),
		qualifier,
		withUnit(change.Value, param.Unit),
		i18n.T("threshold", lang),
		withUnit(change.Threshold, param.Unit),
	)
}

func withUnit(v float64, unit string) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if unit == "" {
		return s
	}
	if strings.HasPrefix(unit, "°") {
		return s + unit
	}
	return s + " " + unit
}
