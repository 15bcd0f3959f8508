package alerter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/types"
)

// EscalateFunc is called when an alert is still open after its delay
type EscalateFunc func(alert types.Alert, channels []string)

// EscalationManager re-notifies channels that configure an escalation_delay
// when an alert has not been acknowledged in time.
type EscalationManager struct {
	log        zerolog.Logger
	delays     map[string]time.Duration // channel name -> delay
	onEscalate EscalateFunc
	mu         sync.Mutex
	timers     map[string]context.CancelFunc // alert id -> cancel
}

// NewEscalationManager creates a new escalation manager
func NewEscalationManager(log zerolog.Logger, channels map[string]config.ChannelConfig, onEscalate EscalateFunc) *EscalationManager {
	m := &EscalationManager{
		log:        log.With().Str("component", "escalation").Logger(),
		onEscalate: onEscalate,
		timers:     make(map[string]context.CancelFunc),
	}
	m.SetChannels(channels)
	return m
}

// SetChannels replaces the escalation delays. Running timers keep their delay.
func (m *EscalationManager) SetChannels(channels map[string]config.ChannelConfig) {
	delays := make(map[string]time.Duration)
	for name, ch := range channels {
		if ch.EscalationDelay > 0 {
			delays[name] = ch.EscalationDelay
		}
	}
	m.mu.Lock()
	m.delays = delays
	m.mu.Unlock()
}

// StartEscalation arms a timer for the alert if any of its channels escalate.
// The longest delay among those channels is used.
func (m *EscalationManager) StartEscalation(alert types.Alert, channels []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		escalationChannels []string
		maxDelay           time.Duration
	)
	for _, ch := range channels {
		delay, ok := m.delays[ch]
		if !ok {
			continue
		}
		escalationChannels = append(escalationChannels, ch)
		if delay > maxDelay {
			maxDelay = delay
		}
	}
	if len(escalationChannels) == 0 {
		return
	}

	if cancel, ok := m.timers[alert.ID]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.timers[alert.ID] = cancel

	m.log.Debug().
		Str("alert_id", alert.ID).
		Dur("delay", maxDelay).
		Strs("channels", escalationChannels).
		Msg("escalation timer started")

	go func() {
		timer := time.NewTimer(maxDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		m.mu.Lock()
		// lost the race with CancelEscalation
		if ctx.Err() != nil {
			m.mu.Unlock()
			return
		}
		delete(m.timers, alert.ID)
		m.mu.Unlock()

		m.log.Warn().
			Str("alert_id", alert.ID).
			Strs("channels", escalationChannels).
			Msg("escalating unacknowledged alert")
		if m.onEscalate != nil {
			m.onEscalate(alert, escalationChannels)
		}
	}()
}

// CancelEscalation stops the pending escalation of an alert
func (m *EscalationManager) CancelEscalation(alertID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.timers[alertID]; ok {
		cancel()
		delete(m.timers, alertID)
		m.log.Debug().Str("alert_id", alertID).Msg("escalation cancelled")
	}
}

// Pending returns the number of armed escalation timers
func (m *EscalationManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Stop cancels all pending escalation timers
func (m *EscalationManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cancel := range m.timers {
		cancel()
		delete(m.timers, id)
	}
}
