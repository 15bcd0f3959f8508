package notifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pondwatch/pondwatch/internal/alertstore"
	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/types"
)

// Kind tells which lifecycle event a notification reports
type Kind string

const (
	KindFiring    Kind = "firing"
	KindRecovered Kind = "recovered"
	KindEscalated Kind = "escalated"
)

// Message is a rendered notification
type Message struct {
	Title    string
	Body     string
	Severity types.Severity
}

// Sender delivers a message to one destination
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Channel is a configured destination with its display language
type Channel struct {
	Name   string
	Config config.ChannelConfig
	Sender Sender
}

// Notifier routes alerts to channels, rendered in each channel's language
type Notifier struct {
	logger   zerolog.Logger
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewNotifier creates a notifier with no channels
func NewNotifier(logger zerolog.Logger) *Notifier {
	return &Notifier{
		logger:   logger.With().Str("component", "notifier").Logger(),
		channels: make(map[string]*Channel),
	}
}

// Configure builds senders for every channel in cfg. Channels whose secrets
// are missing are skipped with a warning.
func (n *Notifier) Configure(cfg *config.Config) {
	channels := make(map[string]*Channel, len(cfg.Alerts.Channels))
	for name, chCfg := range cfg.Alerts.Channels {
		sender, err := newSender(chCfg, n.logger)
		if err != nil {
			n.logger.Warn().
				Err(err).
				Str("channel", name).
				Msg("Channel disabled")
			continue
		}
		channels[name] = &Channel{Name: name, Config: chCfg, Sender: sender}
	}

	n.mu.Lock()
	n.channels = channels
	n.mu.Unlock()

	n.logger.Info().Int("channels", len(channels)).Msg("Notification channels configured")
}

// SetChannel registers or replaces a single channel
func (n *Notifier) SetChannel(name string, chCfg config.ChannelConfig, sender Sender) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels[name] = &Channel{Name: name, Config: chCfg, Sender: sender}
}

// Channels returns the configured channels sorted by name
func (n *Notifier) Channels() []Channel {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Channel, 0, len(n.channels))
	for _, ch := range n.channels {
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func newSender(chCfg config.ChannelConfig, logger zerolog.Logger) (Sender, error) {
	switch chCfg.Type {
	case "apprise":
		url := os.Getenv(chCfg.URLEnv)
		if url == "" {
			return nil, fmt.Errorf("environment variable %s is empty", chCfg.URLEnv)
		}
		return NewAppriseSender(os.Getenv("APPRISE_API_URL"), url, logger), nil
	case "telegram":
		token := os.Getenv(chCfg.TokenEnv)
		if token == "" {
			return nil, fmt.Errorf("environment variable %s is empty", chCfg.TokenEnv)
		}
		return NewTelegramSender(token, chCfg.ChatID)
	case "stdout":
		return NewWriterSender(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unknown channel type %q", chCfg.Type)
	}
}

// SendAlert notifies the named channels. Delivery continues past failing
// channels; their errors are logged and returned joined.
func (n *Notifier) SendAlert(ctx context.Context, alert types.Alert, kind Kind, channelNames []string) error {
	var errs []error
	for _, name := range channelNames {
		n.mu.RLock()
		ch, ok := n.channels[name]
		n.mu.RUnlock()
		if !ok {
			n.logger.Warn().
				Str("channel", name).
				Msg("Channel not configured, skipping")
			continue
		}
		if !accepts(ch.Config.SeverityFilter, alert.Severity) {
			n.logger.Debug().
				Str("channel", name).
				Str("severity", string(alert.Severity)).
				Msg("Severity filtered out")
			continue
		}

		msg := FormatMessage(alert, kind, ch.Config.Language)
		if err := ch.Sender.Send(ctx, msg); err != nil {
			n.logger.Error().
				Err(err).
				Str("channel", name).
				Str("alert_id", alert.ID).
				Msg("Failed to send notification")
			errs = append(errs, fmt.Errorf("channel %s: %w", name, err))
			continue
		}
		n.logger.Info().
			Str("channel", name).
			Str("alert_id", alert.ID).
			Str("kind", string(kind)).
			Msg("Notification sent")
	}
	return errors.Join(errs...)
}

func accepts(filter []types.Severity, sev types.Severity) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == sev {
			return true
		}
	}
	return false
}

var severityEmoji = map[types.Severity]string{
	types.SeverityHigh:   "🔴",
	types.SeverityMedium: "⚠️",
	types.SeverityLow:    "ℹ️",
}

// FormatMessage renders an alert in lang
func FormatMessage(alert types.Alert, kind Kind, lang i18n.Language) Message {
	emoji := severityEmoji[alert.Severity]
	status := alertstore.SeverityLabel(alert.Severity, lang)
	switch kind {
	case KindRecovered:
		emoji = "🟢"
		status = i18n.T("recovered", lang)
	case KindEscalated:
		status = i18n.T("escalated", lang) + " (" + status + ")"
	}

	title := fmt.Sprintf("%s %s: %s", emoji, i18n.T("appTitle", lang), status)

	var b strings.Builder
	b.WriteString(alert.Message.Text(lang))
	fmt.Fprintf(&b, "\n\n%s: %s", i18n.T("pond", lang), alert.Pond.Text(lang))
	if len(alert.Organism) > 0 {
		fmt.Fprintf(&b, "\n%s: %s", alert.Parameter.Text(lang), alert.Organism.Text(lang))
	} else {
		fmt.Fprintf(&b, "\n%s: %s", alert.Parameter.Text(lang), i18n.FormatNumber(alert.Value, lang))
		fmt.Fprintf(&b, "\n%s: %s", i18n.T("threshold", lang), i18n.FormatNumber(alert.Threshold, lang))
	}

	return Message{Title: title, Body: b.String(), Severity: alert.Severity}
}
