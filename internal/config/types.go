package config

import (
	"time"

	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/types"
)

// Config represents the complete pondwatch configuration
type Config struct {
	Site   SiteConfig
	Alerts AlertConfig
}

// SiteConfig is loaded from ponds.yaml
type SiteConfig struct {
	Global     GlobalConfig               `yaml:"global"`
	Ponds      map[string]PondConfig      `yaml:"ponds"`
	Parameters map[string]ParameterConfig `yaml:"parameters"`
	Threats    map[string]ThreatConfig    `yaml:"threats"`
}

// GlobalConfig contains global settings
type GlobalConfig struct {
	DefaultLanguage    i18n.Language `yaml:"default_language"`
	ListenPort         string        `yaml:"listen_port"`
	SimulationInterval time.Duration `yaml:"simulation_interval"`
	HistorySize        int           `yaml:"history_size"`
	Seed               int64         `yaml:"seed"`
	TimeZone           string        `yaml:"timezone,omitempty"`
}

// PondConfig describes one monitored pond
type PondConfig struct {
	Name     i18n.Label         `yaml:"name"`
	FishType i18n.Label         `yaml:"fish_type,omitempty"`
	Capacity float64            `yaml:"capacity"`
	Location string             `yaml:"location,omitempty"`
	Baseline map[string]float64 `yaml:"baseline"`
}

// ParameterConfig describes a measured quantity and its alert thresholds
type ParameterConfig struct {
	Label      i18n.Label        `yaml:"label"`
	Unit       string            `yaml:"unit,omitempty"`
	Variation  float64           `yaml:"variation,omitempty"`
	Thresholds []ThresholdConfig `yaml:"thresholds"`
}

// ThreatConfig describes a biological threat indicator. Probability is the
// chance per simulation tick that an absent threat is detected.
type ThreatConfig struct {
	Label       i18n.Label   `yaml:"label"`
	Organisms   []i18n.Label `yaml:"organisms"`
	Probability float64      `yaml:"probability"`
}

// ThresholdConfig fires when a reading is above (">") or below ("<") Value
type ThresholdConfig struct {
	Condition string         `yaml:"condition"`
	Value     float64        `yaml:"value"`
	Severity  types.Severity `yaml:"severity"`
}

// AlertConfig is loaded from alerts.yaml and defines routing and behavior
type AlertConfig struct {
	Channels      map[string]ChannelConfig `yaml:"channels"`
	AlertRules    map[string]AlertRule     `yaml:"alert_rules"`
	AlertBehavior AlertBehavior            `yaml:"alert_behavior"`
}

// ChannelConfig defines a notification channel
type ChannelConfig struct {
	Type            string           `yaml:"type"` // "apprise", "telegram" or "stdout"
	URLEnv          string           `yaml:"url_env,omitempty"`
	TokenEnv        string           `yaml:"token_env,omitempty"`
	ChatID          int64            `yaml:"chat_id,omitempty"`
	Language        i18n.Language    `yaml:"language,omitempty"`
	SeverityFilter  []types.Severity `yaml:"severity_filter,omitempty"`
	EscalationDelay time.Duration    `yaml:"escalation_delay,omitempty"`
}

// AlertRule lists the channels notified for a severity
type AlertRule struct {
	Channels []string `yaml:"channels"`
}

// AlertBehavior defines alert behavior settings
type AlertBehavior struct {
	DeduplicationWindow time.Duration `yaml:"deduplication_window"`
	Flap                FlapConfig    `yaml:"flap"`
	RecentAcknowledged  int           `yaml:"recent_acknowledged"`
}

// FlapConfig suppresses alerts for parameters that change state too often
type FlapConfig struct {
	Threshold int           `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
}
