package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pondwatch/pondwatch/internal/i18n"
)

const (
	pondsFile  = "ponds.yaml"
	alertsFile = "alerts.yaml"
)

var (
	// ErrPondExists is returned when adding a pond whose id is taken
	ErrPondExists = errors.New("pond already exists")
	// ErrInvalidPondID is returned for ids that are not lowercase slugs
	ErrInvalidPondID = errors.New("invalid pond id")
)

// LoadConfig loads configuration from the directory holding path
func LoadConfig(path string) (*Config, error) {
	return LoadConfigDir(filepath.Dir(path))
}

// LoadConfigDir loads all configuration files from a directory
func LoadConfigDir(dir string) (*Config, error) {
	cfg := &Config{}

	if err := loadYAML(filepath.Join(dir, pondsFile), &cfg.Site); err != nil {
		return nil, fmt.Errorf("loading %s: %w", pondsFile, err)
	}

	// alerts.yaml is optional: without it alerts are only shown on the dashboard
	alertsPath := filepath.Join(dir, alertsFile)
	if _, err := os.Stat(alertsPath); err == nil {
		if err := loadYAML(alertsPath, &cfg.Alerts); err != nil {
			return nil, fmt.Errorf("loading %s: %w", alertsFile, err)
		}
	}

	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadYAML loads a YAML file into a struct
func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func applyDefaults(cfg *Config) {
	g := &cfg.Site.Global
	if g.DefaultLanguage == "" {
		g.DefaultLanguage = i18n.Primary
	}
	if g.ListenPort == "" {
		g.ListenPort = "8088"
	}
	if g.SimulationInterval == 0 {
		g.SimulationInterval = 10 * time.Second
	}
	if g.HistorySize == 0 {
		g.HistorySize = 60
	}

	b := &cfg.Alerts.AlertBehavior
	if b.DeduplicationWindow == 0 {
		b.DeduplicationWindow = 5 * time.Minute
	}
	if b.Flap.Threshold == 0 {
		b.Flap.Threshold = 4
	}
	if b.Flap.Window == 0 {
		b.Flap.Window = 10 * time.Minute
	}
	if b.RecentAcknowledged == 0 {
		b.RecentAcknowledged = 2
	}

	for name, ch := range cfg.Alerts.Channels {
		if ch.Language == "" {
			ch.Language = g.DefaultLanguage
			cfg.Alerts.Channels[name] = ch
		}
	}
}

// ValidateConfig validates the configuration
func ValidateConfig(cfg *Config) error {
	if _, ok := i18n.ParseLanguage(string(cfg.Site.Global.DefaultLanguage)); !ok {
		return fmt.Errorf("global: unsupported default_language %q", cfg.Site.Global.DefaultLanguage)
	}
	if cfg.Site.Global.SimulationInterval < 0 {
		return fmt.Errorf("global: simulation_interval must be positive")
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("global: %w", err)
	}

	if len(cfg.Site.Ponds) == 0 {
		return fmt.Errorf("no ponds configured")
	}
	if len(cfg.Site.Parameters) == 0 {
		return fmt.Errorf("no parameters configured")
	}

	for id, pond := range cfg.Site.Ponds {
		if pond.Name.Text(i18n.Primary) == "" {
			return fmt.Errorf("pond %s: name is required", id)
		}
		if pond.Capacity < 0 {
			return fmt.Errorf("pond %s: capacity must not be negative", id)
		}
		for param := range pond.Baseline {
			if _, ok := cfg.Site.Parameters[param]; !ok {
				return fmt.Errorf("pond %s: baseline references unknown parameter %s", id, param)
			}
		}
	}

	for id, param := range cfg.Site.Parameters {
		if param.Label.Text(i18n.Primary) == "" {
			return fmt.Errorf("parameter %s: label is required", id)
		}
		for i, th := range param.Thresholds {
			if th.Condition != ">" && th.Condition != "<" {
				return fmt.Errorf("parameter %s, threshold %d: condition must be '>' or '<'", id, i)
			}
			if !th.Severity.Valid() {
				return fmt.Errorf("parameter %s, threshold %d: severity must be 'low', 'medium' or 'high'", id, i)
			}
		}
	}

	for id, threat := range cfg.Site.Threats {
		if _, ok := cfg.Site.Parameters[id]; ok {
			return fmt.Errorf("threat %s: id is already used by a parameter", id)
		}
		if threat.Label.Text(i18n.Primary) == "" {
			return fmt.Errorf("threat %s: label is required", id)
		}
		if len(threat.Organisms) == 0 {
			return fmt.Errorf("threat %s: at least one organism is required", id)
		}
		if threat.Probability < 0 || threat.Probability > 1 {
			return fmt.Errorf("threat %s: probability must be between 0 and 1", id)
		}
	}

	for name, channel := range cfg.Alerts.Channels {
		switch channel.Type {
		case "apprise":
			if channel.URLEnv == "" {
				return fmt.Errorf("channel %s: url_env is required", name)
			}
		case "telegram":
			if channel.TokenEnv == "" || channel.ChatID == 0 {
				return fmt.Errorf("channel %s: token_env and chat_id are required", name)
			}
		case "stdout":
		default:
			return fmt.Errorf("channel %s: unknown type %q", name, channel.Type)
		}
		if _, ok := i18n.ParseLanguage(string(channel.Language)); !ok {
			return fmt.Errorf("channel %s: unsupported language %q", name, channel.Language)
		}
		for _, sev := range channel.SeverityFilter {
			if !sev.Valid() {
				return fmt.Errorf("channel %s: unknown severity %q in severity_filter", name, sev)
			}
		}
	}

	for ruleName, rule := range cfg.Alerts.AlertRules {
		for _, chName := range rule.Channels {
			if _, ok := cfg.Alerts.Channels[chName]; !ok {
				return fmt.Errorf("alert rule %s: references unknown channel %s", ruleName, chName)
			}
		}
	}

	return nil
}

// Location returns the time zone used for calendar dates
func (c *Config) Location() (*time.Location, error) {
	if c.Site.Global.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Site.Global.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Site.Global.TimeZone, err)
	}
	return loc, nil
}

// PondIDs returns pond ids in a stable order
func (c *Config) PondIDs() []string {
	ids := make([]string, 0, len(c.Site.Ponds))
	for id := range c.Site.Ponds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParameterIDs returns parameter ids in a stable order
func (c *Config) ParameterIDs() []string {
	ids := make([]string, 0, len(c.Site.Parameters))
	for id := range c.Site.Parameters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ThreatIDs returns biological threat ids in a stable order
func (c *Config) ThreatIDs() []string {
	ids := make([]string, 0, len(c.Site.Threats))
	for id := range c.Site.Threats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultBaseline averages every parameter's baseline over the configured
// ponds. New ponds start from it.
func (c *Config) DefaultBaseline() map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, pond := range c.Site.Ponds {
		for param, v := range pond.Baseline {
			sums[param] += v
			counts[param]++
		}
	}
	out := make(map[string]float64, len(sums))
	for param, sum := range sums {
		out[param] = math.Round(sum/float64(counts[param])*100) / 100
	}
	return out
}

// WithPond returns a copy of c with one more pond. c itself is not modified.
func (c *Config) WithPond(id string, pond PondConfig) (*Config, error) {
	if !validPondID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPondID, id)
	}
	if _, ok := c.Site.Ponds[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPondExists, id)
	}

	next := *c
	next.Site.Ponds = make(map[string]PondConfig, len(c.Site.Ponds)+1)
	for k, v := range c.Site.Ponds {
		next.Site.Ponds[k] = v
	}
	next.Site.Ponds[id] = pond

	if err := ValidateConfig(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

// validPondID accepts lowercase letters, digits and dashes, as used in URLs
func validPondID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// ChannelsForSeverity returns the channels routed for a severity, falling back
// to the "default" rule.
func (c *Config) ChannelsForSeverity(severity string) []string {
	if rule, ok := c.Alerts.AlertRules[severity]; ok {
		return rule.Channels
	}
	if rule, ok := c.Alerts.AlertRules["default"]; ok {
		return rule.Channels
	}
	return []string{}
}
