package types

import (
	"time"

	"github.com/pondwatch/pondwatch/internal/i18n"
)

// Severity is the urgency of an alert
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severities lists every severity from most to least urgent
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities; unknown values rank below low
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Alert records a threshold breach for a pond parameter
type Alert struct {
	ID           string     `json:"id"`
	PondID       string     `json:"pond_id"`
	Pond         i18n.Label `json:"pond"`
	ParameterID  string     `json:"parameter_id"`
	Parameter    i18n.Label `json:"parameter"`
	Severity     Severity   `json:"severity"`
	Message      i18n.Label `json:"message"`
	Value        float64    `json:"value"`
	Threshold    float64    `json:"threshold"`
	Organism     i18n.Label `json:"organism,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	Acknowledged bool       `json:"acknowledged"`
}

// Clone returns a copy of a that shares no label maps with it
func (a Alert) Clone() Alert {
	a.Pond = a.Pond.Clone()
	a.Parameter = a.Parameter.Clone()
	a.Message = a.Message.Clone()
	a.Organism = a.Organism.Clone()
	return a
}
