package types

import (
	"time"

	"github.com/pondwatch/pondwatch/internal/i18n"
)

// Reading is one telemetry sample for a pond, keyed by parameter id
type Reading struct {
	PondID    string             `json:"pond_id"`
	Values    map[string]float64 `json:"values"`
	Threats   map[string]Threat  `json:"threats,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Threat is the state of one biological threat indicator. Risk stays low
// while nothing is detected.
type Threat struct {
	Detected bool       `json:"detected"`
	Organism i18n.Label `json:"organism,omitempty"`
	Risk     Severity   `json:"risk"`
}
