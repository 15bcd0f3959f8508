// Package ponds builds the pond cards and the site overview shown on the
// dashboard from configuration, latest readings and open breaches.
package ponds

import (
	"math"
	"time"

	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/types"
)

// Pond is the view model of one pond
type Pond struct {
	ID         string                    `json:"id"`
	Name       i18n.Label                `json:"name"`
	FishType   i18n.Label                `json:"fish_type"`
	Capacity   float64                   `json:"capacity"`
	Location   string                    `json:"location,omitempty"`
	Status     types.PondStatus          `json:"status"`
	Readings   []Reading                 `json:"readings"`
	Threats    []Threat                  `json:"threats,omitempty"`
	Breaches   map[string]types.Severity `json:"breaches,omitempty"`
	LastUpdate time.Time                 `json:"last_update"`
}

// Reading is one parameter value of a pond card
type Reading struct {
	ParameterID string         `json:"parameter_id"`
	Label       i18n.Label     `json:"label"`
	Unit        string         `json:"unit,omitempty"`
	Value       float64        `json:"value"`
	Severity    types.Severity `json:"severity,omitempty"`
}

// Threat is the latest state of one biological threat indicator
type Threat struct {
	ThreatID string         `json:"threat_id"`
	Label    i18n.Label     `json:"label"`
	Detected bool           `json:"detected"`
	Organism i18n.Label     `json:"organism,omitempty"`
	Risk     types.Severity `json:"risk,omitempty"`
}

// Overview aggregates every pond for the stats cards
type Overview struct {
	Total         int     `json:"total"`
	Optimal       int     `json:"optimal"`
	Warning       int     `json:"warning"`
	Critical      int     `json:"critical"`
	Capacity      float64 `json:"capacity"`
	HealthPercent int     `json:"health_percent"`
}

// Source provides live data for the view model
type Source interface {
	Latest(pondID string) (types.Reading, bool)
}

// StatusSource reports open breaches per pond
type StatusSource interface {
	Breaches(pondID string) map[string]types.Severity
	PondStatus(pondID string) types.PondStatus
}

// Build assembles the view of one pond. ok is false for unknown ids.
func Build(cfg *config.Config, id string, readings Source, status StatusSource) (Pond, bool) {
	pc, ok := cfg.Site.Ponds[id]
	if !ok {
		return Pond{}, false
	}

	p := Pond{
		ID:       id,
		Name:     pc.Name,
		FishType: pc.FishType,
		Capacity: pc.Capacity,
		Location: pc.Location,
		Status:   status.PondStatus(id),
		Breaches: status.Breaches(id),
		Readings: []Reading{},
	}

	latest, ok := readings.Latest(id)
	if !ok {
		return p, true
	}
	p.LastUpdate = latest.Timestamp
	for _, paramID := range cfg.ParameterIDs() {
		v, ok := latest.Values[paramID]
		if !ok {
			continue
		}
		param := cfg.Site.Parameters[paramID]
		p.Readings = append(p.Readings, Reading{
			ParameterID: paramID,
			Label:       param.Label,
			Unit:        param.Unit,
			Value:       v,
			Severity:    p.Breaches[paramID],
		})
	}
	for _, threatID := range cfg.ThreatIDs() {
		th := Threat{ThreatID: threatID, Label: cfg.Site.Threats[threatID].Label}
		if got, ok := latest.Threats[threatID]; ok && got.Detected {
			th.Detected = true
			th.Organism = got.Organism
			th.Risk = got.Risk
		}
		p.Threats = append(p.Threats, th)
	}
	return p, true
}

// BuildAll returns every configured pond ordered by id
func BuildAll(cfg *config.Config, readings Source, status StatusSource) []Pond {
	out := make([]Pond, 0, len(cfg.Site.Ponds))
	for _, id := range cfg.PondIDs() {
		if p, ok := Build(cfg, id, readings, status); ok {
			out = append(out, p)
		}
	}
	return out
}

// Summarize counts ponds per status. Health is the rounded share of optimal
// ponds, and 0 when there are none.
func Summarize(ponds []Pond) Overview {
	var o Overview
	for _, p := range ponds {
		o.Total++
		o.Capacity += p.Capacity
		switch p.Status {
		case types.StatusCritical:
			o.Critical++
		case types.StatusWarning:
			o.Warning++
		default:
			o.Optimal++
		}
	}
	if o.Total > 0 {
		o.HealthPercent = int(math.Round(float64(o.Optimal) * 100 / float64(o.Total)))
	}
	return o
}
