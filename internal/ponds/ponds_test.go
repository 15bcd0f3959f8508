package ponds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/types"
)

type fakeReadings map[string]types.Reading

func (f fakeReadings) Latest(id string) (types.Reading, bool) {
	r, ok := f[id]
	return r, ok
}

type fakeStatus map[string]map[string]types.Severity

func (f fakeStatus) Breaches(id string) map[string]types.Severity {
	if b, ok := f[id]; ok {
		return b
	}
	return map[string]types.Severity{}
}

func (f fakeStatus) PondStatus(id string) types.PondStatus {
	status := types.StatusOptimal
	for _, sev := range f[id] {
		if sev == types.SeverityHigh {
			return types.StatusCritical
		}
		status = types.StatusWarning
	}
	return status
}

var ts = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Site: config.SiteConfig{
			Ponds: map[string]config.PondConfig{
				"main-a":     {Name: i18n.NewLabel("Bassin Principal A", "الحوض الرئيسي أ"), Capacity: 2500},
				"breeding-b": {Name: i18n.NewLabel("Bassin Élevage B", "حوض التربية ب"), Capacity: 1800},
				"nursery-c":  {Name: i18n.NewLabel("Bassin Nurserie C", "حوض الحضانة ج"), Capacity: 500},
			},
			Parameters: map[string]config.ParameterConfig{
				"temperature": {Label: i18n.NewLabel("Température", "درجة الحرارة"), Unit: "°C"},
				"ph":          {Label: i18n.NewLabel("pH", "الحموضة")},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	readings := fakeReadings{
		"breeding-b": {PondID: "breeding-b", Values: map[string]float64{"ph": 8.4, "temperature": 25.2}, Timestamp: ts},
	}
	status := fakeStatus{"breeding-b": {"ph": types.SeverityMedium}}

	p, ok := Build(testConfig(), "breeding-b", readings, status)
	require.True(t, ok)
	assert.Equal(t, types.StatusWarning, p.Status)
	assert.Equal(t, ts, p.LastUpdate)
	require.Len(t, p.Readings, 2)
	assert.Equal(t, "ph", p.Readings[0].ParameterID)
	assert.Equal(t, types.SeverityMedium, p.Readings[0].Severity)
	assert.Equal(t, "°C", p.Readings[1].Unit)
	assert.Equal(t, types.Severity(""), p.Readings[1].Severity)

	p, ok = Build(testConfig(), "main-a", readings, status)
	require.True(t, ok)
	assert.Empty(t, p.Readings)
	assert.True(t, p.LastUpdate.IsZero())

	_, ok = Build(testConfig(), "ghost", readings, status)
	assert.False(t, ok)
}

func TestBuildThreats(t *testing.T) {
	cfg := testConfig()
	cfg.Site.Threats = map[string]config.ThreatConfig{
		"bacteria": {Label: i18n.NewLabel("Bactéries", "البكتيريا")},
		"virus":    {Label: i18n.NewLabel("Virus", "الفيروسات")},
	}
	pc := cfg.Site.Ponds["main-a"]
	pc.Location = "Zone Nord"
	cfg.Site.Ponds["main-a"] = pc

	readings := fakeReadings{
		"main-a": {
			PondID: "main-a",
			Values: map[string]float64{"ph": 7.5},
			Threats: map[string]types.Threat{
				"virus": {Detected: true, Organism: i18n.NewLabel("TiLV", "فيروس البلطي"), Risk: types.SeverityHigh},
			},
			Timestamp: ts,
		},
	}

	p, ok := Build(cfg, "main-a", readings, fakeStatus{})
	require.True(t, ok)
	assert.Equal(t, "Zone Nord", p.Location)
	require.Len(t, p.Threats, 2)
	assert.Equal(t, "bacteria", p.Threats[0].ThreatID)
	assert.False(t, p.Threats[0].Detected)
	assert.Nil(t, p.Threats[0].Organism)
	assert.True(t, p.Threats[1].Detected)
	assert.Equal(t, "TiLV", p.Threats[1].Organism.Text(i18n.French))
	assert.Equal(t, types.SeverityHigh, p.Threats[1].Risk)
}

func TestBuildAllAndSummarize(t *testing.T) {
	status := fakeStatus{
		"breeding-b": {"ph": types.SeverityMedium},
		"nursery-c":  {"temperature": types.SeverityHigh},
	}
	all := BuildAll(testConfig(), fakeReadings{}, status)
	require.Len(t, all, 3)
	assert.Equal(t, "breeding-b", all[0].ID)

	o := Summarize(all)
	assert.Equal(t, Overview{
		Total:         3,
		Optimal:       1,
		Warning:       1,
		Critical:      1,
		Capacity:      4800,
		HealthPercent: 33,
	}, o)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Overview{}, Summarize(nil))
}
