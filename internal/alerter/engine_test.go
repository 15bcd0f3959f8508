package alerter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pondwatch/pondwatch/internal/alertstore"
	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/evaluator"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/notifier"
	"github.com/pondwatch/pondwatch/internal/types"
)

type sent struct {
	AlertID  string
	Kind     notifier.Kind
	Channels []string
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeDispatcher) SendAlert(_ context.Context, alert types.Alert, kind notifier.Kind, channels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{AlertID: alert.ID, Kind: kind, Channels: channels})
	return nil
}

func (f *fakeDispatcher) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sent, len(f.sent))
	copy(out, f.sent)
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *config.Config {
	return &config.Config{
		Site: config.SiteConfig{
			Ponds: map[string]config.PondConfig{
				"nursery-c": {Name: i18n.NewLabel("Bassin Nurserie C", "حوض الحضانة ج")},
			},
			Parameters: map[string]config.ParameterConfig{
				"temperature": {Label: i18n.NewLabel("Température", "درجة الحرارة"), Unit: "°C"},
				"oxygen":      {Label: i18n.NewLabel("Oxygène Dissous", "الأكسجين المذاب"), Unit: "mg/L"},
			},
		},
		Alerts: config.AlertConfig{
			Channels: map[string]config.ChannelConfig{
				"console": {Type: "stdout", Language: i18n.French},
				"oncall":  {Type: "stdout", Language: i18n.Arabic, EscalationDelay: 20 * time.Millisecond},
			},
			AlertRules: map[string]config.AlertRule{
				"high":    {Channels: []string{"console", "oncall"}},
				"default": {Channels: []string{"console"}},
			},
			AlertBehavior: config.AlertBehavior{
				DeduplicationWindow: 5 * time.Minute,
				Flap:                config.FlapConfig{Threshold: 4, Window: 10 * time.Minute},
			},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeDispatcher, *clock) {
	t.Helper()
	d := &fakeDispatcher{}
	c := &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	e := NewEngine(testConfig(), alertstore.New(), d, zerolog.Nop())
	e.SetClock(c.Now)
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("alert-%d", n)
	}
	t.Cleanup(e.Stop)
	return e, d, c
}

func breach(param string, sev types.Severity, cond string, value, threshold float64) evaluator.StateChange {
	return evaluator.StateChange{
		PondID:      "nursery-c",
		ParameterID: param,
		Severity:    sev,
		Condition:   cond,
		Value:       value,
		Threshold:   threshold,
	}
}

func recovery(param string) evaluator.StateChange {
	return evaluator.StateChange{PondID: "nursery-c", ParameterID: param, Previous: types.SeverityMedium}
}

func TestProcessStateChangeCreatesAlert(t *testing.T) {
	e, d, c := newTestEngine(t)

	e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.8, 6))

	alerts := e.Store().List()
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "alert-1", a.ID)
	assert.Equal(t, "Bassin Nurserie C", a.Pond.Text(i18n.French))
	assert.Equal(t, "الأكسجين المذاب", a.Parameter.Text(i18n.Arabic))
	assert.Equal(t, "Oxygène Dissous trop bas: 5.8 mg/L (Seuil: 6 mg/L)", a.Message.Text(i18n.French))
	assert.Equal(t, "الأكسجين المذاب منخفض: 5.8 mg/L (الحد: 6 mg/L)", a.Message.Text(i18n.Arabic))
	assert.Equal(t, c.Now(), a.Timestamp)
	assert.False(t, a.Acknowledged)

	assert.Equal(t, []sent{{AlertID: "alert-1", Kind: notifier.KindFiring, Channels: []string{"console"}}}, d.all())
}

func TestCriticalMessage(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.ProcessStateChange(breach("temperature", types.SeverityHigh, ">", 29.1, 28))

	a := e.Store().List()[0]
	assert.Equal(t, "Température critique: 29.1°C (Seuil: 28°C)", a.Message.Text(i18n.French))
}

func TestDeduplication(t *testing.T) {
	e, _, c := newTestEngine(t)
	e.flap.threshold = 0

	e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.8, 6))
	e.ProcessStateChange(breach("oxygen", types.SeverityLow, "<", 5.9, 6))
	assert.Equal(t, 1, e.Store().Len(), "lower severity inside the window is a duplicate")

	e.ProcessStateChange(breach("oxygen", types.SeverityHigh, "<", 4, 5))
	assert.Equal(t, 2, e.Store().Len(), "escalation to a higher severity fires")

	c.Advance(6 * time.Minute)
	e.ProcessStateChange(breach("oxygen", types.SeverityHigh, "<", 4, 5))
	assert.Equal(t, 3, e.Store().Len(), "dedup window expired")
}

func TestRecoveryKeepsAlert(t *testing.T) {
	e, d, _ := newTestEngine(t)

	e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.8, 6))
	e.ProcessStateChange(recovery("oxygen"))

	assert.Equal(t, 1, e.Store().Len())
	sends := d.all()
	require.Len(t, sends, 2)
	assert.Equal(t, notifier.KindRecovered, sends[1].Kind)

	// after recovery a new breach is not a duplicate
	e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.7, 6))
	assert.Equal(t, 2, e.Store().Len())

	// recovery without an open alert is ignored
	e.ProcessStateChange(recovery("temperature"))
	assert.Len(t, d.all(), 3)
}

func TestFlappingSuppressesAlerts(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.8, 6))
	e.ProcessStateChange(recovery("oxygen"))
	e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.8, 6))
	require.Equal(t, 2, e.Store().Len())

	// fourth change inside the window starts flapping
	e.ProcessStateChange(recovery("oxygen"))
	e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.8, 6))
	assert.Equal(t, 2, e.Store().Len())
	assert.Equal(t, []string{"nursery-c|oxygen"}, e.Flapping())
}

func TestHousekeepingClearsFlapping(t *testing.T) {
	e, _, c := newTestEngine(t)

	for i := 0; i < 4; i++ {
		e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.8, 6))
	}
	require.NotEmpty(t, e.Flapping())

	c.Advance(11 * time.Minute)
	e.Housekeeping()
	assert.Empty(t, e.Flapping())
}

func TestAcknowledge(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.ProcessStateChange(breach("oxygen", types.SeverityMedium, "<", 5.8, 6))

	require.NoError(t, e.Acknowledge("alert-1"))
	a, err := e.Store().Get("alert-1")
	require.NoError(t, err)
	assert.True(t, a.Acknowledged)

	err = e.Acknowledge("nope")
	assert.True(t, errors.Is(err, alertstore.ErrNotFound))
}

func TestEscalationFiresForUnacknowledged(t *testing.T) {
	e, d, _ := newTestEngine(t)

	e.ProcessStateChange(breach("temperature", types.SeverityHigh, ">", 29.1, 28))

	require.Eventually(t, func() bool {
		for _, s := range d.all() {
			if s.Kind == notifier.KindEscalated {
				return assert.Equal(t, []string{"oncall"}, s.Channels)
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestAcknowledgeCancelsEscalation(t *testing.T) {
	e, d, _ := newTestEngine(t)

	e.ProcessStateChange(breach("temperature", types.SeverityHigh, ">", 29.1, 28))
	require.NoError(t, e.Acknowledge("alert-1"))
	assert.Equal(t, 0, e.escalation.Pending())

	time.Sleep(60 * time.Millisecond)
	for _, s := range d.all() {
		assert.NotEqual(t, notifier.KindEscalated, s.Kind)
	}
}

func TestThreatDetectionCreatesAlert(t *testing.T) {
	e, d, _ := newTestEngine(t)
	e.config.Site.Threats = map[string]config.ThreatConfig{
		"bacteria": {
			Label:     i18n.NewLabel("Bactéries", "البكتيريا"),
			Organisms: []i18n.Label{i18n.NewLabel("E. coli", "إشريكية قولونية")},
		},
	}

	e.ProcessStateChange(evaluator.StateChange{
		PondID:      "nursery-c",
		ParameterID: "bacteria",
		Severity:    types.SeverityMedium,
		Condition:   evaluator.ConditionDetected,
		Organism:    i18n.NewLabel("E. coli", "إشريكية قولونية"),
	})

	alerts := e.Store().List()
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "Bactéries", a.Parameter.Text(i18n.French))
	assert.Equal(t, "E. coli", a.Organism.Text(i18n.French))
	assert.Equal(t, "Menace biologique détectée: Bactéries, E. coli (risque moyen)", a.Message.Text(i18n.French))
	assert.Equal(t, "تم رصد تهديد بيولوجي: البكتيريا, إشريكية قولونية (خطر متوسط)", a.Message.Text(i18n.Arabic))
	require.Len(t, d.all(), 1)

	e.ProcessStateChange(evaluator.StateChange{PondID: "nursery-c", ParameterID: "bacteria", Previous: types.SeverityMedium})
	sent := d.all()
	require.Len(t, sent, 2)
	assert.Equal(t, notifier.KindRecovered, sent[1].Kind)
}
