package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pondwatch/pondwatch/internal/alerter"
	"github.com/pondwatch/pondwatch/internal/alertstore"
	"github.com/pondwatch/pondwatch/internal/collector"
	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/evaluator"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/notifier"
	"github.com/pondwatch/pondwatch/internal/types"
	"github.com/pondwatch/pondwatch/internal/webui"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Site: config.SiteConfig{
			Global: config.GlobalConfig{DefaultLanguage: i18n.French, HistorySize: 10, Seed: 7},
			Ponds: map[string]config.PondConfig{
				"main-a": {
					Name:     i18n.NewLabel("Bassin Principal A", "الحوض الرئيسي أ"),
					Capacity: 500,
					Baseline: map[string]float64{"temperature": 24, "oxygen": 7},
				},
				"nursery-c": {
					Name:     i18n.NewLabel("Bassin Nurserie C", "حوض الحضانة ج"),
					Capacity: 150,
					Baseline: map[string]float64{"temperature": 25},
				},
			},
			Parameters: map[string]config.ParameterConfig{
				"temperature": {
					Label: i18n.NewLabel("Température", "درجة الحرارة"),
					Unit:  "°C",
					Thresholds: []config.ThresholdConfig{
						{Condition: ">", Value: 28, Severity: types.SeverityHigh},
					},
				},
				"oxygen": {
					Label: i18n.NewLabel("Oxygène Dissous", "الأكسجين المذاب"),
					Unit:  "mg/L",
				},
			},
		},
		Alerts: config.AlertConfig{
			AlertBehavior: config.AlertBehavior{RecentAcknowledged: 2},
		},
	}
}

func fixtureAlerts() []types.Alert {
	return []types.Alert{
		{
			ID:          "1",
			PondID:      "nursery-c",
			Pond:        i18n.NewLabel("Bassin Nurserie C", "حوض الحضانة ج"),
			ParameterID: "temperature",
			Parameter:   i18n.NewLabel("Température", "درجة الحرارة"),
			Severity:    types.SeverityHigh,
			Message:     i18n.NewLabel("Température critique: 29.1°C", "درجة حرارة حرجة: 29.1°م"),
			Value:       29.1,
			Threshold:   28,
			Timestamp:   now.Add(-5 * time.Minute),
		},
		{
			ID:           "2",
			PondID:       "main-a",
			Pond:         i18n.NewLabel("Bassin Principal A", "الحوض الرئيسي أ"),
			ParameterID:  "oxygen",
			Parameter:    i18n.NewLabel("Oxygène Dissous", "الأكسجين المذاب"),
			Severity:     types.SeverityLow,
			Message:      i18n.NewLabel("Oxygène légèrement bas: 5.8 mg/L", "أكسجين منخفض قليلاً: 5.8 مغ/ل"),
			Value:        5.8,
			Threshold:    6,
			Timestamp:    now.Add(-2 * time.Hour),
			Acknowledged: true,
		},
	}
}

func newTestServer(t *testing.T) (*Server, *alertstore.Store) {
	t.Helper()
	cfg := testConfig()
	logger := zerolog.Nop()

	store := alertstore.New(fixtureAlerts()...)
	notif := notifier.NewNotifier(logger)
	engine := alerter.NewEngine(cfg, store, notif, logger)
	t.Cleanup(engine.Stop)

	sim := collector.NewSimulator(cfg, logger)
	sim.SetClock(func() time.Time { return now })
	eval := evaluator.NewEvaluator(cfg, logger)
	for _, r := range sim.Tick() {
		eval.EvaluateReading(r)
	}

	srv := NewServer(engine, logger, "0")
	srv.SetClock(func() time.Time { return now })
	srv.SetConfig(cfg, "")
	srv.SetSources(sim, eval, notif)
	srv.SetVersion("1.2.3", "abc", "today")

	lb := webui.NewLogBuffer(10)
	lb.Write([]byte(`{"level":"info","component":"api","message":"hello"}` + "\n"))
	srv.SetLogBuffer(lb)
	return srv, store
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type alertsResponse struct {
	Alerts []AlertView `json:"alerts"`
	Count  int         `json:"count"`
	Total  int         `json:"total"`
}

func TestAlertsAPIFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name  string
		query string
		ids   []string
	}{
		{"all", "", []string{"1", "2"}},
		{"severity", "severity=high", []string{"1"}},
		{"status active", "status=active", []string{"1"}},
		{"status acknowledged", "status=acknowledged", []string{"2"}},
		{"text in pond name", "q=principal", []string{"2"}},
		{"text arabic", "q=" + url.QueryEscape("الحضانة") + "&lang=ar", []string{"1"}},
		{"combined no match", "q=nurserie&status=acknowledged", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/alerts?"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp alertsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			var ids []string
			for _, a := range resp.Alerts {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, len(tt.ids), resp.Count)
			assert.Equal(t, 2, resp.Total)
		})
	}
}

func TestAlertsAPILocalizedView(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), httptest.NewRequest(http.MethodGet, "/api/alerts?severity=high&lang=ar", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp alertsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "حرج", resp.Alerts[0].SeverityLabel)
	assert.Equal(t, "منذ 5 دقيقة", resp.Alerts[0].Age)
	assert.Equal(t, "حوض الحضانة ج", resp.Alerts[0].PondName)
}

func TestAlertsAPIInvalidFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/alerts?severity=urgent", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/alerts?status=closed", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcknowledgeAPI(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/alerts/1/ack", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	a, err := store.Get("1")
	require.NoError(t, err)
	assert.True(t, a.Acknowledged)

	// acknowledging twice is fine
	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/alerts/1/ack", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/alerts/missing/ack", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 2, store.Len())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/alerts/1/ack", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAcknowledgeForm(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Handler()

	form := url.Values{"id": {"1"}, "redirect": {"/pond/nursery-c"}}
	req := httptest.NewRequest(http.MethodPost, "/alerts/ack", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pond/nursery-c", rec.Header().Get("Location"))
	a, err := store.Get("1")
	require.NoError(t, err)
	assert.True(t, a.Acknowledged)

	form = url.Values{"id": {"2"}, "redirect": {"https://example.com/"}}
	req = httptest.NewRequest(http.MethodPost, "/alerts/ack", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = do(t, h, req)
	assert.Equal(t, "/alerts", rec.Header().Get("Location"))
}

func TestAlertsContentNegotiation(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/alerts", nil))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	req := httptest.NewRequest(http.MethodGet, "/alerts?lang=ar", nil)
	req.Header.Set("Accept", "text/html")
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `dir="rtl"`)
	assert.Contains(t, rec.Body.String(), "حوض الحضانة ج")
}

func TestPages(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	for _, path := range []string{"/", "/pond/main-a", "/settings"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, h, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `lang="fr"`)
			assert.Contains(t, rec.Body.String(), `dir="ltr"`)
		})
	}

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/pond/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLanguageCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/lang?to=ar&redirect=/settings", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, i18n.CookieName, cookies[0].Name)
	assert.Equal(t, "ar", cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = do(t, h, req)
	assert.Contains(t, rec.Body.String(), `dir="rtl"`)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/lang?to=en", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPondsAPI(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/ponds", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Ponds    []map[string]interface{} `json:"ponds"`
		Overview map[string]interface{}   `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Ponds, 2)
	assert.EqualValues(t, 2, resp.Overview["total"])
	assert.EqualValues(t, 650, resp.Overview["capacity"])

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/ponds/nursery-c", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		History []types.Reading `json:"history"`
		Alerts  []AlertView     `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Len(t, detail.History, 1)
	require.Len(t, detail.Alerts, 1)
	assert.Equal(t, "1", detail.Alerts[0].ID)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/ponds/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "1.2.3", status["version"])
	assert.Contains(t, status, "ponds")
	assert.Contains(t, status, "simulator")

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	assert.Contains(t, rec.Body.String(), "hello")
}

func TestReload(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	calls := 0
	srv.SetReloadFunc(func() (*config.Config, error) {
		calls++
		return testConfig(), nil
	})

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pond_count":2`)

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/settings/reload", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestSiteDefaultLanguage(t *testing.T) {
	srv, _ := newTestServer(t)
	cfg := testConfig()
	cfg.Site.Global.DefaultLanguage = i18n.Arabic
	srv.SetConfig(cfg, "")
	h := srv.Handler()

	var resp map[string]interface{}
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ar", resp["language"])

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	rec = do(t, h, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fr", resp["language"])

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), `dir="rtl"`)
}

func TestSiteTimeZone(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.Add(types.Alert{
		ID:          "3",
		PondID:      "main-a",
		Pond:        i18n.NewLabel("Bassin Principal A", "الحوض الرئيسي أ"),
		ParameterID: "temperature",
		Parameter:   i18n.NewLabel("Température", "درجة الحرارة"),
		Severity:    types.SeverityMedium,
		Message:     i18n.NewLabel("Température élevée", "درجة حرارة مرتفعة"),
		Timestamp:   time.Date(2024, 5, 29, 15, 0, 0, 0, time.UTC),
	}))
	h := srv.Handler()

	age := func() string {
		rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/alerts?severity=medium", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp alertsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Alerts, 1)
		return resp.Alerts[0].Age
	}

	cfg := testConfig()
	cfg.Site.Global.TimeZone = "UTC"
	srv.SetConfig(cfg, "")
	assert.Equal(t, "29/05/2024", age())

	// UTC+14, already the next day
	cfg = testConfig()
	cfg.Site.Global.TimeZone = "Pacific/Kiritimati"
	srv.SetConfig(cfg, "")
	assert.Equal(t, "30/05/2024", age())
}

func TestLanguageSwitchDropsQueryOverride(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/lang?to=fr", nil)
	req.Header.Set("Referer", "http://pondwatch.local/alerts?lang=ar&q=x")
	rec := do(t, h, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/alerts?q=x", rec.Header().Get("Location"))

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/lang?to=ar&redirect="+url.QueryEscape("/pond/main-a?lang=fr"), nil))
	assert.Equal(t, "/pond/main-a", rec.Header().Get("Location"))

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/lang?to=ar&redirect="+url.QueryEscape("//evil.example/"), nil))
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestAddPondAPI(t *testing.T) {
	srv, _ := newTestServer(t)
	var applied *config.Config
	srv.SetApplyFunc(func(c *config.Config) { applied = c })
	h := srv.Handler()

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/ponds", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		return do(t, h, req)
	}

	rec := post(`{"id":"quarantine-d","name":"Bassin Quarantaine D","name_ar":"حوض الحجر د","capacity":300,"location":"Zone Sud","baseline":{"temperature":22}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, applied)
	pond, ok := applied.Site.Ponds["quarantine-d"]
	require.True(t, ok)
	assert.Equal(t, 22.0, pond.Baseline["temperature"])
	assert.Equal(t, 7.0, pond.Baseline["oxygen"])
	assert.Equal(t, "Zone Sud", pond.Location)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/ponds", nil))
	var resp struct {
		Ponds []map[string]interface{} `json:"ponds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Ponds, 3)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/ponds/quarantine-d", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(`{"id":"quarantine-d"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ce bassin existe déjà")

	rec = post(`{"id":"Bad Id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{"capacity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{"baseline":{"lead":1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"pond-4"`)
	assert.Equal(t, "Bassin 4", applied.Site.Ponds["pond-4"].Name.Text(i18n.French))

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/ponds", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAddPondForm(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	form := url.Values{"id": {"pond-x"}, "name": {"Bassin X"}, "capacity": {"120"}}
	req := httptest.NewRequest(http.MethodPost, "/ponds/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pond/pond-x", rec.Header().Get("Location"))

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/pond/pond-x", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bassin X")

	form.Set("capacity", "lots")
	form.Set("id", "pond-y")
	req = httptest.NewRequest(http.MethodPost, "/ponds/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, do(t, h, req).Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/ponds/add", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPondPageShowsThreats(t *testing.T) {
	srv, _ := newTestServer(t)
	cfg := testConfig()
	cfg.Site.Threats = map[string]config.ThreatConfig{
		"bacteria": {
			Label:       i18n.NewLabel("Bactéries", "البكتيريا"),
			Organisms:   []i18n.Label{i18n.NewLabel("E. coli", "إشريكية قولونية")},
			Probability: 0.1,
		},
	}
	srv.SetConfig(cfg, "")

	rec := do(t, srv.Handler(), httptest.NewRequest(http.MethodGet, "/pond/main-a", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Menaces biologiques")
	assert.Contains(t, body, "Bactéries")
	assert.Contains(t, body, "Non détecté")
}
