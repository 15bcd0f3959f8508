package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/ponds"
	"github.com/pondwatch/pondwatch/internal/types"
	"github.com/pondwatch/pondwatch/internal/webui"
)

const langCookieMaxAge = 365 * 24 * 60 * 60

func (s *Server) render(w http.ResponseWriter, r *http.Request, name, nav string, data any) {
	lang := s.language(r)
	page := webui.Page{
		Lang:    lang,
		Dir:     i18n.Dir(lang),
		Nav:     nav,
		Now:     s.siteNow(),
		Version: s.version,
		Path:    r.URL.RequestURI(),
		Data:    data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := webui.Render(w, name, page); err != nil {
		s.logger.Error().Err(err).Str("page", name).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) pondView(cfg *config.Config, id string) (ponds.Pond, bool) {
	if s.readings == nil || s.status == nil {
		return ponds.Pond{}, false
	}
	return ponds.Build(cfg, id, s.readings, s.status)
}

func (s *Server) allPonds(cfg *config.Config) []ponds.Pond {
	if cfg == nil || s.readings == nil || s.status == nil {
		return []ponds.Pond{}
	}
	return ponds.BuildAll(cfg, s.readings, s.status)
}

// handleDashboard renders the overview page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	cfg := s.currentConfig()
	recent := 0
	if cfg != nil {
		recent = cfg.Alerts.AlertBehavior.RecentAcknowledged
	}
	all := s.allPonds(cfg)
	active, acked := s.store.Recent(recent)

	s.render(w, r, "dashboard", "dashboard", webui.DashboardData{
		Overview:     ponds.Summarize(all),
		Ponds:        all,
		Counts:       s.store.Counts(),
		Active:       active,
		Acknowledged: acked,
	})
}

// handleAlertsPage renders the filterable alert list
func (s *Server) handleAlertsPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria, err := parseCriteria(q, s.language(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.render(w, r, "alerts", "alerts", webui.AlertsData{
		Alerts:   s.store.Filter(criteria),
		Total:    s.store.Len(),
		Query:    q.Get("q"),
		Severity: string(criteria.Severity),
		Status:   string(criteria.Status),
	})
}

// pondAlerts returns the stored alerts of one pond, newest first
func (s *Server) pondAlerts(pondID string) []types.Alert {
	out := []types.Alert{}
	for _, a := range s.store.List() {
		if a.PondID == pondID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Server) pondData(cfg *config.Config, id string) (webui.PondData, bool) {
	if cfg == nil {
		return webui.PondData{}, false
	}
	pond, ok := s.pondView(cfg, id)
	if !ok {
		return webui.PondData{}, false
	}

	columns := make([]webui.ParameterColumn, 0, len(cfg.Site.Parameters))
	for _, paramID := range cfg.ParameterIDs() {
		if _, ok := cfg.Site.Ponds[id].Baseline[paramID]; !ok {
			continue
		}
		param := cfg.Site.Parameters[paramID]
		columns = append(columns, webui.ParameterColumn{ID: paramID, Label: param.Label, Unit: param.Unit})
	}

	return webui.PondData{
		Pond:       pond,
		Parameters: columns,
		History:    s.readings.History(id),
		Alerts:     s.pondAlerts(id),
	}, true
}

// handlePondPage renders one pond with its history and alerts
func (s *Server) handlePondPage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/pond/")
	data, ok := s.pondData(s.currentConfig(), id)
	if !ok {
		http.Error(w, i18n.T("pondNotFound", s.language(r)), http.StatusNotFound)
		return
	}
	s.render(w, r, "pond", "dashboard", data)
}

// handleSettingsPage renders language choice, channels and logs
func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	data := webui.SettingsData{Flapping: s.engine.Flapping()}
	if cfg := s.currentConfig(); cfg != nil {
		data.Global = cfg.Site.Global
		data.Behavior = cfg.Alerts.AlertBehavior
	}
	if s.channels != nil {
		data.Channels = s.channels.Channels()
	}
	if s.logBuffer != nil {
		data.Logs = s.logBuffer.Recent(100)
	}
	s.render(w, r, "settings", "settings", data)
}

// handleReloadForm reloads from the settings page
func (s *Server) handleReloadForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.reload(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// handleLanguage stores the chosen language in a cookie
func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lang, ok := i18n.ParseLanguage(q.Get("to"))
	if !ok {
		http.Error(w, "Unsupported language", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     i18n.CookieName,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   langCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	target := q.Get("redirect")
	if target == "" {
		target = r.Referer()
	}
	http.Redirect(w, r, safeRedirect(localTarget(target), "/"), http.StatusSeeOther)
}

// localTarget keeps the path and query of target and drops any lang
// parameter, which would otherwise override the cookie just set.
func localTarget(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "/"
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	query := u.Query()
	query.Del("lang")
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
