package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/pondwatch/pondwatch/internal/alertstore"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/types"
)

// AlertView is an alert with its display strings in the request language
type AlertView struct {
	types.Alert
	PondName      string `json:"pond_name"`
	ParameterName string `json:"parameter_name"`
	Text          string `json:"text"`
	SeverityLabel string `json:"severity_label"`
	Age           string `json:"age"`
}

func (s *Server) alertViews(alerts []types.Alert, lang i18n.Language) []AlertView {
	now := s.siteNow()
	out := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertView{
			Alert:         a,
			PondName:      a.Pond.Text(lang),
			ParameterName: a.Parameter.Text(lang),
			Text:          a.Message.Text(lang),
			SeverityLabel: alertstore.SeverityLabel(a.Severity, lang),
			Age:           alertstore.RelativeTime(a.Timestamp, now, lang),
		})
	}
	return out
}

// parseCriteria validates the filter query parameters
func parseCriteria(q url.Values, lang i18n.Language) (alertstore.Criteria, error) {
	sev, err := alertstore.ParseSeverity(q.Get("severity"))
	if err != nil {
		return alertstore.Criteria{}, err
	}
	status, err := alertstore.ParseStatus(q.Get("status"))
	if err != nil {
		return alertstore.Criteria{}, err
	}
	return alertstore.Criteria{
		Query:    q.Get("q"),
		Severity: sev,
		Status:   status,
		Language: lang,
	}, nil
}

// handleAlertsAPI returns the filtered alerts
func (s *Server) handleAlertsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	lang := s.language(r)
	criteria, err := parseCriteria(r.URL.Query(), lang)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts := s.store.Filter(criteria)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":   s.alertViews(alerts, lang),
		"count":    len(alerts),
		"total":    s.store.Len(),
		"language": lang,
		"counts":   s.store.Counts(),
	})
}

// handleAcknowledgeAPI handles POST /api/alerts/{id}/ack
func (s *Server) handleAcknowledgeAPI(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" || action != "ack" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lang := s.language(r)
	if err := s.engine.Acknowledge(id); err != nil {
		if errors.Is(err, alertstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, i18n.T("alertNotFound", lang))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	alert, err := s.store.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"alert":   s.alertViews([]types.Alert{alert}, lang)[0],
	})
}

// handleAcknowledgeForm acknowledges from an HTML form and redirects back
func (s *Server) handleAcknowledgeForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if err := s.engine.Acknowledge(r.PostForm.Get("id")); err != nil {
		if errors.Is(err, alertstore.ErrNotFound) {
			http.Error(w, i18n.T("alertNotFound", s.language(r)), http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, safeRedirect(r.PostForm.Get("redirect"), "/alerts"), http.StatusSeeOther)
}

// safeRedirect only follows local paths
func safeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	return target
}
