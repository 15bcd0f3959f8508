package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/ponds"
)

var errNoConfig = errors.New("configuration not loaded")

// NewPondRequest is the body of POST /api/ponds. Every field is optional:
// the id defaults to the next free pond-N and the baseline to the site
// average.
type NewPondRequest struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	NameAr   string             `json:"name_ar"`
	FishType string             `json:"fish_type"`
	Capacity float64            `json:"capacity"`
	Location string             `json:"location"`
	Baseline map[string]float64 `json:"baseline"`
}

// handlePondsAPI returns every pond card plus the site overview, or adds a
// pond on POST
func (s *Server) handlePondsAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		s.handleAddPondAPI(w, r)
		return
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := s.allPonds(s.currentConfig())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ponds":    all,
		"overview": ponds.Summarize(all),
	})
}

func (s *Server) handleAddPondAPI(w http.ResponseWriter, r *http.Request) {
	lang := s.language(r)
	var req NewPondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", i18n.T("invalidPond", lang), err))
		return
	}

	id, err := s.addPond(req)
	if err != nil {
		status, msg := addPondError(err, lang)
		writeError(w, status, msg)
		return
	}

	resp := map[string]interface{}{
		"success": true,
		"id":      id,
	}
	if s.readings != nil && s.status != nil {
		if pond, ok := ponds.Build(s.currentConfig(), id, s.readings, s.status); ok {
			resp["pond"] = pond
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleAddPondForm adds a pond from the dashboard form and opens its page
func (s *Server) handleAddPondForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	lang := s.language(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	req := NewPondRequest{
		ID:       r.PostForm.Get("id"),
		Name:     r.PostForm.Get("name"),
		NameAr:   r.PostForm.Get("name_ar"),
		FishType: r.PostForm.Get("fish_type"),
		Location: r.PostForm.Get("location"),
	}
	if raw := strings.TrimSpace(r.PostForm.Get("capacity")); raw != "" {
		capacity, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, i18n.T("invalidPond", lang), http.StatusBadRequest)
			return
		}
		req.Capacity = capacity
	}

	id, err := s.addPond(req)
	if err != nil {
		status, msg := addPondError(err, lang)
		http.Error(w, msg, status)
		return
	}
	http.Redirect(w, r, "/pond/"+id, http.StatusSeeOther)
}

// addPond validates req against the live config and swaps in the result.
// The pond only lives in memory: a reload from disk drops it.
func (s *Server) addPond(req NewPondRequest) (string, error) {
	s.reloadMu.Lock()
	cfg := s.config
	if cfg == nil {
		s.reloadMu.Unlock()
		return "", errNoConfig
	}

	n := len(cfg.Site.Ponds) + 1
	id := strings.TrimSpace(req.ID)
	if id == "" {
		for {
			id = fmt.Sprintf("pond-%d", n)
			if _, taken := cfg.Site.Ponds[id]; !taken {
				break
			}
			n++
		}
	}

	name := labelOf(req.Name, req.NameAr)
	if name == nil {
		name = i18n.NewLabel(fmt.Sprintf("Bassin %d", n), fmt.Sprintf("الحوض %d", n))
	}
	baseline := cfg.DefaultBaseline()
	for param, v := range req.Baseline {
		baseline[param] = v
	}

	next, err := cfg.WithPond(id, config.PondConfig{
		Name:     name,
		FishType: labelOf(req.FishType, ""),
		Capacity: req.Capacity,
		Location: strings.TrimSpace(req.Location),
		Baseline: baseline,
	})
	if err != nil {
		s.reloadMu.Unlock()
		return "", err
	}
	s.applyConfig(next)
	apply := s.applyFunc
	s.reloadMu.Unlock()

	if apply != nil {
		apply(next)
	}
	s.logger.Info().
		Str("pond_id", id).
		Int("pond_count", len(next.Site.Ponds)).
		Msg("Pond added")
	return id, nil
}

func addPondError(err error, lang i18n.Language) (int, string) {
	switch {
	case errors.Is(err, config.ErrPondExists):
		return http.StatusConflict, i18n.T("pondExists", lang)
	case errors.Is(err, errNoConfig):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusBadRequest, fmt.Sprintf("%s: %v", i18n.T("invalidPond", lang), err)
	}
}

// labelOf keeps only the non-empty translations, nil when both are empty
func labelOf(fr, ar string) i18n.Label {
	fr, ar = strings.TrimSpace(fr), strings.TrimSpace(ar)
	if fr == "" && ar == "" {
		return nil
	}
	lb := i18n.Label{}
	if fr != "" {
		lb[i18n.French] = fr
	}
	if ar != "" {
		lb[i18n.Arabic] = ar
	}
	return lb
}

// handlePondDetailAPI returns one pond with its history and alerts
func (s *Server) handlePondDetailAPI(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/ponds/")
	lang := s.language(r)
	data, ok := s.pondData(s.currentConfig(), id)
	if !ok {
		writeError(w, http.StatusNotFound, i18n.T("pondNotFound", lang))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pond":       data.Pond,
		"parameters": data.Parameters,
		"history":    data.History,
		"alerts":     s.alertViews(data.Alerts, lang),
	})
}
