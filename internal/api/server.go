package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pondwatch/pondwatch/internal/alerter"
	"github.com/pondwatch/pondwatch/internal/alertstore"
	"github.com/pondwatch/pondwatch/internal/collector"
	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/notifier"
	"github.com/pondwatch/pondwatch/internal/ponds"
	"github.com/pondwatch/pondwatch/internal/types"
	"github.com/pondwatch/pondwatch/internal/webui"
)

// ConfigReloadFunc is called when config reload is requested
type ConfigReloadFunc func() (*config.Config, error)

// ConfigApplyFunc pushes an in-memory config change, such as an added pond,
// to the running components
type ConfigApplyFunc func(*config.Config)

// ReadingSource provides live and past readings per pond
type ReadingSource interface {
	Latest(pondID string) (types.Reading, bool)
	History(pondID string) []types.Reading
	Health() collector.Health
}

// ChannelLister lists the configured notification channels
type ChannelLister interface {
	Channels() []notifier.Channel
}

// Server provides HTTP API endpoints and web UI
type Server struct {
	engine     *alerter.Engine
	store      *alertstore.Store
	logger     zerolog.Logger
	port       string
	logBuffer  *webui.LogBuffer
	readings   ReadingSource
	status     ponds.StatusSource
	channels   ChannelLister
	now        func() time.Time
	startTime  time.Time
	config     *config.Config
	location   *time.Location
	configPath string
	reloadFunc ConfigReloadFunc
	applyFunc  ConfigApplyFunc
	reloadMu   sync.RWMutex
	version    string
	commit     string
	buildDate  string
	httpServer *http.Server
}

// NewServer creates a new API server on top of the alert engine
func NewServer(engine *alerter.Engine, logger zerolog.Logger, port string) *Server {
	return &Server{
		engine:    engine,
		store:     engine.Store(),
		logger:    logger.With().Str("component", "api").Logger(),
		port:      port,
		now:       time.Now,
		startTime: time.Now(),
	}
}

// SetLogBuffer sets the log buffer shown on the settings page
func (s *Server) SetLogBuffer(lb *webui.LogBuffer) {
	s.logBuffer = lb
}

// SetConfig sets the current configuration
func (s *Server) SetConfig(cfg *config.Config, configPath string) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	s.applyConfig(cfg)
	s.configPath = configPath
}

// applyConfig must be called with reloadMu held
func (s *Server) applyConfig(cfg *config.Config) {
	s.config = cfg
	s.location = nil
	if cfg == nil || cfg.Site.Global.TimeZone == "" {
		return
	}
	loc, err := cfg.Location()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Ignoring site timezone")
		return
	}
	s.location = loc
}

// SetReloadFunc sets the function to call when config reload is requested
func (s *Server) SetReloadFunc(fn ConfigReloadFunc) {
	s.reloadFunc = fn
}

// SetApplyFunc sets the function called after a pond is added
func (s *Server) SetApplyFunc(fn ConfigApplyFunc) {
	s.applyFunc = fn
}

// SetVersion sets the version information
func (s *Server) SetVersion(version, commit, buildDate string) {
	s.version = version
	s.commit = commit
	s.buildDate = buildDate
}

// SetSources wires the live data shown on pond pages
func (s *Server) SetSources(readings ReadingSource, status ponds.StatusSource, channels ChannelLister) {
	s.readings = readings
	s.status = status
	s.channels = channels
}

// SetClock replaces the time used for relative timestamps
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
}

// Handler returns the routes of the API and web UI
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/alerts", s.handleAlertsAPI)
	mux.HandleFunc("/api/alerts/", s.handleAcknowledgeAPI)
	mux.HandleFunc("/api/ponds", s.handlePondsAPI)
	mux.HandleFunc("/api/ponds/", s.handlePondDetailAPI)
	mux.HandleFunc("/api/logs", s.handleLogsAPI)
	mux.HandleFunc("/api/reload", s.handleReload)

	// Web UI
	mux.HandleFunc("/alerts", s.handleAlerts)
	mux.HandleFunc("/alerts/ack", s.handleAcknowledgeForm)
	mux.HandleFunc("/pond/", s.handlePondPage)
	mux.HandleFunc("/ponds/add", s.handleAddPondForm)
	mux.HandleFunc("/settings", s.handleSettingsPage)
	mux.HandleFunc("/settings/reload", s.handleReloadForm)
	mux.HandleFunc("/lang", s.handleLanguage)
	mux.HandleFunc("/", s.handleDashboard)

	return mux
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	addr := ":" + s.port
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().
		Str("address", addr).
		Msg("Starting API server with Web UI")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// siteNow is the current time in the configured site timezone
func (s *Server) siteNow() time.Time {
	now := s.now()
	s.reloadMu.RLock()
	loc := s.location
	s.reloadMu.RUnlock()
	if loc == nil {
		return now
	}
	return now.In(loc)
}

func (s *Server) currentConfig() *config.Config {
	s.reloadMu.RLock()
	defer s.reloadMu.RUnlock()
	return s.config
}

// language negotiates the display language of a request, falling back to the
// site default
func (s *Server) language(r *http.Request) i18n.Language {
	cookie := ""
	if c, err := r.Cookie(i18n.CookieName); err == nil {
		cookie = c.Value
	}
	fallback := i18n.Primary
	if cfg := s.currentConfig(); cfg != nil && cfg.Site.Global.DefaultLanguage != "" {
		fallback = cfg.Site.Global.DefaultLanguage
	}
	return i18n.Negotiate(r.URL.Query().Get("lang"), cookie, r.Header.Get("Accept-Language"), fallback)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

// handleHealth returns service health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// handleStatus returns current state summary
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"alerts":     s.store.Counts(),
		"flapping":   s.engine.Flapping(),
		"time":       s.now().UTC().Format(time.RFC3339),
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"version":    s.version,
		"commit":     s.commit,
		"build_date": s.buildDate,
	}
	if cfg := s.currentConfig(); cfg != nil && s.readings != nil && s.status != nil {
		status["ponds"] = ponds.Summarize(ponds.BuildAll(cfg, s.readings, s.status))
	}
	if s.readings != nil {
		status["simulator"] = s.readings.Health()
	}
	writeJSON(w, http.StatusOK, status)
}

// handleAlerts serves the alerts page to browsers and JSON to everything else
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		s.handleAlertsPage(w, r)
		return
	}
	s.handleAlertsAPI(w, r)
}

// handleLogsAPI returns recent log entries as JSON
func (s *Server) handleLogsAPI(w http.ResponseWriter, r *http.Request) {
	entries := []webui.LogEntry{}
	if s.logBuffer != nil {
		entries = s.logBuffer.Recent(200)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleReload handles config reload requests
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	newCfg, err := s.reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"pond_count": len(newCfg.Site.Ponds),
	})
}

func (s *Server) reload() (*config.Config, error) {
	if s.reloadFunc == nil {
		return nil, errors.New("config reload not configured")
	}

	s.logger.Info().Msg("Config reload requested via API")

	newCfg, err := s.reloadFunc()
	if err != nil {
		s.logger.Error().Err(err).Msg("Config reload failed")
		return nil, err
	}

	s.reloadMu.Lock()
	s.applyConfig(newCfg)
	s.reloadMu.Unlock()

	s.logger.Info().
		Int("pond_count", len(newCfg.Site.Ponds)).
		Msg("Config reloaded successfully")
	return newCfg, nil
}
