package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pondwatch/pondwatch/internal/alerter"
	"github.com/pondwatch/pondwatch/internal/alertstore"
	"github.com/pondwatch/pondwatch/internal/api"
	"github.com/pondwatch/pondwatch/internal/collector"
	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/evaluator"
	"github.com/pondwatch/pondwatch/internal/notifier"
	"github.com/pondwatch/pondwatch/internal/version"
	"github.com/pondwatch/pondwatch/internal/webui"
)

func main() {
	configPath := flag.String("config", "/config/ponds.yaml", "Path to the pond configuration")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	// Last 1000 log lines are shown on the settings page
	logBuffer := webui.NewLogBuffer(1000)

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	build := version.Get()
	logger := zerolog.New(io.MultiWriter(os.Stdout, logBuffer)).With().
		Timestamp().
		Str("version", build.Version).
		Str("commit", build.Commit).
		Logger()

	logger.Info().Str("build", build.String()).Msg("Starting pondwatch")

	configDir := filepath.Dir(*configPath)
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("config_path", *configPath).
			Msg("Failed to load configuration")
	}

	logger.Info().
		Int("pond_count", len(cfg.Site.Ponds)).
		Int("parameter_count", len(cfg.Site.Parameters)).
		Int("channel_count", len(cfg.Alerts.Channels)).
		Msg("Configuration loaded")

	notif := notifier.NewNotifier(logger)
	notif.Configure(cfg)

	store := alertstore.New()
	engine := alerter.NewEngine(cfg, store, notif, logger)
	eval := evaluator.NewEvaluator(cfg, logger)
	sim := collector.NewSimulator(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sim.Run(ctx)

	// Readings flow through the evaluator into the alert engine
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sim.Done():
				return
			case reading := <-sim.Updates():
				for _, change := range eval.EvaluateReading(reading) {
					engine.ProcessStateChange(change)
				}
			}
		}
	}()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1m", engine.Housekeeping); err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule housekeeping")
	}
	scheduler.Start()

	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		apiPort = cfg.Site.Global.ListenPort
	}
	apiServer := api.NewServer(engine, logger, apiPort)
	apiServer.SetLogBuffer(logBuffer)
	apiServer.SetConfig(cfg, *configPath)
	apiServer.SetVersion(build.Version, build.Commit, build.BuildDate)
	apiServer.SetSources(sim, eval, notif)

	apply := func(c *config.Config) {
		eval.SetConfig(c)
		sim.SetConfig(c)
		engine.SetConfig(c)
	}
	apiServer.SetApplyFunc(apply)

	apiServer.SetReloadFunc(func() (*config.Config, error) {
		logger.Info().Str("config_dir", configDir).Msg("Reloading configuration")
		newCfg, err := config.LoadConfigDir(configDir)
		if err != nil {
			return nil, err
		}

		apply(newCfg)
		notif.Configure(newCfg)

		logger.Info().
			Int("pond_count", len(newCfg.Site.Ponds)).
			Msg("Configuration reloaded")
		return newCfg, nil
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().
				Err(err).
				Msg("API server error")
		}
	}()

	logger.Info().
		Str("port", apiPort).
		Msg("Web UI available")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping API server")
	}

	<-scheduler.Stop().Done()
	engine.Stop()
	if err := sim.Close(); err != nil {
		logger.Error().Err(err).Msg("Error stopping simulator")
	}
	cancel()
	logger.Info().Msg("pondwatch stopped")
}
