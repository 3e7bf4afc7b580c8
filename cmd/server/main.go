package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"hls-radio/internal/platform/config"
	"hls-radio/internal/platform/logger"
	"hls-radio/internal/platform/metrics"
	"hls-radio/internal/radio"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	cfg, err := loadRadioConfig()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.StreamDir, 0o755); err != nil {
		log.Error("create stream dir failed", "dir", cfg.StreamDir, "error", err)
		os.Exit(1)
	}

	status := radio.NewStatus(cfg)
	met := metrics.New()
	launcher := radio.NewExecLauncher(cfg.FFmpegPath, log)
	station := radio.NewStation(cfg, launcher, status, met, log)
	h := radio.NewHandler(cfg, status, log, met)

	ctx, stopStation := context.WithCancel(context.Background())
	stationDone := make(chan struct{})
	go func() {
		defer close(stationDone)
		station.Run(ctx)
	}()

	srv := &http.Server{Addr: ":" + port, Handler: newRouter(h, met, status, log)}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	log.Info("server starting",
		"port", port,
		"channels", len(cfg.Channels),
		"qualities", len(cfg.Qualities),
		"rotation_interval", cfg.RotationInterval.String(),
		"stream_dir", cfg.StreamDir,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigCh:
		log.Info("shutdown signal received, draining connections")
	case err := <-serverErr:
		log.Error("server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		exitCode = 1
	}
	cancel()

	// Supervisors stop their transcoders before returning.
	stopStation()
	<-stationDone

	log.Info("server stopped")
	os.Exit(exitCode)
}

func newRouter(h *radio.Handler, met *metrics.Metrics, status *radio.Status, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met, "/metrics"))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetActiveTranscoders(status.ActiveTranscoders())
			met.SetRunningSupervisors(status.RunningSupervisors())
		}).ServeHTTP(w, r)
	})
	h.Routes(r)
	return r
}

// loadRadioConfig builds the relay configuration from the environment.
// Unset variables keep the stock layout under BASE_DIR.
func loadRadioConfig() (*radio.Config, error) {
	wd, _ := os.Getwd()
	base := config.GetEnv("BASE_DIR", wd)
	cfg := radio.NewConfig(base)

	cfg.ChannelDir = config.GetEnv("CHANNEL_DIR", cfg.ChannelDir)
	cfg.SilenceFile = config.GetEnv("SILENCE_FILE", cfg.SilenceFile)
	cfg.StreamDir = config.GetEnv("STREAM_DIR", cfg.StreamDir)
	cfg.FFmpegPath = config.GetEnv("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.AudioExtensions = config.GetEnvList("AUDIO_EXTENSIONS", cfg.AudioExtensions)
	cfg.RotationInterval = config.GetEnvDuration("ROTATION_INTERVAL", cfg.RotationInterval)
	cfg.StopTimeout = config.GetEnvDuration("STOP_TIMEOUT", cfg.StopTimeout)
	cfg.LaunchMaxAttempts = config.GetEnvInt("LAUNCH_MAX_ATTEMPTS", cfg.LaunchMaxAttempts)
	cfg.LaunchBackoff = config.GetEnvDuration("LAUNCH_BACKOFF", cfg.LaunchBackoff)

	if names := config.GetEnvList("CHANNELS", nil); len(names) > 0 {
		cfg.Channels = make([]radio.ChannelID, 0, len(names))
		for _, name := range names {
			cfg.Channels = append(cfg.Channels, radio.ChannelID(name))
		}
	}

	if s := config.GetEnv("QUALITIES", ""); s != "" {
		qs, err := radio.ParseQualities(s)
		if err != nil {
			return nil, err
		}
		cfg.Qualities = qs
	}

	cfg.Titles = radio.LoadTitles(config.GetEnv("INFO_FILE", filepath.Join(base, "info.txt")))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
