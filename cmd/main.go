package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proofreader/internal/bot"
	"proofreader/internal/config"
	"proofreader/internal/metrics"
	"proofreader/internal/proofreader"
	"proofreader/internal/session"
	"proofreader/internal/upload"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	log = newLogger(cfg)
	slog.SetDefault(log)

	uploads, err := upload.New(cfg.DataDir, cfg.MaxFileSize)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize upload store",
			"error", err,
			"dataDir", cfg.DataDir)

		return
	}
	if err = uploads.ClearAll(); err != nil {
		log.WarnContext(ctx, "Failed to clear stale uploads",
			"error", err,
			"dataDir", cfg.DataDir)
	}
	log.InfoContext(ctx, "Upload store is initialized",
		"dataDir", uploads.Dir(),
		"maxFileSize", cfg.MaxFileSize)

	completer, err := proofreader.NewOpenAICompleter(proofreader.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		MaxTokens:   cfg.OpenAIMaxTokens,
		MaxRetries:  cfg.OpenAIMaxRetries,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to create OpenAI completer",
			"error", err,
			"envVar", "OPENAI_API_KEY")

		return
	}
	log.InfoContext(ctx, "OpenAI completer is initialized",
		"provider", "openai",
		"model", cfg.OpenAIModel,
		"temperature", cfg.OpenAITemperature,
		"maxTokens", cfg.OpenAIMaxTokens)

	sessions := session.New(cfg.SessionTTL)
	go sessions.Start()
	defer sessions.Stop()
	metrics.ObserveSessions(sessions.Len)

	botInst, err := bot.New(
		cfg.Token,
		proofreader.New(completer, log),
		sessions,
		uploads,
		bot.Options{
			AllowedUsers: cfg.AllowedUsers,
			MaxFileSize:  cfg.MaxFileSize,
		},
		log,
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers),
		"sessionTTL", cfg.SessionTTL.String())

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, log)

	go func() {
		botInst.Start(ctx)
	}()
	log.InfoContext(ctx, "Bot is started")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer shutdownCancel()

		if err = metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(shutdownCtx, "Failed to shutdown metrics server",
				"error", err)
		}
	}

	botInst.Stop()

	if err = uploads.ClearAll(); err != nil {
		log.ErrorContext(context.Background(), "Failed to clear uploads",
			"error", err,
			"dataDir", cfg.DataDir)
	}
	log.InfoContext(context.Background(), "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

func newLogger(cfg config.Config) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	if cfg.LogFormat == config.LogFormatText {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		}))
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func startMetricsServer(ctx context.Context, addr string, log *slog.Logger) *http.Server {
	if addr == "" {
		log.InfoContext(ctx, "Metrics server is disabled",
			"envVar", "METRICS_ADDR")

		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		log.InfoContext(ctx, "Metrics server is listening",
			"addr", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Metrics server failed",
				"error", err,
				"addr", addr)
		}
	}()

	return srv
}
