package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/activat/b2b-monitor/internal/app"
	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/enrich"
	"github.com/activat/b2b-monitor/internal/logger"
	"github.com/activat/b2b-monitor/internal/metrics"
	"github.com/activat/b2b-monitor/internal/scheduler"
	"github.com/activat/b2b-monitor/internal/storage"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg.DatabaseURL, cfg.SimilarityThreshold, cfg.MinSimilarDescLen)
	if err != nil {
		slog.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	enricher, cleanup, err := buildEnricher(cfg)
	if err != nil {
		slog.Error("enricher init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, store, enricher)
	slog.Info("monitor started",
		"sources", len(cfg.Sources), "enrich_mode", cfg.EnrichMode, "parse_at", cfg.ParseAt)

	scheduler.New(cfg.ParseAt, a.RunCycle).Start(ctx, cfg.RunImmediately)
}

func buildEnricher(cfg *config.Config) (enrich.Enricher, func(), error) {
	if cfg.EnrichMode == "gemini" {
		g, err := enrich.NewGemini(cfg.GeminiAPIKey, cfg.MaxDescWords, cfg.MaxAIRequests)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	}
	return enrich.NewLocal(cfg.MaxDescWords), func() {}, nil
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	slog.Info("monitoring server listening", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		slog.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
