package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/use-agent/harvest/api"
	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/cache"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/extractor"
	"github.com/use-agent/harvest/fetch"
	"github.com/use-agent/harvest/governor"
	"github.com/use-agent/harvest/images"
	"github.com/use-agent/harvest/scraper"
	"github.com/use-agent/harvest/session"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("harvest starting",
		"env", cfg.Env,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"headless", cfg.Browser.Headless,
		"proxies", len(cfg.Governor.Proxies),
	)

	// ── 3. Wire the pipeline ────────────────────────────────────────
	launcher := browser.NewRodLauncher()
	orchestrator := session.NewOrchestrator(launcher, cfg.Browser, cfg.Env)
	engine := extractor.NewEngine()
	fetcher := fetch.NewChromeFetcher("", cfg.Images.MaxBytes)
	downloader := images.NewDownloader(fetcher, cfg.Images.Dir, cfg.Images.Workers)
	gov := governor.New(cfg.Governor.MaxRequests, cfg.Governor.Window, cfg.Governor.Proxies)
	coordinator := scraper.New(orchestrator, engine, downloader, gov, cfg.Scraper)

	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 4. Setup router & HTTP server ───────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(coordinator, cfg, cc, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 5. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("harvest stopped")
}

// initLogger configures slog based on the LogConfig: JSON for production
// ingestion, tint's colorized text for local runs.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}
