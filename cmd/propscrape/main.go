package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/use-agent/propscrape/api"
	"github.com/use-agent/propscrape/config"
	"github.com/use-agent/propscrape/engine"
	"github.com/use-agent/propscrape/extractor"
	"github.com/use-agent/propscrape/models"
	"github.com/use-agent/propscrape/pipeline"
	"github.com/use-agent/propscrape/scraper"
	"github.com/use-agent/propscrape/store"
	"github.com/use-agent/propscrape/webhook"
)

// session is what the server needs from either fetch mode.
type session interface {
	pipeline.Session
	Stats() models.PoolStats
	Close()
}

func main() {
	startTime := time.Now()

	// ── 1. Load configuration ───────────────────────────────────────
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logger ─────────────────────────────
	initLogger(cfg.Log)

	slog.Info("starting propscrape",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"fetch_mode", cfg.Scraper.FetchMode,
		"max_contexts", cfg.Browser.MaxContexts,
	)

	// ── 3. Open the job store ───────────────────────────────────────
	st, err := openStore(cfg.Database)
	if err != nil {
		slog.Error("failed to open job store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// ── 4. Build extractor and session ──────────────────────────────
	opts, err := extractor.OptionsFromConfig(cfg.Extract)
	if err != nil {
		slog.Error("invalid extraction config", "error", err)
		os.Exit(1)
	}
	ex := extractor.New(extractor.DefaultFields(opts)...)

	sess, err := newSession(cfg, ex)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	// ── 5. Wire pipeline ────────────────────────────────────────────
	metrics := pipeline.NewMetrics()
	notifier := webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret)
	defer notifier.Wait()

	p := pipeline.New(st, sess,
		pipeline.WithMetrics(metrics),
		pipeline.WithNotifier(notifier),
	)

	// ── 6. Create HTTP server ───────────────────────────────────────
	router := api.NewRouter(cfg, api.Deps{
		Runner:   p,
		Lister:   st,
		Pool:     sess,
		Registry: metrics.Registry,
	}, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── 7. Start server in goroutine ────────────────────────────────
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown on SIGINT / SIGTERM ────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down", "signal", sig.String())

	// Jobs in flight need up to one navigation timeout to reach a terminal write.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.NavigationTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// openStore selects Postgres when a database URL is configured and the
// in-memory store otherwise.
func openStore(cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.URL == "" {
		slog.Warn("DATABASE_URL not set, jobs are kept in memory only")
		return store.NewMemory(), nil
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(cfg.URL); err != nil {
			return nil, err
		}
		slog.Info("database schema up to date")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.Open(ctx, cfg)
}

func newSession(cfg *config.Config, ex *extractor.Extractor) (session, error) {
	if cfg.Scraper.FetchMode == config.FetchModeHTTP {
		e := engine.NewHTTPEngine(engine.HTTPOptions{
			UserAgent:      cfg.Scraper.UserAgent,
			AcceptLanguage: cfg.Scraper.AcceptLanguage,
			Proxy:          cfg.Browser.DefaultProxy,
		})
		return scraper.NewStaticSession(e, ex, cfg.Scraper.NavigationTimeout), nil
	}
	return scraper.NewScraper(cfg.Browser, cfg.Scraper, ex)
}

// initLogger configures the global slog logger.
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

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
