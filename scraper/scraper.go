// Package scraper loads listing pages and runs the extractor against them.
package scraper

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/propscrape/config"
	"github.com/use-agent/propscrape/extractor"
	"github.com/use-agent/propscrape/models"
)

// Scraper owns the shared browser process and renders one listing per
// Execute call in its own incognito context. It is safe for concurrent use.
type Scraper struct {
	browser    *rod.Browser
	contexts   rod.Pool[rod.Browser]
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	extractor  *extractor.Extractor
	active     atomic.Int32
}

// NewScraper launches the browser. Failing to launch is a startup error;
// per-job context failures are reported by Execute.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, ex *extractor.Extractor) (*Scraper, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	slog.Info("context pool created", "maxContexts", browserCfg.MaxContexts)

	return &Scraper{
		browser:    browser,
		contexts:   rod.NewBrowserPool(browserCfg.MaxContexts),
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		extractor:  ex,
	}, nil
}

// acquire takes a pool slot and opens a fresh incognito context in it.
// Slots are never reused across jobs, so cookies and storage cannot leak
// from one listing to the next.
func (s *Scraper) acquire(ctx context.Context) (*rod.Browser, error) {
	select {
	case <-s.contexts:
	case <-ctx.Done():
		return nil, categorizeError(ctx.Err(), "timed out waiting for a browser context")
	}

	incognito, err := s.browser.Incognito()
	if err != nil {
		s.contexts.Put(nil)
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create browser context", err)
	}
	s.active.Add(1)
	return incognito, nil
}

// release disposes the incognito context and frees its slot.
func (s *Scraper) release(incognito *rod.Browser) {
	if err := incognito.Close(); err != nil {
		slog.Warn("cleanup: failed to dispose browser context", "error", err)
	}
	s.active.Add(-1)
	s.contexts.Put(nil)
}

// Stats returns a snapshot of the context pool.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxContexts:    s.browserCfg.MaxContexts,
		ActiveContexts: int(s.active.Load()),
	}
}

// Close kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("scraper shutdown: browser close failed", "error", err)
	}
	slog.Info("scraper shutdown complete")
}
