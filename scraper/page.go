package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/propscrape/models"
	"github.com/ysmood/gson"
)

// Execute renders pageURL in an isolated browser context and extracts the
// listing fields from it.
//
// Lifecycle:
//
//  1. Acquire context   – take a pool slot, open an incognito context
//  2. DEFER: cleanup    – close page, dispose context, free slot (every path)
//  3. Client identity   – user agent, Accept-Language, referer
//  4. Stealth injection – before navigation
//  5. Hijack mount      – block stylesheets/fonts/media, before navigation
//  6. Navigate          – bounded by NavigationTimeout, waits for DOMContentLoaded
//  7. Extract           – run every field against the live page
//
// Steps 3-5 only take effect for navigations that happen after they are
// installed, so they must precede step 6.
func (s *Scraper) Execute(ctx context.Context, pageURL string) (res *models.ExtractionResult, err error) {
	// ── 1. Acquire context ────────────────────────────────────────────
	incognito, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.release(incognito)
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}

	// ── 2. Cleanup on every path, including panics below ──────────────
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("cleanup: failed to close page", "error", closeErr)
		}
		s.release(incognito)
	}()

	// ── 3. Client identity ────────────────────────────────────────────
	if uaErr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.scraperCfg.UserAgent,
		AcceptLanguage: s.scraperCfg.AcceptLanguage,
	}); uaErr != nil {
		slog.Warn("user agent override failed", "error", uaErr)
	}
	if u, parseErr := url.Parse(pageURL); parseErr == nil && u.Hostname() != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}

	// ── 4. Stealth injection ──────────────────────────────────────────
	if s.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 5. Hijack mount ───────────────────────────────────────────────
	if router := setupHijack(page, s.scraperCfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 6. Navigate ───────────────────────────────────────────────────
	if err := s.navigate(ctx, page, pageURL); err != nil {
		return nil, err
	}

	// ── 7. Extract ────────────────────────────────────────────────────
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = models.NewScrapeError(models.ErrCodeExtractPanic, "extraction aborted unexpectedly", fmt.Errorf("panic: %v", r))
		}
	}()

	live := page.Context(ctx)
	finalURL := evalStringOrEmpty(live, `() => window.location.href`)
	if finalURL == "" {
		finalURL = pageURL
	}
	return s.extractor.Run(newRodPage(live, finalURL)), nil
}

// navigate loads pageURL and waits for DOMContentLoaded. The wait is
// registered before Navigate so the event cannot be missed.
func (s *Scraper) navigate(ctx context.Context, page *rod.Page, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
	defer cancel()

	p := page.Context(navCtx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(pageURL); err != nil {
		return s.navigationError(err)
	}
	wait()

	if err := navCtx.Err(); err != nil {
		return s.navigationError(err)
	}
	return nil
}

func (s *Scraper) navigationError(err error) *models.ScrapeError {
	if errors.Is(err, context.DeadlineExceeded) {
		return categorizeError(err, fmt.Sprintf("listing page did not load within %s", s.scraperCfg.NavigationTimeout))
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return categorizeError(err, "navigation to listing page failed: "+navErr.Reason)
	}
	return categorizeError(err, "navigation to listing page failed")
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
