package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Fetch modes for the extraction session.
const (
	FetchModeBrowser = "browser"
	FetchModeHTTP    = "http"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Extract   ExtractConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxContexts caps concurrently open incognito contexts (one per job).
	MaxContexts int // default: 4

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects stealth.JS into every page before navigation.
	Stealth bool // default: true
}

// ScraperConfig controls how a single listing page is loaded.
type ScraperConfig struct {
	// FetchMode is "browser" (rod) or "http" (static fetch, no JS).
	FetchMode string // default: "browser"

	// NavigationTimeout bounds navigation up to DOMContentLoaded.
	NavigationTimeout time.Duration // default: 30s

	// UserAgent and AcceptLanguage form the client identity presented to sites.
	UserAgent      string
	AcceptLanguage string

	// BlockedResourceTypes lists resource types to block.
	// default: ["Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// ExtractConfig tunes the per-field strategy tables.
type ExtractConfig struct {
	// ElementWait bounds any strategy that waits for an element.
	ElementWait time.Duration // default: 10s

	AddressSelector string // default: ".property-address"
	PriceSelector   string // default: ".property-price"

	// PricePattern is matched against the meta description; group 1 is the price.
	PricePattern string

	// ImagePattern selects listing photos by their CDN source URL.
	ImagePattern string
}

// DatabaseConfig controls the job store.
type DatabaseConfig struct {
	// URL is the Postgres connection string. Empty selects the in-memory store.
	URL string

	MaxOpenConns    int           // default: 10
	MaxIdleConns    int           // default: 2
	ConnMaxLifetime time.Duration // default: 1h

	// AutoMigrate applies embedded schema migrations on startup.
	AutoMigrate bool // default: true
}

// RateLimitConfig controls per-client rate limiting on the API.
type RateLimitConfig struct {
	Enabled bool // default: true

	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per client.
	Burst int // default: 5
}

// WebhookConfig controls terminal-state notifications. Disabled when URL is empty.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

const (
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	defaultAcceptLanguage = "en-US,en;q=0.9"
	defaultPricePattern   = `(?i)Sale Price\s*[-:]\s*(.+?)\s*✓`
	defaultImagePattern   = `^https?://img\.staticmb\.com/mbphoto/property/`
)

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PROPSCRAPE_HOST", "0.0.0.0"),
			Port: envIntOr("PROPSCRAPE_PORT", 8080),
			Mode: envOr("PROPSCRAPE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("PROPSCRAPE_HEADLESS", true),
			MaxContexts:  envIntOr("PROPSCRAPE_MAX_CONTEXTS", 4),
			DefaultProxy: os.Getenv("PROPSCRAPE_PROXY"),
			NoSandbox:    envBoolOr("PROPSCRAPE_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PROPSCRAPE_BROWSER_BIN"),
			Stealth:      envBoolOr("PROPSCRAPE_STEALTH", true),
		},
		Scraper: ScraperConfig{
			FetchMode:         envOr("PROPSCRAPE_FETCH_MODE", FetchModeBrowser),
			NavigationTimeout: envDurationOr("PROPSCRAPE_NAV_TIMEOUT", 30*time.Second),
			UserAgent:         envOr("PROPSCRAPE_USER_AGENT", defaultUserAgent),
			AcceptLanguage:    envOr("PROPSCRAPE_ACCEPT_LANGUAGE", defaultAcceptLanguage),
			BlockedResourceTypes: envSliceOr("PROPSCRAPE_BLOCKED_RESOURCES", []string{
				"Stylesheet", "Font", "Media",
			}),
		},
		Extract: ExtractConfig{
			ElementWait:     envDurationOr("PROPSCRAPE_ELEMENT_WAIT", 10*time.Second),
			AddressSelector: envOr("PROPSCRAPE_ADDRESS_SELECTOR", ".property-address"),
			PriceSelector:   envOr("PROPSCRAPE_PRICE_SELECTOR", ".property-price"),
			PricePattern:    envOr("PROPSCRAPE_PRICE_PATTERN", defaultPricePattern),
			ImagePattern:    envOr("PROPSCRAPE_IMAGE_PATTERN", defaultImagePattern),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envIntOr("PROPSCRAPE_DB_MAX_OPEN", 10),
			MaxIdleConns:    envIntOr("PROPSCRAPE_DB_MAX_IDLE", 2),
			ConnMaxLifetime: envDurationOr("PROPSCRAPE_DB_CONN_LIFETIME", time.Hour),
			AutoMigrate:     envBoolOr("PROPSCRAPE_DB_AUTO_MIGRATE", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:           envBoolOr("PROPSCRAPE_RATE_ENABLED", true),
			RequestsPerSecond: envFloatOr("PROPSCRAPE_RATE_RPS", 1.0),
			Burst:             envIntOr("PROPSCRAPE_RATE_BURST", 5),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("PROPSCRAPE_WEBHOOK_URL"),
			Secret: os.Getenv("PROPSCRAPE_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("PROPSCRAPE_LOG_LEVEL", "info"),
			Format: envOr("PROPSCRAPE_LOG_FORMAT", "json"),
		},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Scraper.FetchMode != FetchModeBrowser && c.Scraper.FetchMode != FetchModeHTTP {
		return fmt.Errorf("fetch mode must be %q or %q, got %q", FetchModeBrowser, FetchModeHTTP, c.Scraper.FetchMode)
	}
	if c.Browser.MaxContexts <= 0 {
		return fmt.Errorf("max contexts must be positive")
	}
	if c.Scraper.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.Extract.ElementWait <= 0 {
		return fmt.Errorf("element wait must be positive")
	}
	if c.Scraper.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	for name, sel := range map[string]string{
		"address selector": c.Extract.AddressSelector,
		"price selector":   c.Extract.PriceSelector,
	} {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, sel, err)
		}
	}
	re, err := regexp.Compile(c.Extract.PricePattern)
	if err != nil {
		return fmt.Errorf("invalid price pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return fmt.Errorf("price pattern must have a capture group")
	}
	if _, err := regexp.Compile(c.Extract.ImagePattern); err != nil {
		return fmt.Errorf("invalid image pattern: %w", err)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
