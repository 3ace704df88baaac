package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/use-agent/harvest/models"
)

// Config holds all application configuration. It is loaded once at startup
// and handed to components as constructor parameters; nothing below reads
// the environment after Load returns.
type Config struct {
	Env       string // "development" or "production"
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Governor  GovernorConfig
	Images    ImageConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser sessions.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless. Forced to true
	// when Env is "production" regardless of this value.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls pipeline behavior.
type ScraperConfig struct {
	// DefaultTimeout is the per-request deadline for the whole scrape.
	DefaultTimeout time.Duration // default: 60s

	// MaxTimeout caps client-supplied timeouts.
	MaxTimeout time.Duration // default: 180s
}

// GovernorConfig controls the traffic governor.
type GovernorConfig struct {
	// MaxRequests is the number of requests allowed per identifier within
	// one Window.
	MaxRequests int // default: 10

	// Window is the rolling rate-limit window.
	Window time.Duration // default: 1m

	// ProxyFile is an optional YAML file listing proxy endpoints.
	ProxyFile string

	// Proxies is the loaded rotation list.
	Proxies []models.ProxyConfig
}

// ImageConfig controls image acquisition.
type ImageConfig struct {
	// Dir is the destination directory for downloaded images.
	Dir string // default: "downloaded_images"

	// Workers bounds concurrent downloads.
	Workers int // default: 4

	// MaxBytes caps a single image body.
	MaxBytes int64 // default: 20 MB
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls the API-layer token-bucket middleware. This is
// distinct from the governor, which bounds outbound scrape cadence.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults
// and, when HARVEST_PROXY_FILE is set, the proxy rotation list from YAML.
func Load() (*Config, error) {
	cfg := &Config{
		Env: envOr("HARVEST_ENV", "development"),
		Server: ServerConfig{
			Host: envOr("HARVEST_HOST", "0.0.0.0"),
			Port: envIntOr("HARVEST_PORT", 8080),
			Mode: envOr("HARVEST_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("HARVEST_HEADLESS", true),
			NoSandbox:  envBoolOr("HARVEST_NO_SANDBOX", false),
			BrowserBin: os.Getenv("HARVEST_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout: envDurationOr("HARVEST_DEFAULT_TIMEOUT", 60*time.Second),
			MaxTimeout:     envDurationOr("HARVEST_MAX_TIMEOUT", 180*time.Second),
		},
		Governor: GovernorConfig{
			MaxRequests: envIntOr("HARVEST_GOVERNOR_MAX", 10),
			Window:      envDurationOr("HARVEST_GOVERNOR_WINDOW", time.Minute),
			ProxyFile:   os.Getenv("HARVEST_PROXY_FILE"),
		},
		Images: ImageConfig{
			Dir:      envOr("HARVEST_IMAGE_DIR", "downloaded_images"),
			Workers:  envIntOr("HARVEST_IMAGE_WORKERS", 4),
			MaxBytes: int64(envIntOr("HARVEST_IMAGE_MAX_BYTES", 20*1024*1024)),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("HARVEST_AUTH_ENABLED", false),
			APIKeys: envSliceOr("HARVEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("HARVEST_RATE_RPS", 5.0),
			Burst:             envIntOr("HARVEST_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("HARVEST_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			Level:  envOr("HARVEST_LOG_LEVEL", "info"),
			Format: envOr("HARVEST_LOG_FORMAT", "json"),
		},
	}

	// Only a production deployment forces headless; local runs may want a
	// visible browser for debugging evasion behavior.
	if cfg.Env == "production" {
		cfg.Browser.Headless = true
	}

	if cfg.Governor.ProxyFile != "" {
		proxies, err := LoadProxies(cfg.Governor.ProxyFile)
		if err != nil {
			return nil, fmt.Errorf("config: load proxy file: %w", err)
		}
		cfg.Governor.Proxies = proxies
	}

	return cfg, nil
}

// LoadProxies reads a YAML proxy list of the form:
//
//	proxies:
//	  - host: 10.0.0.1
//	    port: 8080
//	    type: http
//	    username: u
//	    password: p
func LoadProxies(path string) ([]models.ProxyConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var out struct {
		Proxies []models.ProxyConfig `mapstructure:"proxies"`
	}
	if err := v.Unmarshal(&out); err != nil {
		return nil, err
	}

	for i, p := range out.Proxies {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("proxy %d: %w", i, err)
		}
	}
	return out.Proxies, nil
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
