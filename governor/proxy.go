package governor

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/use-agent/harvest/models"
)

// probeTarget is a lightweight endpoint used for advisory connectivity
// probes through a proxy.
const probeTarget = "https://www.google.com/generate_204"

// ProxyManager rotates over a fixed, ordered proxy list. Next cycles
// round-robin with wraparound; Random picks uniformly. Health probes are
// advisory only: a proxy that fails a probe remains in rotation. Whether
// that is intentional is an open product question; the behavior is kept
// deliberately and only surfaced through logs.
type ProxyManager struct {
	mu      sync.Mutex
	proxies []models.ProxyConfig
	next    int

	health *gocache.Cache
	client *http.Client
}

// NewProxyManager creates a manager over the given rotation list. Probe
// results are cached for five minutes so repeated scrapes do not hammer
// the probe target.
func NewProxyManager(proxies []models.ProxyConfig) *ProxyManager {
	return &ProxyManager{
		proxies: proxies,
		health:  gocache.New(5*time.Minute, 10*time.Minute),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Size returns the number of configured proxies.
func (pm *ProxyManager) Size() int {
	return len(pm.proxies)
}

// Next returns the next proxy in rotation order, wrapping around. The
// second result is false when no proxies are configured.
func (pm *ProxyManager) Next() (models.ProxyConfig, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.proxies) == 0 {
		return models.ProxyConfig{}, false
	}
	p := pm.proxies[pm.next%len(pm.proxies)]
	pm.next = (pm.next + 1) % len(pm.proxies)
	return p, true
}

// Random returns a uniformly random proxy.
func (pm *ProxyManager) Random() (models.ProxyConfig, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.proxies) == 0 {
		return models.ProxyConfig{}, false
	}
	return pm.proxies[rand.IntN(len(pm.proxies))], true
}

// Probe checks connectivity through the proxy and caches the outcome. The
// result does not affect rotation.
func (pm *ProxyManager) Probe(ctx context.Context, p models.ProxyConfig) bool {
	key := p.URL()
	if cached, found := pm.health.Get(key); found {
		return cached.(bool)
	}

	healthy := pm.probe(ctx, p)
	pm.health.Set(key, healthy, gocache.DefaultExpiration)
	if !healthy {
		slog.Warn("proxy failed health probe, kept in rotation", "proxy", p.Host)
	}
	return healthy
}

func (pm *ProxyManager) probe(ctx context.Context, p models.ProxyConfig) bool {
	proxyURL, err := url.Parse(p.URL())
	if err != nil {
		return false
	}

	client := &http.Client{
		Timeout:   pm.client.Timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeTarget, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

// Governor bundles the rate limiter and proxy manager into the single
// traffic-governing unit shared across callers.
type Governor struct {
	Limiter *RateLimiter
	Proxies *ProxyManager
}

// New creates a Governor from configuration values.
func New(maxRequests int, window time.Duration, proxies []models.ProxyConfig) *Governor {
	return &Governor{
		Limiter: NewRateLimiter(maxRequests, window),
		Proxies: NewProxyManager(proxies),
	}
}
