package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the scrape completed without a fatal error.
	Success bool `json:"success"`

	// Content is the extracted aggregate. Nil when Success is false.
	Content *ExtractedContent `json:"content,omitempty"`

	// Degraded lists field extractors that failed and were recovered as
	// empty values, e.g. "structured_data: invalid JSON-LD".
	Degraded []string `json:"degraded,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// NavigationMs is the time spent launching, navigating and rendering.
	NavigationMs int64 `json:"navigation_ms"`

	// ExtractionMs is the time spent reading the DOM into the aggregate.
	ExtractionMs int64 `json:"extraction_ms"`

	// DownloadMs is the time spent materializing images, if requested.
	DownloadMs int64 `json:"download_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "degraded"
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// Capabilities is the static descriptor returned by GET /api/v1/capabilities.
type Capabilities struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Extractors []string `json:"extractors"`
	Behaviors  []string `json:"behaviors"`
	Proxies    bool     `json:"proxies"`
}
