package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/cache"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/scraper"
)

// cacheMaxAge is how long a cached scrape response stays servable.
const cacheMaxAge = 10 * time.Minute

// Scrape returns a handler for POST /api/v1/scrape.
//
// Flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup by url+config.
//  3. Coordinator.Scrape → ExtractedContent (records navigation/extraction time).
//  4. Fill Timing, store in cache, return 200.
func Scrape(co *scraper.Coordinator, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		cacheKey := cache.Key(req.URL, req.Config)
		if cc != nil {
			if cached, hit := cc.Get(cacheKey, cacheMaxAge); hit {
				// The cached object is shared across requests; stamp the
				// per-request fields on a copy, never on the stored value.
				resp := *cached
				resp.CacheStatus = "hit"
				resp.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, resp)
				return
			}
		}

		// Rate-limit identity: the API key when authenticated, else the
		// client address.
		clientID := c.ClientIP()
		if key, ok := c.Get("api_key"); ok {
			clientID = key.(string)
		}

		scrapeStart := time.Now()
		content, report, err := co.Scrape(c.Request.Context(), clientID, &req)
		scrapeMs := time.Since(scrapeStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: scrapeMs,
			})
			return
		}

		resp := &models.ScrapeResponse{
			Success: true,
			Content: content,
			Timing: models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: scrapeMs,
			},
		}
		if report != nil {
			resp.Degraded = report.Degraded
		}

		if cc != nil {
			// Stamp before Set: once stored, the object may already be
			// served to a concurrent hit and must not be written again.
			resp.CacheStatus = "miss"
			cc.Set(cacheKey, resp)
		}

		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ScrapeResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeSessionInit:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
