package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/models"
)

// Version is the service version reported by health and capabilities.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
func Health(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
		})
	}
}

// Capabilities returns a handler for GET /api/v1/capabilities: a static
// descriptor of what the pipeline can do.
func Capabilities(hasProxies bool) gin.HandlerFunc {
	caps := models.Capabilities{
		Name:    "harvest",
		Version: Version,
		Extractors: []string{
			"text", "headings", "paragraphs", "lists", "tables", "forms",
			"images", "links", "metadata", "structured_data", "social_media",
			"contact_info",
		},
		Behaviors: []string{
			"stealth_mode", "human_behavior", "scroll_to_bottom",
			"captcha_detection", "image_download",
		},
		Proxies: hasProxies,
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, caps)
	}
}
