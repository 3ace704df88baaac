// Package scraper assembles the full pipeline: traffic-governor gate,
// session orchestration, content extraction and image acquisition, with
// session teardown guaranteed on every exit path.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/extractor"
	"github.com/use-agent/harvest/governor"
	"github.com/use-agent/harvest/images"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/session"
)

// Coordinator drives one scrape end to end. It is safe for concurrent use;
// each call owns its session exclusively.
type Coordinator struct {
	orchestrator *session.Orchestrator
	engine       *extractor.Engine
	downloader   *images.Downloader
	gov          *governor.Governor
	scraperCfg   config.ScraperConfig
}

// New wires the coordinator.
func New(o *session.Orchestrator, e *extractor.Engine, d *images.Downloader,
	g *governor.Governor, scraperCfg config.ScraperConfig) *Coordinator {
	return &Coordinator{
		orchestrator: o,
		engine:       e,
		downloader:   d,
		gov:          g,
		scraperCfg:   scraperCfg,
	}
}

// Scrape runs the pipeline for one request.
//
// Lifecycle:
//
//  1. Validate URL          – ValidationError before any session exists
//  2. Timeout guard         – deadline for the context-aware stages
//  3. Governor gate         – cooperative wait, never an error by itself
//  4. Proxy selection       – explicit proxy_url wins over rotation
//  5. Init session          – launch with evasion configuration
//  6. DEFER: teardown       – exactly-once release on every exit path
//  7. Navigate              – settle delay, patches, CAPTCHA observation
//  8. Behavior              – human simulation and scroll, best-effort
//  9. Extract               – never fails, degrades per field
//  10. Images               – optional materialization, per-item isolation
func (c *Coordinator) Scrape(ctx context.Context, clientID string, req *models.ScrapeRequest) (*models.ExtractedContent, *extractor.Report, error) {
	// ── 1. Validate URL ─────────────────────────────────────────────
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			"url must be an absolute http(s) URL", err)
	}

	// ── 2. Timeout guard ────────────────────────────────────────────
	// Bounds the governor wait and image downloads. Session operations
	// carry no context; callers wanting a hard stop on a hung navigation
	// wrap the whole Scrape call.
	ctx, cancel := context.WithTimeout(ctx, c.scraperCfg.DefaultTimeout)
	defer cancel()

	// ── 3. Governor gate ────────────────────────────────────────────
	// A long wait here is normal; only context expiry turns it into an
	// error.
	if waitErr := c.gov.Limiter.Wait(ctx, clientID); waitErr != nil {
		return nil, nil, categorizeError(waitErr, "rate-limit wait interrupted")
	}

	// ── 4. Proxy selection ──────────────────────────────────────────
	proxyURL := req.Config.ProxyURL
	if req.Config.UseProxy && proxyURL == "" {
		if p, ok := c.gov.Proxies.Next(); ok {
			proxyURL = p.URL()
			// Advisory probe; outcome never changes the rotation.
			go c.gov.Proxies.Probe(context.Background(), p)
		}
	}

	// ── 5. Init session ─────────────────────────────────────────────
	sess, vp, err := c.orchestrator.Init(req.Config, proxyURL)
	if err != nil {
		return nil, nil, err
	}

	// ── 6. DEFER: teardown on every exit path ───────────────────────
	defer c.orchestrator.Teardown(sess)

	// ── 7. Navigate ─────────────────────────────────────────────────
	captcha, err := c.orchestrator.Navigate(sess, req.URL, req.Config, vp)
	if err != nil {
		return nil, nil, categorizeError(err, "navigation failed")
	}

	// ── 8. Behavior simulation ──────────────────────────────────────
	if req.Config.HumanBehavior {
		c.orchestrator.SimulateHumanBehavior(sess, vp)
	}
	if req.Config.ScrollToBottom {
		if scrollErr := c.orchestrator.ScrollToBottom(sess); scrollErr != nil {
			slog.Debug("scroll to bottom failed, extracting current state", "error", scrollErr)
		}
	}

	// ── 9. Extract ──────────────────────────────────────────────────
	content, report := c.engine.ExtractAll(sess, req.URL, req.Config)
	report.Log(req.URL)

	// ── 10. Images ──────────────────────────────────────────────────
	if req.Config.ExtractImages && req.Config.DownloadImages && len(content.Images) > 0 {
		content.Images = c.downloader.DownloadAll(ctx, content.Images)
		for _, img := range content.Images {
			if img.Downloaded {
				content.DownloadedImages = append(content.DownloadedImages, img.LocalPath)
			}
		}
	}

	content.CaptchaDetected = captcha
	content.Timestamp = time.Now().UTC()
	return content, report, nil
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) error {
	var scrapeErr *models.ScrapeError
	if errors.As(err, &scrapeErr) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
