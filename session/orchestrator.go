// Package session owns the lifecycle of one browser session per scrape:
// evasion-configured launch, navigation with CAPTCHA observation, human
// behavior simulation and guaranteed teardown.
package session

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/models"
)

// Viewport is one candidate window size for stealth sessions.
type Viewport struct {
	Width, Height int
}

// Fixed candidate sets for stealth identity. Desktop only; a mobile UA with
// a desktop viewport is itself a fingerprint.
var (
	viewports = []Viewport{
		{1920, 1080},
		{1366, 768},
		{1536, 864},
		{1440, 900},
		{1280, 800},
	}

	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	}
)

// captchaSelectors is the ordered signature list scanned after navigation.
// Case-insensitive substring matches over classes, ids and iframe sources,
// including the Cloudflare challenge interstitial. First match wins.
var captchaSelectors = []string{
	`iframe[src*="recaptcha" i]`,
	`iframe[src*="hcaptcha" i]`,
	`iframe[src*="challenges.cloudflare.com" i]`,
	`[class*="g-recaptcha" i]`,
	`[class*="h-captcha" i]`,
	`[class*="captcha" i]`,
	`[id*="captcha" i]`,
	`[id*="turnstile" i]`,
	`#challenge-form`,
	`#cf-challenge-running`,
	`[class*="cf-challenge" i]`,
}

// Orchestrator builds, drives and releases browser sessions. One Session
// per scrape; sessions are never shared across requests.
type Orchestrator struct {
	launcher   browser.Launcher
	browserCfg config.BrowserConfig
	production bool

	// Timing knobs, overridable in tests.
	SettleMin  time.Duration // default 800ms
	SettleMax  time.Duration // default 2200ms
	GracePause time.Duration // default 3s
	StepPause  time.Duration // default 120ms base for scroll intervals
}

// NewOrchestrator wires the orchestrator to an injected Launcher.
func NewOrchestrator(l browser.Launcher, browserCfg config.BrowserConfig, env string) *Orchestrator {
	return &Orchestrator{
		launcher:   l,
		browserCfg: browserCfg,
		production: env == "production",
		SettleMin:  800 * time.Millisecond,
		SettleMax:  2200 * time.Millisecond,
		GracePause: 3 * time.Second,
		StepPause:  120 * time.Millisecond,
	}
}

// Init launches one session built from the request config. With stealth on,
// the automation-revealing switches are dropped and a random viewport and
// desktop user agent are picked from the fixed candidate sets; the chosen
// viewport is remembered so the post-load patches report matching screen
// dimensions. Headless is forced only in a production execution context.
func (o *Orchestrator) Init(cfg models.ScrapeConfig, proxyURL string) (browser.Session, Viewport, error) {
	vp := viewports[0]

	opts := browser.LaunchOptions{
		Headless:   o.browserCfg.Headless,
		NoSandbox:  o.browserCfg.NoSandbox,
		BrowserBin: o.browserCfg.BrowserBin,
	}
	if o.production {
		opts.Headless = true
	}

	if cfg.Stealth() {
		vp = viewports[rand.IntN(len(viewports))]
		opts.Stealth = true
		opts.UserAgent = userAgents[rand.IntN(len(userAgents))]
		opts.ViewportWidth = vp.Width
		opts.ViewportHeight = vp.Height
	}

	if cfg.UseProxy && proxyURL != "" {
		opts.ProxyURL = proxyURL
	}

	sess, err := o.launcher.Launch(opts)
	if err != nil {
		if _, ok := err.(*models.ScrapeError); ok {
			return nil, vp, err
		}
		return nil, vp, models.NewScrapeError(models.ErrCodeSessionInit, "browser launch failed", err)
	}
	return sess, vp, nil
}

// Navigate loads the URL, waits a jittered settle delay (plus the caller's
// extra wait), applies the evasion patch battery if requested, and scans for
// CAPTCHA signatures. A detected challenge is an observation, not an error:
// one fixed grace pause is taken and scraping continues.
func (o *Orchestrator) Navigate(sess browser.Session, url string, cfg models.ScrapeConfig, vp Viewport) (captchaDetected bool, err error) {
	if navErr := sess.Navigate(url); navErr != nil {
		return false, models.NewScrapeError(models.ErrCodeNavigation, "navigation to target URL failed", navErr)
	}

	settle := o.SettleMin
	if o.SettleMax > o.SettleMin {
		settle += time.Duration(rand.Int64N(int64(o.SettleMax - o.SettleMin)))
	}
	settle += time.Duration(cfg.WaitTimeMs) * time.Millisecond
	time.Sleep(settle)

	if cfg.Stealth() {
		if patchErr := applyEnvPatches(sess, stealthPatches(vp.Width, vp.Height)); patchErr != nil {
			slog.Warn("environment patch battery failed", "error", patchErr)
		}
	}

	if o.detectCaptcha(sess) {
		slog.Info("captcha signature detected, pausing", "url", url, "grace", o.GracePause)
		time.Sleep(o.GracePause)
		return true, nil
	}
	return false, nil
}

// detectCaptcha scans the signature list in order and stops at the first
// match, so the observation is recorded once no matter how many signatures
// the page trips.
func (o *Orchestrator) detectCaptcha(sess browser.Session) bool {
	for _, sel := range captchaSelectors {
		has, err := sess.Has(sel)
		if err != nil {
			continue
		}
		if has {
			return true
		}
	}
	return false
}

// SimulateHumanBehavior dispatches a small bounded number of synthetic
// pointer moves at random in-viewport coordinates and one scroll-down /
// partial-scroll-back oscillation. Best-effort: every failure is absorbed.
func (o *Orchestrator) SimulateHumanBehavior(sess browser.Session, vp Viewport) {
	moves := 3 + rand.IntN(5)
	for i := 0; i < moves; i++ {
		x := rand.IntN(vp.Width)
		y := rand.IntN(vp.Height)
		js := fmt.Sprintf(`() => {
			document.dispatchEvent(new PointerEvent('pointermove', {clientX: %d, clientY: %d, bubbles: true}));
		}`, x, y)
		if _, err := sess.Eval(js); err != nil {
			slog.Debug("pointer move failed", "error", err)
			return
		}
		time.Sleep(time.Duration(30+rand.IntN(90)) * time.Millisecond)
	}

	down := 300 + rand.IntN(500)
	if _, err := sess.Eval(fmt.Sprintf(`() => window.scrollBy(0, %d)`, down)); err != nil {
		slog.Debug("behavior scroll failed", "error", err)
		return
	}
	time.Sleep(time.Duration(200+rand.IntN(300)) * time.Millisecond)
	back := down * (40 + rand.IntN(30)) / 100
	if _, err := sess.Eval(fmt.Sprintf(`() => window.scrollBy(0, -%d)`, back)); err != nil {
		slog.Debug("behavior scroll-back failed", "error", err)
	}
}

// ScrollToBottom scrolls by randomized steps at randomized intervals until
// the accumulated scroll covers the document height, then corrects a small
// randomized overshoot. Termination is bounded by document height, which is
// finite, never by a timer.
func (o *Orchestrator) ScrollToBottom(sess browser.Session) error {
	scrolled := 0
	for {
		res, err := sess.Eval(`() => document.body.scrollHeight`)
		if err != nil {
			return fmt.Errorf("read scroll height: %w", err)
		}
		height := res.Int()
		if scrolled >= height {
			break
		}

		step := 250 + rand.IntN(300)
		if _, err := sess.Eval(fmt.Sprintf(`() => window.scrollBy(0, %d)`, step)); err != nil {
			return fmt.Errorf("scroll step: %w", err)
		}
		scrolled += step

		pause := o.StepPause + time.Duration(rand.Int64N(int64(o.StepPause)+1))
		time.Sleep(pause)
	}

	correction := 50 + rand.IntN(100)
	if _, err := sess.Eval(fmt.Sprintf(`() => window.scrollBy(0, -%d)`, correction)); err != nil {
		return fmt.Errorf("overshoot correction: %w", err)
	}
	return nil
}

// Teardown releases the session. Callers defer this exactly once per
// session, covering every exit path including mid-extraction failures.
func (o *Orchestrator) Teardown(sess browser.Session) {
	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		slog.Warn("session teardown error", "error", err)
	}
}
