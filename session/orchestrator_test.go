package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/models"
	"github.com/ysmood/gson"
)

// fakeSession records the calls the orchestrator makes against it.
type fakeSession struct {
	scrollHeight int
	hasSelectors map[string]bool

	evalCalls  []string
	hasCalls   []string
	closeCalls int
	evalErr    error
	navErr     error
}

func newFakeSession() *fakeSession {
	return &fakeSession{scrollHeight: 1000, hasSelectors: map[string]bool{}}
}

func (s *fakeSession) Navigate(string) error { return s.navErr }

func (s *fakeSession) Eval(js string) (gson.JSON, error) {
	s.evalCalls = append(s.evalCalls, js)
	if s.evalErr != nil {
		return gson.New(nil), s.evalErr
	}
	if strings.Contains(js, "scrollHeight") {
		return gson.New(s.scrollHeight), nil
	}
	return gson.New(nil), nil
}

func (s *fakeSession) Has(selector string) (bool, error) {
	s.hasCalls = append(s.hasCalls, selector)
	return s.hasSelectors[selector], nil
}

func (s *fakeSession) HTML() (string, error) { return "<html></html>", nil }

func (s *fakeSession) Close() error {
	s.closeCalls++
	return nil
}

type fakeLauncher struct {
	sess      *fakeSession
	launchErr error

	launches []browser.LaunchOptions
}

func (l *fakeLauncher) Launch(opts browser.LaunchOptions) (browser.Session, error) {
	l.launches = append(l.launches, opts)
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return l.sess, nil
}

func newTestOrchestrator(l browser.Launcher, env string) *Orchestrator {
	o := NewOrchestrator(l, config.BrowserConfig{Headless: false}, env)
	o.SettleMin = 0
	o.SettleMax = 0
	o.GracePause = 0
	o.StepPause = 0
	return o
}

func TestInit_StealthPicksIdentity(t *testing.T) {
	l := &fakeLauncher{sess: newFakeSession()}
	o := newTestOrchestrator(l, "development")

	_, vp, err := o.Init(models.ScrapeConfig{StealthMode: true}, "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	opts := l.launches[0]
	if !opts.Stealth {
		t.Error("stealth not propagated to launch options")
	}
	if opts.UserAgent == "" {
		t.Error("stealth launch must override the user agent")
	}
	if opts.ViewportWidth != vp.Width || opts.ViewportHeight != vp.Height {
		t.Errorf("launch viewport %dx%d does not match returned viewport %dx%d",
			opts.ViewportWidth, opts.ViewportHeight, vp.Width, vp.Height)
	}

	found := false
	for _, cand := range viewports {
		if cand == vp {
			found = true
		}
	}
	if !found {
		t.Errorf("viewport %+v not from the candidate set", vp)
	}
}

func TestInit_ProductionForcesHeadless(t *testing.T) {
	l := &fakeLauncher{sess: newFakeSession()}
	o := newTestOrchestrator(l, "production")

	if _, _, err := o.Init(models.ScrapeConfig{}, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !l.launches[0].Headless {
		t.Error("production must force headless regardless of config")
	}
}

func TestInit_ProxyOnlyWhenRequested(t *testing.T) {
	l := &fakeLauncher{sess: newFakeSession()}
	o := newTestOrchestrator(l, "development")

	if _, _, err := o.Init(models.ScrapeConfig{}, "http://proxy:8080"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if l.launches[0].ProxyURL != "" {
		t.Error("proxy applied without use_proxy")
	}

	if _, _, err := o.Init(models.ScrapeConfig{UseProxy: true}, "http://proxy:8080"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if l.launches[1].ProxyURL != "http://proxy:8080" {
		t.Errorf("proxy not applied: %q", l.launches[1].ProxyURL)
	}
}

func TestInit_LaunchFailureWrapped(t *testing.T) {
	l := &fakeLauncher{launchErr: errors.New("chrome not found")}
	o := newTestOrchestrator(l, "development")

	_, _, err := o.Init(models.ScrapeConfig{}, "")
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeSessionInit {
		t.Fatalf("err = %v, want SESSION_INIT_FAILED", err)
	}
}

func TestNavigate_CaptchaIsObservationNotError(t *testing.T) {
	sess := newFakeSession()
	sess.hasSelectors[`iframe[src*="recaptcha" i]`] = true
	sess.hasSelectors[`[class*="captcha" i]`] = true

	o := newTestOrchestrator(&fakeLauncher{sess: sess}, "development")

	captcha, err := o.Navigate(sess, "https://example.com", models.ScrapeConfig{}, viewports[0])
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if !captcha {
		t.Fatal("captcha signature not detected")
	}

	// First match wins: the scan stops at the first matching signature even
	// when the page trips several.
	if len(sess.hasCalls) != 1 {
		t.Errorf("scan made %d selector probes after a match, want 1", len(sess.hasCalls))
	}
}

func TestNavigate_StealthAppliesPatches(t *testing.T) {
	sess := newFakeSession()
	o := newTestOrchestrator(&fakeLauncher{sess: sess}, "development")

	if _, err := o.Navigate(sess, "https://example.com", models.ScrapeConfig{StealthMode: true}, viewports[0]); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	patched := false
	for _, js := range sess.evalCalls {
		if strings.Contains(js, "webdriver") {
			patched = true
		}
	}
	if !patched {
		t.Error("stealth navigation did not apply the environment patches")
	}
}

func TestNavigate_FailureWrapped(t *testing.T) {
	sess := newFakeSession()
	sess.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	o := newTestOrchestrator(&fakeLauncher{sess: sess}, "development")

	_, err := o.Navigate(sess, "https://nowhere.invalid", models.ScrapeConfig{}, viewports[0])
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeNavigation {
		t.Fatalf("err = %v, want NAVIGATION_FAILED", err)
	}
}

func TestScrollToBottom_Terminates(t *testing.T) {
	sess := newFakeSession()
	sess.scrollHeight = 3000
	o := newTestOrchestrator(&fakeLauncher{sess: sess}, "development")

	if err := o.ScrollToBottom(sess); err != nil {
		t.Fatalf("ScrollToBottom: %v", err)
	}

	// At least one scroll step plus the overshoot correction must have run.
	steps := 0
	for _, js := range sess.evalCalls {
		if strings.Contains(js, "scrollBy") {
			steps++
		}
	}
	if steps < 2 {
		t.Errorf("only %d scroll evals, want progress steps plus correction", steps)
	}
}

func TestSimulateHumanBehavior_AbsorbsFailures(t *testing.T) {
	sess := newFakeSession()
	sess.evalErr = errors.New("page gone")
	o := newTestOrchestrator(&fakeLauncher{sess: sess}, "development")

	// Must not panic or propagate the error.
	o.SimulateHumanBehavior(sess, viewports[0])
}

func TestTeardown(t *testing.T) {
	sess := newFakeSession()
	o := newTestOrchestrator(&fakeLauncher{sess: sess}, "development")

	o.Teardown(sess)
	if sess.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", sess.closeCalls)
	}

	// Nil sessions are tolerated so callers can defer unconditionally.
	o.Teardown(nil)
}

func TestDetectCaptcha_NoSignatures(t *testing.T) {
	sess := newFakeSession()
	o := newTestOrchestrator(&fakeLauncher{sess: sess}, "development")

	if o.detectCaptcha(sess) {
		t.Error("clean page reported a captcha")
	}
	if len(sess.hasCalls) != len(captchaSelectors) {
		t.Errorf("scanned %d selectors, want the full list of %d", len(sess.hasCalls), len(captchaSelectors))
	}
}
