package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/cache"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/extractor"
	"github.com/use-agent/harvest/fetch"
	"github.com/use-agent/harvest/governor"
	"github.com/use-agent/harvest/images"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/scraper"
	"github.com/use-agent/harvest/session"
	"github.com/ysmood/gson"
)

type fakeSession struct{ html string }

func (s *fakeSession) Navigate(string) error { return nil }
func (s *fakeSession) Eval(js string) (gson.JSON, error) {
	if strings.Contains(js, "scrollHeight") {
		return gson.New(100), nil
	}
	return gson.New(""), nil
}
func (s *fakeSession) Has(string) (bool, error) { return false, nil }
func (s *fakeSession) HTML() (string, error)    { return s.html, nil }
func (s *fakeSession) Close() error             { return nil }

type fakeLauncher struct {
	sess      browser.Session
	launchErr error
	launches  int
}

func (l *fakeLauncher) Launch(browser.LaunchOptions) (browser.Session, error) {
	l.launches++
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return l.sess, nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(context.Context, string) (*fetch.Result, error) {
	return &fetch.Result{Status: 200, Body: []byte("x")}, nil
}

func newTestRouter(t *testing.T, l browser.Launcher, cc *cache.Cache) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := session.NewOrchestrator(l, config.BrowserConfig{Headless: true}, "test")
	o.SettleMin = 0
	o.SettleMax = 0
	o.GracePause = 0
	o.StepPause = 0

	co := scraper.New(o, extractor.NewEngine(),
		images.NewDownloader(fakeFetcher{}, t.TempDir(), 2),
		governor.New(100, time.Minute, nil),
		config.ScraperConfig{DefaultTimeout: 10 * time.Second})

	r := gin.New()
	r.POST("/api/v1/scrape", Scrape(co, cc))
	return r
}

func postScrape(t *testing.T, r *gin.Engine, body string) (*httptest.ResponseRecorder, *models.ScrapeResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp models.ScrapeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\n%s", err, w.Body.String())
	}
	return w, &resp
}

func TestScrape_Success(t *testing.T) {
	l := &fakeLauncher{sess: &fakeSession{html: "<html><head><title>Hi</title></head><body><p>Hello.</p></body></html>"}}
	r := newTestRouter(t, l, nil)

	w, resp := postScrape(t, r, `{"url": "https://example.com/page"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !resp.Success || resp.Content == nil {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Content.Title != "Hi" {
		t.Errorf("Title = %q", resp.Content.Title)
	}
}

func TestScrape_MalformedBody(t *testing.T) {
	r := newTestRouter(t, &fakeLauncher{sess: &fakeSession{html: "<html></html>"}}, nil)

	w, resp := postScrape(t, r, `{"url": `)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidInput {
		t.Errorf("response = %+v", resp)
	}
}

func TestScrape_MissingURL(t *testing.T) {
	r := newTestRouter(t, &fakeLauncher{sess: &fakeSession{html: "<html></html>"}}, nil)

	w, _ := postScrape(t, r, `{"config": {"extract_text": true}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestScrape_SessionInitMapsTo503(t *testing.T) {
	l := &fakeLauncher{launchErr: errors.New("no chrome binary")}
	r := newTestRouter(t, l, nil)

	w, resp := postScrape(t, r, `{"url": "https://example.com"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeSessionInit {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestScrape_CacheHitSkipsBrowser(t *testing.T) {
	l := &fakeLauncher{sess: &fakeSession{html: "<html><head><title>Cached</title></head><body></body></html>"}}
	cc := cache.New(10)
	r := newTestRouter(t, l, cc)

	body := `{"url": "https://example.com/page"}`

	_, first := postScrape(t, r, body)
	if first.CacheStatus != "miss" {
		t.Fatalf("first CacheStatus = %q, want miss", first.CacheStatus)
	}

	_, second := postScrape(t, r, body)
	if second.CacheStatus != "hit" {
		t.Fatalf("second CacheStatus = %q, want hit", second.CacheStatus)
	}
	if l.launches != 1 {
		t.Errorf("launched %d sessions, the second request must be served from cache", l.launches)
	}
}

func TestScrape_ConcurrentCacheHits(t *testing.T) {
	l := &fakeLauncher{sess: &fakeSession{html: "<html><head><title>Shared</title></head><body></body></html>"}}
	cc := cache.New(10)
	r := newTestRouter(t, l, cc)

	body := `{"url": "https://example.com/page"}`

	// Prime the cache, then hammer the same key concurrently. Each hit
	// stamps CacheStatus and Timing on its own copy; the stored response
	// is never written after it enters the cache.
	if _, first := postScrape(t, r, body); first.CacheStatus != "miss" {
		t.Fatalf("priming CacheStatus = %q, want miss", first.CacheStatus)
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]*models.ScrapeResponse, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			var resp models.ScrapeResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Errorf("request %d: unmarshal: %v", i, err)
				return
			}
			results[i] = &resp
		}(i)
	}
	wg.Wait()

	for i, resp := range results {
		if resp == nil {
			continue
		}
		if resp.CacheStatus != "hit" {
			t.Errorf("request %d CacheStatus = %q, want hit", i, resp.CacheStatus)
		}
		if resp.Content == nil || resp.Content.Title != "Shared" {
			t.Errorf("request %d content corrupted: %+v", i, resp.Content)
		}
	}

	if l.launches != 1 {
		t.Errorf("launched %d sessions, all concurrent requests must hit the cache", l.launches)
	}
}

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.ErrCodeInvalidInput, http.StatusBadRequest},
		{models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeNavigation, http.StatusBadGateway},
		{models.ErrCodeSessionInit, http.StatusServiceUnavailable},
		{models.ErrCodeRateLimited, http.StatusTooManyRequests},
		{models.ErrCodeUnauthorized, http.StatusUnauthorized},
		{models.ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := models.NewScrapeError(tt.code, "m", nil)
			if got := mapErrorToStatus(e); got != tt.want {
				t.Errorf("mapErrorToStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
