// Package browser defines the browser-automation capability consumed by the
// scrape pipeline, plus its Rod-backed implementation. The pipeline only
// ever sees these interfaces; tests substitute fakes.
package browser

import "github.com/ysmood/gson"

// LaunchOptions describes one browser session to create.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a window.
	Headless bool

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// ProxyURL routes all session traffic through a proxy when non-empty.
	ProxyURL string

	// Stealth disables automation-revealing switches and injects the
	// stealth script before any document loads.
	Stealth bool

	// UserAgent overrides the reported user agent when non-empty.
	UserAgent string

	// ViewportWidth and ViewportHeight override the viewport when both
	// are positive.
	ViewportWidth  int
	ViewportHeight int
}

// Launcher creates browser sessions. One session serves exactly one scrape.
type Launcher interface {
	Launch(opts LaunchOptions) (Session, error)
}

// Session is one live browser-automation connection. Commands are processed
// one at a time by the remote end; Session implementations are not required
// to be safe for concurrent use.
type Session interface {
	// Navigate loads the URL and waits for the load event.
	Navigate(url string) error

	// Eval runs a JavaScript function expression in the page and returns
	// its value.
	Eval(js string) (gson.JSON, error)

	// Has reports whether any element matches the CSS selector.
	Has(selector string) (bool, error)

	// HTML returns the current serialized document.
	HTML() (string, error)

	// Close releases the session and its browser process. Safe to call
	// once; callers guarantee exactly-once invocation.
	Close() error
}
