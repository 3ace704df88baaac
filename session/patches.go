package session

import (
	"fmt"
	"strings"

	"github.com/use-agent/harvest/browser"
)

// EnvPatch overrides one environment property visible to in-page detection
// scripts. Path is a dotted property path ("navigator.webdriver"); Value is
// a JavaScript expression for the override.
type EnvPatch struct {
	Path  string
	Value string
}

// stealthPatches is the fixed post-load patch battery. The screen overrides
// take the chosen viewport so the reported screen agrees with the window,
// and the timezone patch flips the offset sign reported to scripts.
func stealthPatches(viewportW, viewportH int) []EnvPatch {
	return []EnvPatch{
		{Path: "navigator.webdriver", Value: `undefined`},
		{Path: "navigator.plugins", Value: `[
			{name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer'},
			{name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai'},
			{name: 'Native Client', filename: 'internal-nacl-plugin'}
		]`},
		{Path: "navigator.languages", Value: `['en-US', 'en']`},
		{Path: "navigator.vendor", Value: `'Google Inc.'`},
		{Path: "window.chrome", Value: `{runtime: {}}`},
		{Path: "screen.width", Value: fmt.Sprintf("%d", viewportW)},
		{Path: "screen.height", Value: fmt.Sprintf("%d", viewportH)},
		{Path: "screen.availWidth", Value: fmt.Sprintf("%d", viewportW)},
		{Path: "screen.availHeight", Value: fmt.Sprintf("%d", viewportH-40)},
		{Path: "Date.prototype.getTimezoneOffset", Value: `(function() {
			const original = Date.prototype.getTimezoneOffset;
			return function() { return -original.call(this); };
		})()`},
		{Path: "navigator.getBattery", Value: `function() {
			return Promise.resolve({charging: true, level: 1, chargingTime: 0, dischargingTime: Infinity});
		}`},
		{Path: "navigator.connection", Value: `{effectiveType: '4g', rtt: 50, downlink: 10, saveData: false}`},
		{Path: "navigator.hardwareConcurrency", Value: `8`},
		{Path: "navigator.deviceMemory", Value: `8`},
	}
}

// applyEnvPatches compiles the patch list into one script and evaluates it
// in a single round trip. Each patch is isolated in its own try/catch so a
// property the page has frozen cannot break the rest of the battery.
func applyEnvPatches(sess browser.Session, patches []EnvPatch) error {
	var b strings.Builder
	b.WriteString("() => {\n")
	for _, p := range patches {
		owner, prop := splitPath(p.Path)
		fmt.Fprintf(&b, `try {
			Object.defineProperty(%s, '%s', { get: () => (%s), configurable: true });
		} catch (e) {}
`, owner, prop, p.Value)
	}
	b.WriteString("}")

	_, err := sess.Eval(b.String())
	return err
}

// splitPath splits a dotted property path into the owner expression and the
// final property name. A bare name is owned by window.
func splitPath(path string) (owner, prop string) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "window", path
	}
	return path[:idx], path[idx+1:]
}
