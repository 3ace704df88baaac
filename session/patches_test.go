package session

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path      string
		wantOwner string
		wantProp  string
	}{
		{"navigator.webdriver", "navigator", "webdriver"},
		{"Date.prototype.getTimezoneOffset", "Date.prototype", "getTimezoneOffset"},
		{"chrome", "window", "chrome"},
	}

	for _, tt := range tests {
		owner, prop := splitPath(tt.path)
		if owner != tt.wantOwner || prop != tt.wantProp {
			t.Errorf("splitPath(%q) = (%q, %q), want (%q, %q)",
				tt.path, owner, prop, tt.wantOwner, tt.wantProp)
		}
	}
}

func TestStealthPatches_ScreenMatchesViewport(t *testing.T) {
	patches := stealthPatches(1366, 768)

	byPath := map[string]string{}
	for _, p := range patches {
		byPath[p.Path] = p.Value
	}

	if byPath["screen.width"] != "1366" || byPath["screen.height"] != "768" {
		t.Errorf("screen patches = %q x %q, want viewport dimensions",
			byPath["screen.width"], byPath["screen.height"])
	}
	if byPath["navigator.webdriver"] != "undefined" {
		t.Errorf("webdriver patch = %q", byPath["navigator.webdriver"])
	}
}

func TestApplyEnvPatches_SingleRoundTrip(t *testing.T) {
	sess := newFakeSession()

	if err := applyEnvPatches(sess, stealthPatches(1920, 1080)); err != nil {
		t.Fatalf("applyEnvPatches: %v", err)
	}
	if len(sess.evalCalls) != 1 {
		t.Fatalf("made %d evals, want the whole battery in 1", len(sess.evalCalls))
	}

	js := sess.evalCalls[0]
	// Every patch is wrapped in its own try/catch so one frozen property
	// cannot break the rest.
	if strings.Count(js, "try {") != len(stealthPatches(1920, 1080)) {
		t.Error("patches not individually isolated")
	}
}

func TestApplyEnvPatches_EvalFailure(t *testing.T) {
	sess := newFakeSession()
	sess.evalErr = errors.New("context destroyed")

	if err := applyEnvPatches(sess, stealthPatches(1920, 1080)); err == nil {
		t.Fatal("eval failure not reported")
	}
}
