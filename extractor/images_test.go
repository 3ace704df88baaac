package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestImageFormat(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"jpg", "https://example.com/a.jpg", "jpg"},
		{"uppercase extension", "https://example.com/a.PNG", "png"},
		{"webp with query", "https://example.com/a.webp?w=800", "webp"},
		{"svg", "https://example.com/logo.svg", "svg"},
		{"outside allowlist", "https://example.com/a.tiff", ""},
		{"no extension", "https://example.com/image", ""},
		{"trailing dot", "https://example.com/image.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageFormat(tt.url); got != tt.want {
				t.Errorf("ImageFormat(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractImages(t *testing.T) {
	html := `<html><body>
		<img src="/hero.jpg" alt=" Hero banner " width="1200" height="600">
		<img src="https://cdn.example.com/icon.png" alt="icon">
		<img src="/hero.jpg" alt="duplicate">
		<img src="data:image/png;base64,iVBORw0KGgo=" alt="inline">
		<img alt="no src">
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	images := extractImages(doc, "https://example.com/page")
	if len(images) != 2 {
		t.Fatalf("got %d images, want 2 (dedup, data URI and missing src skipped): %+v", len(images), images)
	}

	first := images[0]
	if first.Src != "https://example.com/hero.jpg" {
		t.Errorf("relative src not resolved: %q", first.Src)
	}
	if first.Alt != "Hero banner" {
		t.Errorf("alt not trimmed: %q", first.Alt)
	}
	if first.Width != "1200" || first.Height != "600" {
		t.Errorf("dimensions = %q x %q, want 1200 x 600", first.Width, first.Height)
	}
	if first.Format != "jpg" {
		t.Errorf("format = %q, want jpg", first.Format)
	}

	if images[1].Src != "https://cdn.example.com/icon.png" || images[1].Format != "png" {
		t.Errorf("second image = %+v", images[1])
	}
}
