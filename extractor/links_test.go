package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/harvest/models"
)

func TestClassifyLink(t *testing.T) {
	base := "https://example.com/products"

	tests := []struct {
		name       string
		href       string
		wantType   string
		wantDomain string
	}{
		{"mailto", "mailto:sales@example.com", models.LinkEmail, ""},
		{"mailto uppercase scheme", "MAILTO:sales@example.com", models.LinkEmail, ""},
		{"tel", "tel:+12125551234", models.LinkPhone, ""},
		{"fragment", "#pricing", models.LinkInternal, ""},
		{"root relative", "/about", models.LinkInternal, ""},
		{"root relative file", "/downloads/report.pdf", models.LinkInternal, ""},
		{"same host absolute", "https://example.com/contact", models.LinkInternal, ""},
		{"same host different case", "https://EXAMPLE.com/contact", models.LinkInternal, ""},
		{"external file", "https://y.com/z.pdf", models.LinkFile, ""},
		{"external archive", "https://cdn.y.com/bundle.zip", models.LinkFile, ""},
		{"external page", "https://other.org/page", models.LinkExternal, "other.org"},
		{"external with port", "https://other.org:8443/page", models.LinkExternal, "other.org"},
		{"external no extension match", "https://other.org/file.html", models.LinkExternal, "other.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotDomain := ClassifyLink(tt.href, base)
			if gotType != tt.wantType {
				t.Errorf("ClassifyLink(%q) type = %q, want %q", tt.href, gotType, tt.wantType)
			}
			if gotDomain != tt.wantDomain {
				t.Errorf("ClassifyLink(%q) domain = %q, want %q", tt.href, gotDomain, tt.wantDomain)
			}
		})
	}
}

func TestClassifyLink_Deterministic(t *testing.T) {
	// Classification must be a pure function of its inputs.
	for i := 0; i < 10; i++ {
		gotType, gotDomain := ClassifyLink("https://other.org/page", "https://example.com")
		if gotType != models.LinkExternal || gotDomain != "other.org" {
			t.Fatalf("iteration %d: got (%q, %q), want (external, other.org)", i, gotType, gotDomain)
		}
	}
}

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="/about">About</a>
		<a href="/about">About again</a>
		<a href="mailto:hi@example.com" title="Email us">Email</a>
		<a href="javascript:void(0)">Nope</a>
		<a href="">Empty</a>
		<a href="https://other.org/page">Other</a>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	links := extractLinks(doc, "https://example.com")
	if len(links) != 3 {
		t.Fatalf("got %d links, want 3 (dedup + javascript/empty skipped): %+v", len(links), links)
	}

	if links[0].Href != "/about" || links[0].Type != models.LinkInternal {
		t.Errorf("first link = %+v, want internal /about", links[0])
	}
	if links[1].Type != models.LinkEmail || links[1].Title != "Email us" {
		t.Errorf("second link = %+v, want email with title", links[1])
	}
	if links[2].Type != models.LinkExternal || links[2].Domain != "other.org" {
		t.Errorf("third link = %+v, want external other.org", links[2])
	}
}
