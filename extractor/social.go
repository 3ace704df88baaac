package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// socialSelectors is the fixed per-platform selector set. Matchers are
// compiled once; ordering is stable so the first matching anchor wins
// deterministically per platform.
var socialSelectors = []struct {
	platform string
	matcher  cascadia.Selector
}{
	{"facebook", cascadia.MustCompile(`a[href*="facebook.com"]`)},
	{"twitter", cascadia.MustCompile(`a[href*="twitter.com"], a[href*="//x.com"], a[href*="www.x.com"]`)},
	{"instagram", cascadia.MustCompile(`a[href*="instagram.com"]`)},
	{"linkedin", cascadia.MustCompile(`a[href*="linkedin.com"]`)},
	{"youtube", cascadia.MustCompile(`a[href*="youtube.com"], a[href*="youtu.be"]`)},
	{"tiktok", cascadia.MustCompile(`a[href*="tiktok.com"]`)},
}

// extractSocialLinks returns the first matching anchor href per platform.
func extractSocialLinks(doc *goquery.Document) map[string]string {
	out := map[string]string{}
	for _, entry := range socialSelectors {
		sel := doc.FindMatcher(entry.matcher).First()
		if href, ok := sel.Attr("href"); ok && href != "" {
			out[entry.platform] = href
		}
	}
	return out
}
