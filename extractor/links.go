package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/harvest/models"
)

// fileExtensions is the fixed document/archive/media extension set that
// classifies a link as a file download.
var fileExtensions = map[string]struct{}{
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {},
	"ppt": {}, "pptx": {}, "odt": {}, "rtf": {}, "csv": {},
	"zip": {}, "rar": {}, "7z": {}, "tar": {}, "gz": {},
	"mp3": {}, "wav": {}, "flac": {},
	"mp4": {}, "avi": {}, "mov": {}, "mkv": {}, "wmv": {},
	"exe": {}, "dmg": {}, "apk": {},
}

// ClassifyLink classifies an href against its base URL. It is a pure
// function: identical inputs always produce identical results. The domain
// is set only for external links.
//
// Order of rules: mailto, tel, internal (fragment, root-relative, or same
// host), file extension, external.
func ClassifyLink(href, baseURL string) (linkType, domain string) {
	lower := strings.ToLower(href)

	switch {
	case strings.HasPrefix(lower, "mailto:"):
		return models.LinkEmail, ""
	case strings.HasPrefix(lower, "tel:"):
		return models.LinkPhone, ""
	case strings.HasPrefix(href, "#"), strings.HasPrefix(href, "/"):
		// Relative links are internal even when they point at a file;
		// the file class only applies after the host checks below.
		return models.LinkInternal, ""
	}

	target, err := url.Parse(href)
	if err != nil {
		return models.LinkExternal, ""
	}

	base, err := url.Parse(baseURL)
	if err == nil && target.Hostname() != "" && strings.EqualFold(target.Hostname(), base.Hostname()) {
		return models.LinkInternal, ""
	}

	if hasFileExtension(target.Path) {
		return models.LinkFile, ""
	}

	return models.LinkExternal, target.Hostname()
}

// hasFileExtension reports whether the path's trailing extension is in the
// fixed file set.
func hasFileExtension(path string) bool {
	idx := strings.LastIndex(path, ".")
	if idx < 0 || idx == len(path)-1 {
		return false
	}
	ext := strings.ToLower(path[idx+1:])
	_, ok := fileExtensions[ext]
	return ok
}

// extractLinks walks every anchor, classifies it and dedupes by href.
func extractLinks(doc *goquery.Document, baseURL string) []models.LinkRecord {
	links := []models.LinkRecord{}
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		linkType, domain := ClassifyLink(href, baseURL)
		title, _ := s.Attr("title")
		links = append(links, models.LinkRecord{
			Href:   href,
			Text:   strings.TrimSpace(s.Text()),
			Title:  title,
			Type:   linkType,
			Domain: domain,
		})
	})

	return links
}
