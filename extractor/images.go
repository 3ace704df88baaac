package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/harvest/models"
)

// imageFormats is the fixed raster/vector allowlist. A format is recorded
// only when the URL's lowercase trailing extension is in this set.
var imageFormats = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {},
	"webp": {}, "svg": {}, "bmp": {}, "ico": {},
}

// ImageFormat returns the image format for an absolute URL, or "" when the
// extension is absent or outside the allowlist.
func ImageFormat(absURL string) string {
	u, err := url.Parse(absURL)
	if err != nil {
		return ""
	}
	path := u.Path
	idx := strings.LastIndex(path, ".")
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	ext := strings.ToLower(path[idx+1:])
	if _, ok := imageFormats[ext]; ok {
		return ext
	}
	return ""
}

// extractImages resolves every img src against the base URL and records
// alt/title/dimension attributes. Data URIs are skipped, duplicates by
// resolved URL collapsed.
func extractImages(doc *goquery.Document, baseURL string) []models.ImageRecord {
	images := []models.ImageRecord{}

	base, err := url.Parse(baseURL)
	if err != nil {
		return images
	}

	seen := make(map[string]struct{})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return
		}

		resolved, err := base.Parse(src)
		if err != nil || resolved.Scheme == "data" {
			return
		}

		absURL := resolved.String()
		if _, dup := seen[absURL]; dup {
			return
		}
		seen[absURL] = struct{}{}

		alt, _ := s.Attr("alt")
		title, _ := s.Attr("title")
		width, _ := s.Attr("width")
		height, _ := s.Attr("height")

		images = append(images, models.ImageRecord{
			Src:    absURL,
			Alt:    strings.TrimSpace(alt),
			Title:  title,
			Width:  width,
			Height: height,
			Format: ImageFormat(absURL),
		})
	})

	return images
}
