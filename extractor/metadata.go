package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/harvest/models"
)

// extractMetadata does the explicit head lookups plus the bulk og:* and
// twitter:* collection, and pulls the identity fields (title, description,
// keywords, author, publish date) that live alongside them.
func extractMetadata(doc *goquery.Document) (meta models.Metadata, title, desc string, keywords []string, author, publishDate string) {
	meta = models.Metadata{
		OpenGraph:   map[string]string{},
		TwitterCard: map[string]string{},
		JSONLD:      []map[string]any{},
	}
	keywords = []string{}

	if charset, ok := doc.Find("meta[charset]").Attr("charset"); ok {
		meta.Charset = charset
	}
	meta.Viewport = metaContent(doc, `meta[name="viewport"]`)
	meta.Robots = metaContent(doc, `meta[name="robots"]`)
	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		meta.Canonical = canonical
	}

	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content != "" && strings.HasPrefix(prop, "og:") {
			meta.OpenGraph[prop] = content
		}
	})

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		if content != "" && strings.HasPrefix(name, "twitter:") {
			meta.TwitterCard[name] = content
		}
	})

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = meta.OpenGraph["og:title"]
	}

	desc = metaContent(doc, `meta[name="description"]`)
	if desc == "" {
		desc = meta.OpenGraph["og:description"]
	}

	if kw := metaContent(doc, `meta[name="keywords"]`); kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if trimmed := strings.TrimSpace(k); trimmed != "" {
				keywords = append(keywords, trimmed)
			}
		}
	}

	author = metaContent(doc, `meta[name="author"]`)

	publishDate = propertyContent(doc, `meta[property="article:published_time"]`)
	if publishDate == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			publishDate = dt
		}
	}

	return meta, title, desc, keywords, author, publishDate
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return content
}

func propertyContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return content
}
