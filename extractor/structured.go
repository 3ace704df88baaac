package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractJSONLD collects every linked-data script block that parses as
// JSON. A block may hold one object or an array of objects; unparsable
// blocks are skipped without failing the batch.
func extractJSONLD(doc *goquery.Document) []map[string]any {
	out := []map[string]any{}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			out = append(out, obj)
			return
		}

		var arr []map[string]any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			out = append(out, arr...)
		}
	})

	return out
}

// extractMicrodata collects one object per itemscope element, keyed by its
// declared item type, with properties taken from directly nested itemprop
// elements. The content attribute wins over visible text.
func extractMicrodata(doc *goquery.Document) []map[string]any {
	out := []map[string]any{}

	doc.Find("[itemscope]").Each(func(_ int, item *goquery.Selection) {
		itemType, _ := item.Attr("itemtype")
		if itemType == "" {
			itemType = "Thing"
		}

		props := map[string]any{}
		item.Find("[itemprop]").Each(func(_ int, prop *goquery.Selection) {
			// Only direct properties: the nearest itemscope ancestor of
			// the property must be this item, not a nested scope.
			owner := prop.ParentsFiltered("[itemscope]").First()
			if len(owner.Nodes) == 0 || len(item.Nodes) == 0 || owner.Nodes[0] != item.Nodes[0] {
				return
			}

			name, _ := prop.Attr("itemprop")
			if name == "" {
				return
			}
			if content, ok := prop.Attr("content"); ok && content != "" {
				props[name] = content
				return
			}
			props[name] = strings.TrimSpace(prop.Text())
		})

		if len(props) > 0 {
			out = append(out, map[string]any{itemType: props})
		}
	})

	return out
}
