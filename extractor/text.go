package extractor

import (
	"bytes"
	nurl "net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/harvest/models"
	"golang.org/x/net/html"
)

func extractHeadings(doc *goquery.Document) []models.Heading {
	headings := []models.Heading{}
	for level := 1; level <= 6; level++ {
		tag := "h" + strconv.Itoa(level)
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" {
				return
			}
			id, _ := s.Attr("id")
			headings = append(headings, models.Heading{Level: level, Text: text, ID: id})
		})
	}
	return headings
}

func extractParagraphs(doc *goquery.Document) []string {
	paragraphs := []string{}
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

func extractLists(doc *goquery.Document) []models.List {
	lists := []models.List{}
	doc.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		listType := "unordered"
		if goquery.NodeName(s) == "ol" {
			listType = "ordered"
		}

		items := []string{}
		s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			if text := strings.TrimSpace(li.Text()); text != "" {
				items = append(items, text)
			}
		})
		if len(items) > 0 {
			lists = append(lists, models.List{Type: listType, Items: items})
		}
	})
	return lists
}

func extractTables(doc *goquery.Document) []models.Table {
	tables := []models.Table{}
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		table := models.Table{
			Headers: []string{},
			Rows:    [][]string{},
			Caption: strings.TrimSpace(t.Find("caption").First().Text()),
		}

		t.Find("th").Each(func(_ int, th *goquery.Selection) {
			table.Headers = append(table.Headers, strings.TrimSpace(th.Text()))
		})

		t.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			row := []string{}
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				row = append(row, strings.TrimSpace(td.Text()))
			})
			if len(row) > 0 {
				table.Rows = append(table.Rows, row)
			}
		})

		if len(table.Headers) > 0 || len(table.Rows) > 0 {
			tables = append(tables, table)
		}
	})
	return tables
}

func extractForms(doc *goquery.Document) []models.Form {
	forms := []models.Form{}
	doc.Find("form").Each(func(_ int, f *goquery.Selection) {
		action, _ := f.Attr("action")
		method, _ := f.Attr("method")

		form := models.Form{
			Action: action,
			Method: strings.ToUpper(method),
			Fields: []models.FormField{},
		}

		f.Find("input, select, textarea").Each(func(_ int, el *goquery.Selection) {
			field := models.FormField{}
			field.Name, _ = el.Attr("name")
			field.Placeholder, _ = el.Attr("placeholder")
			_, field.Required = el.Attr("required")

			switch goquery.NodeName(el) {
			case "select":
				field.Type = "select"
				el.Find("option").Each(func(_ int, opt *goquery.Selection) {
					if text := strings.TrimSpace(opt.Text()); text != "" {
						field.Options = append(field.Options, text)
					}
				})
			case "textarea":
				field.Type = "textarea"
			default:
				field.Type = "text"
				if t, ok := el.Attr("type"); ok && t != "" {
					field.Type = t
				}
			}

			field.Label = fieldLabel(doc, el)
			form.Fields = append(form.Fields, field)
		})

		forms = append(forms, form)
	})
	return forms
}

// fieldLabel resolves a field's label: an explicit label[for=id], else the
// text of an enclosing label element.
func fieldLabel(doc *goquery.Document, el *goquery.Selection) string {
	if id, ok := el.Attr("id"); ok && id != "" {
		if label := doc.Find(`label[for="` + id + `"]`).First(); len(label.Nodes) > 0 {
			return strings.TrimSpace(label.Text())
		}
	}
	if wrapped := el.ParentsFiltered("label").First(); len(wrapped.Nodes) > 0 {
		return strings.TrimSpace(wrapped.Text())
	}
	return ""
}

// cleanedText runs the Readability algorithm over the document and returns
// its plain-text article body. When extraction fails or yields next to
// nothing, it degrades to the collapsed rendered text so the field is never
// empty on a page that has content.
func cleanedText(rawHTML, sourceURL, rendered string) string {
	fallback := collapseWhitespace(rendered)
	if fallback == "" {
		fallback = collapseWhitespace(visibleText(rawHTML))
	}

	parsed, err := nurl.Parse(sourceURL)
	if err != nil {
		return fallback
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		return fallback
	}

	text := collapseWhitespace(article.TextContent)
	if len(text) < 50 {
		return fallback
	}
	return text
}

// visibleText extracts text within <body>, stripping tags and the content
// of script/style/noscript elements.
func visibleText(rawHTML string) string {
	tokenizer := html.NewTokenizer(bytes.NewReader([]byte(rawHTML)))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(buf.String())
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
