// Package extractor turns the DOM of an active browser session into the
// typed ExtractedContent aggregate. Every field extractor is isolated: a
// failure in one degrades that field to its empty value and is recorded in
// the extraction report; ExtractAll itself never fails.
package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/models"
)

// Report aggregates per-field degradations from one extraction pass. The
// pipeline logs it once instead of scattering best-effort warnings.
type Report struct {
	Degraded []string
}

func (r *Report) degrade(field string, err error) {
	r.Degraded = append(r.Degraded, fmt.Sprintf("%s: %v", field, err))
}

// Log emits one summary line when anything degraded.
func (r *Report) Log(url string) {
	if len(r.Degraded) == 0 {
		return
	}
	slog.Warn("extraction degraded", "url", url, "fields", r.Degraded)
}

// Engine is the content extraction engine. Stateless and safe for
// concurrent use; all per-scrape state lives in the snapshot.
type Engine struct{}

// NewEngine creates the engine.
func NewEngine() *Engine {
	return &Engine{}
}

// snapshot is the batched read of the live DOM: three session round trips
// (serialized document, rendered body text, document language) feed every
// extractor, instead of chatty per-attribute remote calls.
type snapshot struct {
	doc      *goquery.Document
	rawHTML  string
	rendered string
	language string
}

// ExtractAll reads the session's DOM into an ExtractedContent aggregate.
// The config toggles gate the text, image and link extractors; metadata,
// structured data, social links and the identity fields are always read.
func (e *Engine) ExtractAll(sess browser.Session, baseURL string, cfg models.ScrapeConfig) (*models.ExtractedContent, *Report) {
	report := &Report{}
	content := &models.ExtractedContent{
		URL:            baseURL,
		Keywords:       []string{},
		Headings:       []models.Heading{},
		Paragraphs:     []string{},
		Lists:          []models.List{},
		Tables:         []models.Table{},
		Forms:          []models.Form{},
		Images:         []models.ImageRecord{},
		Links:          []models.LinkRecord{},
		SocialMedia:    map[string]string{},
		StructuredData: []map[string]any{},
		Metadata: models.Metadata{
			OpenGraph:   map[string]string{},
			TwitterCard: map[string]string{},
			JSONLD:      []map[string]any{},
		},
		ContactInfo: models.ContactInfo{
			Emails:    []string{},
			Phones:    []string{},
			Addresses: []string{},
		},
	}

	snap, err := e.takeSnapshot(sess)
	if err != nil {
		// Without a document nothing else can run; the aggregate is
		// returned fully degraded rather than failing the scrape.
		report.degrade("document", err)
		return content, report
	}

	isolate(report, "metadata", func() error {
		meta, title, desc, keywords, author, publishDate := extractMetadata(snap.doc)
		content.Metadata = meta
		content.Title = title
		content.Description = desc
		content.Keywords = keywords
		content.Author = author
		content.PublishDate = publishDate
		return nil
	})

	isolate(report, "language", func() error {
		content.Language = extractLanguage(snap)
		return nil
	})

	isolate(report, "structured_data", func() error {
		jsonLD := extractJSONLD(snap.doc)
		micro := extractMicrodata(snap.doc)
		content.Metadata.JSONLD = jsonLD
		combined := make([]map[string]any, 0, len(jsonLD)+len(micro))
		combined = append(combined, jsonLD...)
		combined = append(combined, micro...)
		content.StructuredData = combined
		return nil
	})

	isolate(report, "social_media", func() error {
		content.SocialMedia = extractSocialLinks(snap.doc)
		return nil
	})

	if cfg.ExtractText {
		isolate(report, "text_content", func() error {
			content.TextContent = visibleText(snap.rawHTML)
			return nil
		})
		isolate(report, "cleaned_text", func() error {
			content.CleanedText = cleanedText(snap.rawHTML, baseURL, snap.rendered)
			return nil
		})
		isolate(report, "headings", func() error {
			content.Headings = extractHeadings(snap.doc)
			return nil
		})
		isolate(report, "paragraphs", func() error {
			content.Paragraphs = extractParagraphs(snap.doc)
			return nil
		})
		isolate(report, "lists", func() error {
			content.Lists = extractLists(snap.doc)
			return nil
		})
		isolate(report, "tables", func() error {
			content.Tables = extractTables(snap.doc)
			return nil
		})
		isolate(report, "forms", func() error {
			content.Forms = extractForms(snap.doc)
			return nil
		})
		isolate(report, "contact_info", func() error {
			// Contact heuristics run over rendered text, not raw markup;
			// fall back to tokenized visible text when the session could
			// not report innerText.
			text := snap.rendered
			if text == "" {
				text = content.TextContent
			}
			content.ContactInfo = ExtractContacts(text)
			return nil
		})
	}

	if cfg.ExtractImages {
		isolate(report, "images", func() error {
			content.Images = extractImages(snap.doc, baseURL)
			return nil
		})
	}

	if cfg.ExtractLinks {
		isolate(report, "links", func() error {
			content.Links = extractLinks(snap.doc, baseURL)
			return nil
		})
	}

	return content, report
}

// takeSnapshot performs the batched DOM reads. The serialized document is
// required; rendered text and language are best-effort.
func (e *Engine) takeSnapshot(sess browser.Session) (*snapshot, error) {
	rawHTML, err := sess.HTML()
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	snap := &snapshot{doc: doc, rawHTML: rawHTML}

	if res, evalErr := sess.Eval(`() => document.body ? document.body.innerText : ''`); evalErr == nil {
		snap.rendered = res.Str()
	}
	if res, evalErr := sess.Eval(`() => document.documentElement.lang || navigator.language || ''`); evalErr == nil {
		snap.language = res.Str()
	}
	return snap, nil
}

// isolate runs one field extractor, converting both returned errors and
// panics (malformed markup can panic deep inside parsers) into a degraded
// marker for that field only.
func isolate(report *Report, field string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			report.degrade(field, fmt.Errorf("panic: %v", rec))
		}
	}()
	if err := fn(); err != nil {
		report.degrade(field, err)
	}
}

func extractLanguage(snap *snapshot) string {
	if lang, ok := snap.doc.Find("html").Attr("lang"); ok && lang != "" {
		return lang
	}
	return snap.language
}
