package models

import "time"

// ExtractedContent is the typed aggregate produced by one scrape. It is
// built incrementally by the extraction engine across one session and
// returned as a single immutable value.
type ExtractedContent struct {
	URL              string            `json:"url"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Keywords         []string          `json:"keywords"`
	Author           string            `json:"author,omitempty"`
	PublishDate      string            `json:"publish_date,omitempty"`
	Language         string            `json:"language"`
	TextContent      string            `json:"text_content"`
	CleanedText      string            `json:"cleaned_text"`
	Headings         []Heading         `json:"headings"`
	Paragraphs       []string          `json:"paragraphs"`
	Lists            []List            `json:"lists"`
	Tables           []Table           `json:"tables"`
	Forms            []Form            `json:"forms"`
	Images           []ImageRecord     `json:"images"`
	Links            []LinkRecord      `json:"links"`
	Metadata         Metadata          `json:"metadata"`
	StructuredData   []map[string]any  `json:"structured_data"`
	SocialMedia      map[string]string `json:"social_media"`
	ContactInfo      ContactInfo       `json:"contact_info"`
	DownloadedImages []string          `json:"downloaded_images,omitempty"`
	CaptchaDetected  bool              `json:"captcha_detected"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Heading is a document heading, level 1-6.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id,omitempty"`
}

// List is an ordered or unordered list with its item texts.
type List struct {
	Type  string   `json:"type"` // "ordered" or "unordered"
	Items []string `json:"items"`
}

// Table holds header cells, body rows and an optional caption.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Caption string     `json:"caption,omitempty"`
}

// Form describes a form element and its fields.
type Form struct {
	Action string      `json:"action,omitempty"`
	Method string      `json:"method,omitempty"`
	Fields []FormField `json:"fields"`
}

// FormField describes one input, select or textarea within a form.
type FormField struct {
	Name        string   `json:"name,omitempty"`
	Type        string   `json:"type"`
	Label       string   `json:"label,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
}

// ImageRecord is one image reference, resolved to an absolute URL.
// Downloaded, Size and LocalPath are filled by image acquisition.
type ImageRecord struct {
	Src        string `json:"src"`
	Alt        string `json:"alt"`
	Title      string `json:"title,omitempty"`
	Width      string `json:"width,omitempty"`
	Height     string `json:"height,omitempty"`
	Format     string `json:"format,omitempty"`
	Size       int    `json:"size,omitempty"`
	Downloaded bool   `json:"downloaded"`
	LocalPath  string `json:"local_path,omitempty"`
}

// Link types produced by classification.
const (
	LinkInternal = "internal"
	LinkExternal = "external"
	LinkEmail    = "email"
	LinkPhone    = "phone"
	LinkFile     = "file"
)

// LinkRecord is one classified hyperlink. Domain is set only for external
// links.
type LinkRecord struct {
	Href   string `json:"href"`
	Text   string `json:"text"`
	Title  string `json:"title,omitempty"`
	Type   string `json:"type"`
	Domain string `json:"domain,omitempty"`
}

// Metadata holds page-level meta information.
type Metadata struct {
	Charset     string            `json:"charset,omitempty"`
	Viewport    string            `json:"viewport,omitempty"`
	Robots      string            `json:"robots,omitempty"`
	Canonical   string            `json:"canonical,omitempty"`
	OpenGraph   map[string]string `json:"open_graph"`
	TwitterCard map[string]string `json:"twitter_card"`
	JSONLD      []map[string]any  `json:"json_ld"`
}

// ContactInfo holds deduplicated contact details mined from the page's
// rendered text. The slices carry set semantics: no duplicates, sorted.
type ContactInfo struct {
	Emails    []string `json:"emails"`
	Phones    []string `json:"phones"`
	Addresses []string `json:"addresses"`
}
