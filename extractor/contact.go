package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/use-agent/harvest/models"
)

// Best-effort heuristic matchers over rendered page text. These are not
// RFC-exact validators; false positives are acceptable, duplicates are not.
var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	phoneRe = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]?\d{4}`)

	addressRe = regexp.MustCompile(`\d{1,5}\s+(?:[A-Z][a-zA-Z]*\.?\s+){1,3}` +
		`(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl|Way|Square|Sq|Terrace|Ter)\b\.?` +
		`(?:,\s*[A-Za-z .]+,\s*[A-Z]{2}\s*\d{5}(?:-\d{4})?)?`)
)

// ExtractContacts mines emails, phone numbers and postal addresses from
// rendered text. Each result carries set semantics: deduplicated, sorted.
func ExtractContacts(text string) models.ContactInfo {
	return models.ContactInfo{
		Emails:    dedupeSorted(emailRe.FindAllString(text, -1), strings.ToLower),
		Phones:    dedupeSorted(phoneRe.FindAllString(text, -1), NormalizePhone),
		Addresses: dedupeSorted(addressRe.FindAllString(text, -1), strings.TrimSpace),
	}
}

// NormalizePhone canonicalizes a phone match to digits, preserving a
// leading plus. "(212) 555-1234" becomes "2125551234".
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dedupeSorted canonicalizes each match, drops duplicates and returns the
// canonical forms sorted.
func dedupeSorted(matches []string, canon func(string) string) []string {
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		c := canon(m)
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
