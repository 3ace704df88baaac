package extractor

import (
	"reflect"
	"testing"
)

func TestExtractContacts(t *testing.T) {
	text := `Contact us at a@b.com or (212) 555-1234.
	You can also reach A@B.COM or call 212.555.1234 anytime.
	Visit our office at 123 Main Street, Springfield, IL 62704.`

	got := ExtractContacts(text)

	wantEmails := []string{"a@b.com"}
	if !reflect.DeepEqual(got.Emails, wantEmails) {
		t.Errorf("Emails = %v, want %v", got.Emails, wantEmails)
	}

	// Both phone spellings canonicalize to the same digits.
	wantPhones := []string{"2125551234"}
	if !reflect.DeepEqual(got.Phones, wantPhones) {
		t.Errorf("Phones = %v, want %v", got.Phones, wantPhones)
	}

	if len(got.Addresses) != 1 {
		t.Fatalf("Addresses = %v, want exactly one", got.Addresses)
	}
}

func TestExtractContacts_Empty(t *testing.T) {
	got := ExtractContacts("nothing to see here")
	if len(got.Emails) != 0 || len(got.Phones) != 0 || len(got.Addresses) != 0 {
		t.Errorf("expected empty contact info, got %+v", got)
	}
	// Fields are empty sets, never nil, so they serialize as [].
	if got.Emails == nil || got.Phones == nil || got.Addresses == nil {
		t.Error("contact slices must be non-nil")
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"parenthesized", "(212) 555-1234", "2125551234"},
		{"dotted", "212.555.1234", "2125551234"},
		{"international", "+1 212 555 1234", "+12125551234"},
		{"plus not leading", "212+555-1234", "2125551234"},
		{"already canonical", "2125551234", "2125551234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.raw); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
