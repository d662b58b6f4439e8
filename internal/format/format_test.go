package format

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/imap"
	"github.com/wesm/mailextract/internal/testutil"
	testemail "github.com/wesm/mailextract/internal/testutil/email"
)

func TestRegistry_Schemes(t *testing.T) {
	reg := Registry(imap.DefaultSettings())

	got := make(map[string]bool)
	for _, s := range reg.Schemes() {
		got[s.Name] = s.Container
	}
	want := map[string]bool{
		"eml":   false,
		"mbox":  true,
		"emlx":  true,
		"pst":   true,
		"vcard": true,
		"ical":  true,
		"imap":  true,
		"imaps": true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schemes (-want +got):\n%s", diff)
	}

	for mimeType, scheme := range map[string]string{
		"message/rfc822":                 "eml",
		"application/mbox":               "mbox",
		"application/vnd.ms-outlook-pst": "pst",
		"text/vcard":                     "vcard",
		"text/calendar":                  "ical",
	} {
		if got, err := reg.SchemeForMIMEType(mimeType); err != nil || got != scheme {
			t.Errorf("SchemeForMIMEType(%s) = %q, %v; want %q", mimeType, got, err, scheme)
		}
	}
}

func TestDescriptor(t *testing.T) {
	reg := Registry(imap.DefaultSettings())
	dir := t.TempDir()
	msg := testemail.NewMessage().Subject("hi").Body("x").Bytes()

	testutil.WriteTree(t, dir, map[string][]byte{
		"a.eml":                               msg,
		"Archive.PST":                         []byte("!BDN"),
		"people.vcf":                          []byte("BEGIN:VCARD\r\nEND:VCARD\r\n"),
		"noext":                               append([]byte("From alice@example.com Mon Jan  2 15:04:05 2006\n"), msg...),
		"saved":                               msg,
		"tbird/Inbox":                         []byte("From a Mon Jan  2 15:04:05 2006\n\n"),
		"apple/V10/Work.mbox/Messages/1.emlx": []byte("0\n"),
		"with space.ics":                      []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
	})

	tests := []struct {
		in         string
		wantScheme string
	}{
		{filepath.Join(dir, "a.eml"), "eml"},
		{filepath.Join(dir, "Archive.PST"), "pst"},
		{filepath.Join(dir, "people.vcf"), "vcard"},
		{filepath.Join(dir, "noext"), "mbox"},
		{filepath.Join(dir, "saved"), "eml"},
		{filepath.Join(dir, "tbird"), "mbox"},
		{filepath.Join(dir, "apple"), "emlx"},
		{filepath.Join(dir, "with space.ics"), "ical"},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.in), func(t *testing.T) {
			got, err := Descriptor(reg, tt.in)
			if err != nil {
				t.Fatalf("Descriptor: %v", err)
			}
			d, err := extract.ParseDescriptor(got)
			if err != nil {
				t.Fatalf("ParseDescriptor(%q): %v", got, err)
			}
			if d.Scheme != tt.wantScheme {
				t.Errorf("scheme = %q, want %q", d.Scheme, tt.wantScheme)
			}
			if d.Path != filepath.ToSlash(tt.in) {
				t.Errorf("path = %q, want %q", d.Path, tt.in)
			}
		})
	}
}

func TestDescriptor_PassThrough(t *testing.T) {
	reg := Registry(imap.DefaultSettings())
	in := "imaps://jane@mail.example.com/INBOX"
	if got, err := Descriptor(reg, in); err != nil || got != in {
		t.Errorf("Descriptor(%q) = %q, %v", in, got, err)
	}
}

func TestDescriptor_Errors(t *testing.T) {
	reg := Registry(imap.DefaultSettings())
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "blob.bin", []byte{0x00, 0x01, 0x02, 0x03})

	if _, err := Descriptor(reg, ""); !errors.Is(err, extract.ErrMalformedDescriptor) {
		t.Errorf("empty: err = %v", err)
	}
	if _, err := Descriptor(reg, filepath.Join(dir, "missing.pst")); !errors.Is(err, extract.ErrMalformedDescriptor) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := Descriptor(reg, filepath.Join(dir, "blob.bin")); !errors.Is(err, extract.ErrUnknownScheme) {
		t.Errorf("unknown content: err = %v", err)
	}
}
