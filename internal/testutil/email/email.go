// Package email builds raw RFC 5322 messages for extraction tests.
package email

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

// Options describes a single-part message for MakeRaw. Empty From, To and
// Subject get placeholder values; an empty Date or ContentType leaves the
// header out.
type Options struct {
	From        string
	To          string
	Subject     string
	Date        string
	ContentType string
	Body        string
	Headers     map[string]string // written after the standard ones, by key
}

// MakeRaw renders opts with \r\n line endings and no MIME structure, so
// tests can feed parsers headers the builder would normalize.
func MakeRaw(opts Options) []byte {
	lines := []string{
		"From: " + cmp.Or(opts.From, "sender@example.com"),
		"To: " + cmp.Or(opts.To, "recipient@example.com"),
		"Subject: " + cmp.Or(opts.Subject, "Test"),
	}
	if opts.Date != "" {
		lines = append(lines, "Date: "+opts.Date)
	}
	if opts.ContentType != "" {
		lines = append(lines, "Content-Type: "+opts.ContentType)
	}
	for _, k := range slices.Sorted(maps.Keys(opts.Headers)) {
		lines = append(lines, k+": "+opts.Headers[k])
	}
	lines = append(lines, "", opts.Body)
	return []byte(strings.Join(lines, "\r\n"))
}

