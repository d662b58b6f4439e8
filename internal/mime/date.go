package mime

import (
	"net/mail"
	"strings"
	"time"
)

// dateLayouts are tried after net/mail when a Date or Received value does
// not follow RFC 5322.
var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 MST",
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

// ParseDate parses a message date and returns it in UTC. Values that match
// no known layout give the zero time and a nil error; broken dates are
// common and never fail a message.
func ParseDate(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t.UTC(), nil
	}
	// Trailing comments such as "(PST)".
	base := s
	if i := strings.LastIndexByte(s, '('); i > 0 {
		base = strings.TrimSpace(s[:i])
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, base); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, nil
}
