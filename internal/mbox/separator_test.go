package mbox

import (
	"testing"
	"time"
)

func TestParseSeparator(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		ok       bool
		wantDate string // RFC 3339 in UTC, "" when no date
	}{
		{"plain", "From a@b Mon Jan 1 10:30:00 2024", true, "2024-01-01T10:30:00Z"},
		{"no weekday", "From a@b Jan 1 10:30:00 2024", true, "2024-01-01T10:30:00Z"},
		{"no seconds", "From a@b Mon Jan 1 00:01 2024", true, "2024-01-01T00:01:00Z"},
		{"padded day", "From a@b Mon Jan  1 00:00:00 2024", true, "2024-01-01T00:00:00Z"},
		{"wrong weekday", "From a@b Sat Jan 1 00:00:00 2024", true, "2024-01-01T00:00:00Z"},
		{"zone before year", "From a@b Mon Jan 1 00:00:00 PST 2024", true, "2024-01-01T08:00:00Z"},
		{"zone after year", "From a@b Mon Jan 1 00:00:00 2024 PST", true, "2024-01-01T08:00:00Z"},
		{"numeric offset", "From a@b Mon Jan 1 00:00:00 -0700 2024", true, "2024-01-01T07:00:00Z"},
		{"colon offset", "From a@b Mon Jan 1 00:00:00 2024 +01:30", true, "2023-12-31T22:30:00Z"},
		{"remote from", "From a@b Mon Jan 1 00:00:00 2024 remote from mail.example.com", true, "2024-01-01T00:00:00Z"},
		{"unknown zone", "From a@b Mon Jan 1 00:00:00 FOO 2024", true, ""},
		{"unknown zone after year", "From a@b Mon Jan 1 00:00:00 2024 FOO", true, ""},

		{"header", "From: a@b", false, ""},
		{"prose", "From this is not a separator", false, ""},
		{"bad month", "From a@b Mon Foo 1 00:00:00 2024", false, ""},
		{"bad clock", "From a@b Mon Jan 1 25:00:00 2024", false, ""},
		{"no year", "From a@b Mon Jan 1 00:00:00 PST", false, ""},
		{"too short", "From a@b whenever", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sep, ok := ParseSeparator(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if sep.Sender != "a@b" {
				t.Errorf("Sender = %q", sep.Sender)
			}
			got := ""
			if !sep.Date.IsZero() {
				got = sep.Date.UTC().Format(time.RFC3339)
			}
			if got != tt.wantDate {
				t.Errorf("Date = %q, want %q", got, tt.wantDate)
			}
		})
	}
}

func TestNumericOffset(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"+0000", 0, true},
		{"-0700", -7 * 3600, true},
		{"+05:30", 5*3600 + 30*60, true},
		{"+0575", 0, false},
		{"0700", 0, false},
		{"+07", 0, false},
	}
	for _, tt := range tests {
		got, ok := numericOffset(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("numericOffset(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
