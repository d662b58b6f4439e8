package textutil

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes cuts s to at most n runes and trims the spaces the cut
// leaves behind.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for range n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return strings.TrimRight(s[:i], " \t")
}

// FirstLine returns the first non-empty-prefixed line of s without its
// line ending.
func FirstLine(s string) string {
	s = strings.TrimLeft(s, "\r\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\r")
}
