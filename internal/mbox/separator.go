package mbox

import (
	"strconv"
	"strings"
	"time"
)

// Separator is a parsed "From " line:
//
//	From <sender> [<weekday>] <month> <day> <hh:mm[:ss]> [<zone>] <year> [<zone>] [...]
//
// Trailing tokens such as "remote from <host>" are ignored.
type Separator struct {
	Sender string
	// Date is set when the line carries no zone, a numeric offset or a
	// well-known abbreviation. Other abbreviations leave it zero since
	// their offset is unknown.
	Date time.Time
}

// zoneOffsets lists the abbreviations whose offset is trusted, in seconds.
var zoneOffsets = map[string]int{
	"UT": 0, "UTC": 0, "GMT": 0, "Z": 0,
	"EST": -5 * 3600, "EDT": -4 * 3600,
	"CST": -6 * 3600, "CDT": -5 * 3600,
	"MST": -7 * 3600, "MDT": -6 * 3600,
	"PST": -8 * 3600, "PDT": -7 * 3600,
	"AKST": -9 * 3600, "AKDT": -8 * 3600,
	"HST": -10 * 3600,
}

var weekdays = map[string]bool{"Mon": true, "Tue": true, "Wed": true, "Thu": true, "Fri": true, "Sat": true, "Sun": true}

// ParseSeparator parses line (without its newline) as a "From " line. The
// weekday is not checked against the date.
func ParseSeparator(line string) (Separator, bool) {
	f := strings.Fields(line)
	if len(f) < 6 || f[0] != "From" {
		return Separator{}, false
	}
	sep := Separator{Sender: f[1]}
	rest := f[2:]
	if weekdays[rest[0]] {
		rest = rest[1:]
	}
	if len(rest) < 4 {
		return Separator{}, false
	}

	month, err := time.Parse("Jan", rest[0])
	if err != nil {
		return Separator{}, false
	}
	day, err := strconv.Atoi(rest[1])
	if err != nil || day < 1 || day > 31 {
		return Separator{}, false
	}
	h, m, s, ok := parseClock(rest[2])
	if !ok {
		return Separator{}, false
	}

	// Year with an optional zone on either side.
	rest = rest[3:]
	zone := ""
	if !isYear(rest[0]) {
		if !looksLikeZone(rest[0]) || len(rest) < 2 || !isYear(rest[1]) {
			return Separator{}, false
		}
		zone, rest = rest[0], rest[1:]
	}
	year, _ := strconv.Atoi(rest[0])
	if zone == "" && len(rest) > 1 && looksLikeZone(rest[1]) {
		zone = rest[1]
	}

	offset, known := zoneOffset(zone)
	if known {
		loc := time.UTC
		if offset != 0 {
			loc = time.FixedZone("", offset)
		}
		sep.Date = time.Date(year, month.Month(), day, h, m, s, 0, loc)
	}
	return sep, true
}

func parseClock(v string) (h, m, s int, ok bool) {
	parts := strings.Split(v, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, false
	}
	n := make([]int, 3)
	for i, p := range parts {
		x, err := strconv.Atoi(p)
		if err != nil || len(p) != 2 {
			return 0, 0, 0, false
		}
		n[i] = x
	}
	if n[0] > 23 || n[1] > 59 || n[2] > 60 {
		return 0, 0, 0, false
	}
	return n[0], n[1], n[2], true
}

func isYear(v string) bool {
	if len(v) != 4 {
		return false
	}
	_, err := strconv.Atoi(v)
	return err == nil
}

// looksLikeZone accepts numeric offsets and short upper-case abbreviations.
func looksLikeZone(v string) bool {
	v = strings.Trim(v, "()")
	if _, ok := numericOffset(v); ok {
		return true
	}
	if v == "" || len(v) > 5 {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 'A' || v[i] > 'Z' {
			return false
		}
	}
	return true
}

// zoneOffset resolves a zone token. An empty token means UTC.
func zoneOffset(v string) (int, bool) {
	v = strings.Trim(v, "()")
	if v == "" {
		return 0, true
	}
	if off, ok := numericOffset(v); ok {
		return off, true
	}
	off, ok := zoneOffsets[strings.ToUpper(v)]
	return off, ok
}

// numericOffset parses +hhmm or +hh:mm.
func numericOffset(v string) (int, bool) {
	if len(v) < 5 || (v[0] != '+' && v[0] != '-') {
		return 0, false
	}
	digits := v[1:]
	if len(digits) == 5 && digits[2] == ':' {
		digits = digits[:2] + digits[3:]
	}
	if len(digits) != 4 {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n%100 > 59 {
		return 0, false
	}
	off := (n/100)*3600 + (n%100)*60
	if v[0] == '-' {
		off = -off
	}
	return off, true
}
