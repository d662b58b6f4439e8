package emlx

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"howett.net/plist"
)

// appleEpoch is the zero of Apple Mail timestamps.
var appleEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// Message is one parsed .emlx file: a decimal byte count on the first line,
// that many bytes of RFC 5322 message, then an optional XML plist.
type Message struct {
	Raw []byte

	// Sent is the plist "date-sent" value, zero when absent.
	Sent time.Time
}

// Parse splits an .emlx file into message bytes and plist metadata. Plist
// problems are ignored; a bad byte count is an error.
func Parse(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("emlx: empty file")
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return nil, fmt.Errorf("emlx: no newline after byte count")
	}
	count, err := strconv.ParseInt(string(bytes.TrimSpace(data[:nl])), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("emlx: invalid byte count: %w", err)
	}
	body := data[nl+1:]
	if count < 0 || count > int64(len(body)) {
		return nil, fmt.Errorf("emlx: byte count %d out of range (have %d)", count, len(body))
	}

	msg := &Message{Raw: body[:count]}
	if trailer := body[count:]; len(bytes.TrimSpace(trailer)) > 0 {
		msg.Sent = dateSent(trailer)
	}
	return msg, nil
}

// ParseFile reads and parses the .emlx file at path.
func ParseFile(path string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("emlx: %w", err)
	}
	return Parse(data)
}

// dateSent decodes the plist trailer. Apple Mail writes date-sent as a real
// or an integer count of seconds since 2001.
func dateSent(trailer []byte) time.Time {
	var meta map[string]any
	if _, err := plist.Unmarshal(trailer, &meta); err != nil {
		return time.Time{}
	}
	var secs float64
	switch v := meta["date-sent"].(type) {
	case float64:
		secs = v
	case uint64:
		secs = float64(v)
	case int64:
		secs = float64(v)
	default:
		return time.Time{}
	}
	whole, frac := math.Modf(secs)
	return appleEpoch.Add(time.Duration(whole)*time.Second + time.Duration(frac*float64(time.Second)))
}
