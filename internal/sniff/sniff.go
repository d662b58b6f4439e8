// Package sniff guesses the content type of raw bytes. It recognizes the
// mailbox formats the extractor can recurse into before falling back to
// generic magic-number detection.
package sniff

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/emersion/go-message/textproto"
	"github.com/gabriel-vasile/mimetype"

	"github.com/wesm/mailextract/internal/mbox"
	"github.com/wesm/mailextract/internal/tnef"
)

// Content types reported for recognized mail formats.
const (
	TypePST      = "application/vnd.ms-outlook-pst"
	TypeTNEF     = "application/vnd.ms-tnef"
	TypeMbox     = "application/mbox"
	TypeRFC822   = "message/rfc822"
	TypeVCard    = "text/vcard"
	TypeCalendar = "text/calendar"
	TypeUnknown  = "application/octet-stream"
)

var pstMagic = []byte("!BDN")

// headerWindow bounds how much of the input is examined for header sniffing.
const headerWindow = 64 << 10

// mailHeaders are fields that mark a header block as a mail message.
var mailHeaders = []string{
	"From", "To", "Date", "Subject", "Message-Id", "Received",
	"Return-Path", "Mime-Version", "Delivered-To", "X-Mailer",
}

// Sniffer implements content-type detection.
type Sniffer struct{}

// New returns a Sniffer.
func New() *Sniffer { return &Sniffer{} }

// Sniff returns the detected MIME type without parameters. It never fails;
// unrecognized data yields application/octet-stream.
func (s *Sniffer) Sniff(data []byte) (string, error) {
	return Detect(data), nil
}

// Detect returns the content type of data.
func Detect(data []byte) string {
	if len(data) == 0 {
		return TypeUnknown
	}
	switch {
	case bytes.HasPrefix(data, pstMagic):
		return TypePST
	case tnef.LooksLikeTNEF(data):
		return TypeTNEF
	case mbox.LooksLikeMbox(data):
		return TypeMbox
	}

	head := bytes.TrimLeft(firstN(data, 512), "\ufeff \t\r\n")
	upper := strings.ToUpper(string(firstN(head, 32)))
	switch {
	case strings.HasPrefix(upper, "BEGIN:VCARD"):
		return TypeVCard
	case strings.HasPrefix(upper, "BEGIN:VCALENDAR"):
		return TypeCalendar
	}

	if looksLikeMessage(data) {
		return TypeRFC822
	}

	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

// looksLikeMessage reports whether data opens with a well-formed header
// block carrying at least two typical mail fields.
func looksLikeMessage(data []byte) bool {
	head := firstN(data, headerWindow)
	if len(head) == 0 || head[0] == ' ' || head[0] == '\t' {
		return false
	}
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(head)))
	if err != nil {
		return false
	}
	seen := 0
	for _, k := range mailHeaders {
		if h.Has(k) {
			seen++
		}
	}
	return seen >= 2
}

func firstN(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
