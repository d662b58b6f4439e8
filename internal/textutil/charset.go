// Package textutil decodes legacy charsets and shapes text for node names.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Lookup returns the encoding registered under a charset name or alias, or
// nil. IANA names win over the WHATWG labels, so iso-8859-1 stays Latin-1
// instead of becoming windows-1252.
func Lookup(name string) encoding.Encoding {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc
	}
	return nil
}

// Decode converts data to UTF-8. Valid UTF-8 is returned as is. Otherwise
// the declared charset is tried, then fallback, then detection. Bytes that
// nothing could decode become U+FFFD.
func Decode(data []byte, declared, fallback string) string {
	if utf8.Valid(data) {
		return string(data)
	}
	for _, name := range []string{declared, fallback} {
		if s, ok := decodeWith(Lookup(name), data); ok {
			return s
		}
	}
	if s, ok := decodeWith(detect(data), data); ok {
		return s
	}
	for _, enc := range guesses {
		if s, ok := decodeWith(enc, data); ok {
			return s
		}
	}
	return strings.ToValidUTF8(string(data), "\ufffd")
}

// guesses are tried in order when detection is inconclusive. The single
// byte Western charsets come first as they account for most legacy mail.
var guesses = []encoding.Encoding{
	charmap.Windows1252,
	charmap.ISO8859_1,
	charmap.ISO8859_15,
	japanese.ShiftJIS,
	japanese.EUCJP,
	korean.EUCKR,
	simplifiedchinese.GBK,
	traditionalchinese.Big5,
}

// detect runs chardet over data. Short inputs get a lower bar since the
// detector has less to go on.
func detect(data []byte) encoding.Encoding {
	minConfidence := 50
	if len(data) <= 50 {
		minConfidence = 30
	}
	res, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || res.Confidence < minConfidence {
		return nil
	}
	return Lookup(res.Charset)
}

func decodeWith(enc encoding.Encoding, data []byte) (string, bool) {
	if enc == nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}
