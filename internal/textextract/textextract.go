// Package textextract renders attachment bytes as plain text for the
// formats that carry readable text: plain text, HTML, RTF and mail
// messages.
package textextract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/wesm/mailextract/internal/mime"
	"github.com/wesm/mailextract/internal/rtf"
	"github.com/wesm/mailextract/internal/sniff"
	"github.com/wesm/mailextract/internal/textutil"
)

// ErrUnsupported is returned for content with no text rendition.
var ErrUnsupported = errors.New("textextract: unsupported content type")

// Extractor converts documents to text. The zero value is usable.
type Extractor struct {
	// DefaultCharset decodes text that is neither UTF-8 nor declared.
	DefaultCharset string
}

// New returns an Extractor using charset for undeclared 8-bit text.
func New(charset string) *Extractor {
	return &Extractor{DefaultCharset: charset}
}

// ExtractText returns the text rendition of data.
func (e *Extractor) ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	switch kind := detect(data); {
	case kind == "text/rtf" || kind == "application/rtf":
		return rtf.ToText(e.decode(data)), nil
	case kind == "text/html" || kind == "application/xhtml+xml":
		return mime.StripHTML(e.decode(data)), nil
	case kind == sniff.TypeRFC822:
		msg, err := mime.Parse(data)
		if err != nil {
			return "", fmt.Errorf("textextract: parse message: %w", err)
		}
		return strings.TrimSpace(msg.PlainText()), nil
	case strings.HasPrefix(kind, "text/"):
		return strings.TrimSpace(e.decode(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

func (e *Extractor) decode(data []byte) string {
	return textutil.Decode(data, "", e.DefaultCharset)
}

func detect(data []byte) string {
	if strings.HasPrefix(string(firstN(data, 8)), "{\\rtf") {
		return "text/rtf"
	}
	if kind := sniff.Detect(data); kind == sniff.TypeRFC822 {
		return kind
	}
	return strings.SplitN(mimetype.Detect(data).String(), ";", 2)[0]
}

func firstN(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
