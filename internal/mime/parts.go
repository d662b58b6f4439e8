package mime

import (
	"bytes"
	stdmime "mime"
	"strings"

	"github.com/jhillyerd/enmime"
)

// attachments converts enmime parts, skipping text parts that are really
// alternative bodies: text/plain or text/html with no file name and no
// attachment disposition.
func attachments(parts []*enmime.Part, inline bool) []Attachment {
	var out []Attachment
	for _, p := range parts {
		if isBodyPart(p) {
			continue
		}
		out = append(out, Attachment{
			Filename:    p.FileName,
			ContentType: p.ContentType,
			ContentID:   p.ContentID,
			Content:     p.Content,
			IsInline:    inline,
		})
	}
	return out
}

func isBodyPart(p *enmime.Part) bool {
	switch mediaType(p.ContentType) {
	case "text/plain", "text/html":
	default:
		return false
	}
	return p.FileName == "" && mediaType(p.Disposition) != "attachment"
}

// isRTFBody matches an unnamed rich-text part that is not an attachment.
func isRTFBody(p *enmime.Part) bool {
	switch mediaType(p.ContentType) {
	case "text/rtf", "application/rtf":
	default:
		return false
	}
	return p.FileName == "" && mediaType(p.Disposition) != "attachment"
}

// withoutPart drops the unnamed attachment carrying p's content.
func withoutPart(atts []Attachment, p *enmime.Part) []Attachment {
	out := atts[:0]
	for _, a := range atts {
		if a.Filename == "" && bytes.Equal(a.Content, p.Content) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// mediaType lowercases a Content-Type or Content-Disposition value and
// strips its parameters.
func mediaType(v string) string {
	if mt, _, err := stdmime.ParseMediaType(v); err == nil {
		return mt
	}
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
