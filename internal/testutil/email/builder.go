package email

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Attachment represents a MIME part added by the builder.
type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string // set for inline parts
	Data        []byte
	Message     bool // carried verbatim as message/rfc822
}

type header struct{ key, value string }

// MessageBuilder constructs MIME messages with a fluent API.
// By default, messages use \n line endings matching Go raw string literals.
type MessageBuilder struct {
	from        string
	to          string
	cc          string
	bcc         string
	subject     string
	date        string
	contentType string
	body        string
	html        string
	headers     []header
	inline      []Attachment
	attachments []Attachment
	boundary    string
	crlf        bool // if true, use \r\n line endings
	noSubject   bool
}

// NewMessage creates a MessageBuilder with sensible defaults.
func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		from:     "sender@example.com",
		to:       "recipient@example.com",
		date:     "Mon, 01 Jan 2024 12:00:00 +0000",
		subject:  "Test Message",
		body:     "This is a test message body.",
		boundary: "boundary123",
	}
}

// From sets the From header.
func (b *MessageBuilder) From(v string) *MessageBuilder { b.from = v; return b }

// To sets the To header.
func (b *MessageBuilder) To(v string) *MessageBuilder { b.to = v; return b }

// Cc sets the Cc header.
func (b *MessageBuilder) Cc(v string) *MessageBuilder { b.cc = v; return b }

// Bcc sets the Bcc header.
func (b *MessageBuilder) Bcc(v string) *MessageBuilder { b.bcc = v; return b }

// Subject sets the Subject header. Use NoSubject() to omit it entirely.
func (b *MessageBuilder) Subject(v string) *MessageBuilder { b.subject = v; b.noSubject = false; return b }

// NoSubject omits the Subject header from the output.
func (b *MessageBuilder) NoSubject() *MessageBuilder { b.noSubject = true; return b }

// Date sets the Date header. An empty value omits it.
func (b *MessageBuilder) Date(v string) *MessageBuilder { b.date = v; return b }

// ContentType overrides the Content-Type header (for single-part messages).
func (b *MessageBuilder) ContentType(v string) *MessageBuilder { b.contentType = v; return b }

// Body sets the plain text body.
func (b *MessageBuilder) Body(v string) *MessageBuilder { b.body = v; return b }

// HTML adds an HTML alternative to the text body.
func (b *MessageBuilder) HTML(v string) *MessageBuilder { b.html = v; return b }

// Header sets a header, replacing any earlier value under the same
// case-insensitive key.
func (b *MessageBuilder) Header(key, value string) *MessageBuilder {
	for i, h := range b.headers {
		if strings.EqualFold(h.key, key) {
			b.headers = append(b.headers[:i], b.headers[i+1:]...)
			break
		}
	}
	return b.HeaderAppend(key, value)
}

// HeaderAppend adds a header line, keeping earlier ones (Received, etc.).
func (b *MessageBuilder) HeaderAppend(key, value string) *MessageBuilder {
	b.headers = append(b.headers, header{key, value})
	return b
}

// Boundary sets the multipart boundary prefix.
func (b *MessageBuilder) Boundary(v string) *MessageBuilder { b.boundary = v; return b }

// WithAttachment adds a file attachment.
func (b *MessageBuilder) WithAttachment(filename, contentType string, data []byte) *MessageBuilder {
	b.attachments = append(b.attachments, Attachment{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
	return b
}

// WithInline adds a part referenced from the HTML body as cid:contentID.
func (b *MessageBuilder) WithInline(contentID, filename, contentType string, data []byte) *MessageBuilder {
	b.inline = append(b.inline, Attachment{
		Filename:    filename,
		ContentType: contentType,
		ContentID:   contentID,
		Data:        data,
	})
	return b
}

// WithMessage attaches raw as a forwarded message/rfc822 part.
func (b *MessageBuilder) WithMessage(filename string, raw []byte) *MessageBuilder {
	b.attachments = append(b.attachments, Attachment{
		Filename:    filename,
		ContentType: "message/rfc822",
		Data:        raw,
		Message:     true,
	})
	return b
}

// CRLF switches to \r\n line endings (RFC 5322 compliant).
func (b *MessageBuilder) CRLF() *MessageBuilder { b.crlf = true; return b }

// Bytes builds the complete MIME message.
func (b *MessageBuilder) Bytes() []byte {
	w := &partWriter{nl: "\n"}
	if b.crlf {
		w.nl = "\r\n"
	}

	w.line("From: " + b.from)
	w.line("To: " + b.to)
	if b.cc != "" {
		w.line("Cc: " + b.cc)
	}
	if b.bcc != "" {
		w.line("Bcc: " + b.bcc)
	}
	if !b.noSubject {
		w.line("Subject: " + b.subject)
	}
	if b.date != "" {
		w.line("Date: " + b.date)
	}
	for _, h := range b.headers {
		w.line(h.key + ": " + h.value)
	}

	if b.html == "" && len(b.inline) == 0 && len(b.attachments) == 0 {
		ct := b.contentType
		if ct == "" {
			ct = `text/plain; charset="utf-8"`
		}
		w.line("Content-Type: " + ct)
		w.line("")
		w.line(b.body)
		return []byte(w.String())
	}

	w.line("MIME-Version: 1.0")
	if len(b.attachments) == 0 {
		b.writeBody(w, 0)
		return []byte(w.String())
	}

	mixed := b.boundary
	w.line(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q", mixed))
	w.line("")
	w.line("--" + mixed)
	b.writeBody(w, 1)
	for _, att := range b.attachments {
		w.line("--" + mixed)
		writeAttachment(w, att)
	}
	w.line("--" + mixed + "--")
	return []byte(w.String())
}

// writeBody writes the text, HTML and inline parts, nested as
// multipart/related > multipart/alternative as needed.
func (b *MessageBuilder) writeBody(w *partWriter, depth int) {
	text := func() {
		w.line(`Content-Type: text/plain; charset="utf-8"`)
		w.line("")
		w.line(b.body)
	}
	if b.html == "" {
		text()
		return
	}

	alternative := func(boundary string) {
		w.line(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", boundary))
		w.line("")
		w.line("--" + boundary)
		text()
		w.line("--" + boundary)
		w.line(`Content-Type: text/html; charset="utf-8"`)
		w.line("")
		w.line(b.html)
		w.line("--" + boundary + "--")
	}

	alt := fmt.Sprintf("%s-alt%d", b.boundary, depth)
	if len(b.inline) == 0 {
		alternative(alt)
		return
	}
	related := fmt.Sprintf("%s-rel%d", b.boundary, depth)
	w.line(fmt.Sprintf("Content-Type: multipart/related; boundary=%q", related))
	w.line("")
	w.line("--" + related)
	alternative(alt)
	for _, in := range b.inline {
		w.line("--" + related)
		writeAttachment(w, in)
	}
	w.line("--" + related + "--")
}

func writeAttachment(w *partWriter, att Attachment) {
	if att.Message {
		w.line("Content-Type: message/rfc822")
		w.line(fmt.Sprintf("Content-Disposition: attachment; filename=%q", att.Filename))
		w.line("")
		w.line(strings.TrimRight(string(att.Data), "\r\n"))
		return
	}
	ct := att.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	disposition := "attachment"
	if att.ContentID != "" {
		disposition = "inline"
		w.line("Content-ID: <" + att.ContentID + ">")
	}
	w.line(fmt.Sprintf("Content-Type: %s; name=%q", ct, att.Filename))
	w.line(fmt.Sprintf("Content-Disposition: %s; filename=%q", disposition, att.Filename))
	w.line("Content-Transfer-Encoding: base64")
	w.line("")
	w.line(base64.StdEncoding.EncodeToString(att.Data))
}

type partWriter struct {
	strings.Builder
	nl string
}

func (w *partWriter) line(s string) {
	w.WriteString(s)
	w.WriteString(w.nl)
}
