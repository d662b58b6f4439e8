package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/textproto"
	"strings"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// Headers owned by the MIME structure; never copied from raw headers.
var structuralHeaders = map[string]bool{
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
	"Content-Disposition":       true,
	"Mime-Version":              true,
}

// synthesize builds an RFC 5322 message from the analyzed fields. The
// output is deterministic: boundaries derive from the message's identity.
func (m *message) synthesize() ([]byte, error) {
	var h mail.Header
	for _, f := range m.rawHeaders {
		k := strings.TrimSpace(f.Key)
		if k == "" || structuralHeaders[textproto.CanonicalMIMEHeaderKey(k)] {
			continue
		}
		h.Add(k, f.Value)
	}

	if !m.returnPath.IsZero() && m.returnPath.Email != "" {
		h.Set("Return-Path", "<"+m.returnPath.Email+">")
	}
	setAddresses(&h, "From", []Address{m.from})
	setAddresses(&h, "To", m.to)
	setAddresses(&h, "Cc", m.cc)
	setAddresses(&h, "Bcc", m.bcc)
	setAddresses(&h, "Reply-To", m.replyTo)
	if m.sent.IsZero() {
		h.Del("Date")
	} else {
		h.SetDate(m.sent)
	}
	if m.subject != NoSubject {
		h.SetSubject(m.subject)
	}
	if m.messageID != NoMessageID {
		h.SetMessageID(m.messageID)
	}
	if m.inReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{m.inReplyTo})
	}
	if len(m.references) > 0 {
		h.SetMsgIDList("References", m.references)
	}
	h.Set("MIME-Version", "1.0")

	b := newBoundaries(m.messageID, m.subject, m.sent.String())
	h.SetContentType("multipart/mixed", map[string]string{"boundary": b.next()})

	var buf bytes.Buffer
	mw, err := gomessage.CreateWriter(&buf, h.Header)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}

	var inline, files []*attachment
	for _, a := range m.attachments {
		if a.kind == AttachmentInline {
			inline = append(inline, a)
		} else {
			files = append(files, a)
		}
	}

	hostHTML := m.bodies.HTML != ""
	hostRTF := !hostHTML && m.bodies.RTF != ""

	var alt gomessage.Header
	alt.SetContentType("multipart/alternative", map[string]string{"boundary": b.next()})
	aw, err := mw.CreatePart(alt)
	if err != nil {
		return nil, err
	}
	switch {
	case m.bodies.Text != "":
		err = writeText(aw, "text/plain", m.bodies.Text)
	case m.bodies.IsEmpty():
		err = writeText(aw, "text/plain", " ")
	}
	if err != nil {
		return nil, err
	}
	if m.bodies.HTML != "" {
		if err := writeBody(aw, "text/html", m.bodies.HTML, inlineIf(hostHTML, inline), b); err != nil {
			return nil, err
		}
	}
	if m.bodies.RTF != "" {
		if err := writeBody(aw, "text/rtf", m.bodies.RTF, inlineIf(hostRTF, inline), b); err != nil {
			return nil, err
		}
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}

	if !hostHTML && !hostRTF {
		files = append(inline, files...)
	}
	for _, a := range files {
		if err := writeAttachment(mw, a); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inlineIf(host bool, inline []*attachment) []*attachment {
	if host {
		return inline
	}
	return nil
}

func setAddresses(h *mail.Header, key string, list []Address) {
	var addrs []*mail.Address
	for _, a := range list {
		if a.Email == "" {
			continue
		}
		addrs = append(addrs, &mail.Address{Name: a.Name, Address: a.Email})
	}
	if len(addrs) == 0 {
		h.Del(key)
		return
	}
	h.SetAddressList(key, addrs)
}

// writeBody writes one body variant, wrapped with the inline attachments
// in a multipart/related part when it hosts them.
func writeBody(parent *gomessage.Writer, contentType, body string, inline []*attachment, b *boundaries) error {
	if len(inline) == 0 {
		return writeText(parent, contentType, body)
	}
	var rel gomessage.Header
	rel.SetContentType("multipart/related", map[string]string{"boundary": b.next(), "type": contentType})
	rw, err := parent.CreatePart(rel)
	if err != nil {
		return err
	}
	if err := writeText(rw, contentType, body); err != nil {
		return err
	}
	for _, a := range inline {
		if err := writeAttachment(rw, a); err != nil {
			return err
		}
	}
	return rw.Close()
}

func writeText(parent *gomessage.Writer, contentType, body string) error {
	var ph gomessage.Header
	params := map[string]string{"charset": "utf-8"}
	if contentType == "text/rtf" {
		params = nil
	}
	ph.SetContentType(contentType, params)
	ph.Set("Content-Transfer-Encoding", "quoted-printable")
	w, err := parent.CreatePart(ph)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}

func writeAttachment(parent *gomessage.Writer, a *attachment) error {
	name := attachmentParamName(a.fileName())
	disposition := "attachment"
	if a.kind == AttachmentInline {
		disposition = "inline"
	}

	var ph gomessage.Header
	ph.SetContentType(a.mimeType, map[string]string{"name": name})
	ph.SetContentDisposition(disposition, map[string]string{"filename": name})
	if a.ContentID != "" {
		ph.Set("Content-Id", "<"+trimID(a.ContentID)+">")
	}
	// Embedded messages keep their exact bytes.
	if a.mimeType != "message/rfc822" {
		ph.Set("Content-Transfer-Encoding", "base64")
	}
	w, err := parent.CreatePart(ph)
	if err != nil {
		return err
	}
	if _, err := w.Write(a.Data); err != nil {
		return err
	}
	return w.Close()
}

// attachmentParamName replaces double quotes in ASCII names, which the
// parameter encoder would otherwise escape into a form many readers get
// wrong. Non-ASCII names are RFC 2231 encoded as a whole.
func attachmentParamName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			return name
		}
	}
	return strings.ReplaceAll(name, `"`, "_")
}

// boundaries hands out multipart boundaries derived from a seed. "=_" never
// occurs in base64 or quoted-printable output.
type boundaries struct {
	seed string
	n    int
}

func newBoundaries(parts ...string) *boundaries {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return &boundaries{seed: hex.EncodeToString(sum[:12])}
}

func (b *boundaries) next() string {
	b.n++
	return fmt.Sprintf("=_%s_%d", b.seed, b.n)
}
