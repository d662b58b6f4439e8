// Package rfc822 exposes a raw RFC 5322 message as an extraction source.
// Stores that hold messages in wire form (eml, mbox, emlx, IMAP) share it.
package rfc822

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/mime"
)

// Message is a lazily parsed RFC 5322 message. Parsing happens on the first
// analysis hook, so listing never pays for it.
type Message struct {
	raw []byte

	// FallbackDate is used as the sent date when the Date header is
	// missing or unparsable (e.g. the mbox "From " line date).
	FallbackDate time.Time

	once   sync.Once
	parsed *mime.Message
	err    error
}

// New returns a source over raw.
func New(raw []byte) *Message {
	return &Message{raw: raw}
}

func (m *Message) parse() (*mime.Message, error) {
	m.once.Do(func() {
		m.parsed, m.err = mime.Parse(m.raw)
		if m.err != nil {
			m.err = fmt.Errorf("parse message: %w", m.err)
		}
	})
	return m.parsed, m.err
}

func (m *Message) RawSize() int64 { return int64(len(m.raw)) }

func (m *Message) Subject() (string, error) {
	p, err := m.parse()
	if err != nil {
		return "", err
	}
	return p.Subject, nil
}

func (m *Message) MessageID() (string, error) {
	p, err := m.parse()
	if err != nil {
		return "", err
	}
	return p.MessageID, nil
}

func (m *Message) From() (extract.Address, error) {
	p, err := m.parse()
	if err != nil {
		return extract.Address{}, err
	}
	return address(p.Sender()), nil
}

func (m *Message) Recipients(kind extract.RecipientKind) ([]extract.Address, error) {
	p, err := m.parse()
	if err != nil {
		return nil, err
	}
	switch kind {
	case extract.Cc:
		return addresses(p.Cc), nil
	case extract.Bcc:
		return addresses(p.Bcc), nil
	default:
		return addresses(p.To), nil
	}
}

func (m *Message) ReplyTo() ([]extract.Address, error) {
	p, err := m.parse()
	if err != nil {
		return nil, err
	}
	return addresses(p.ReplyTo), nil
}

func (m *Message) ReturnPath() (extract.Address, error) {
	p, err := m.parse()
	if err != nil {
		return extract.Address{}, err
	}
	return address(p.ReturnPath), nil
}

func (m *Message) SentDate() (time.Time, error) {
	p, err := m.parse()
	if err != nil {
		return m.FallbackDate, err
	}
	if p.Date.IsZero() {
		return m.FallbackDate, nil
	}
	return p.Date, nil
}

func (m *Message) ReceivedDate() (time.Time, error) {
	p, err := m.parse()
	if err != nil {
		return time.Time{}, err
	}
	return p.Received, nil
}

func (m *Message) InReplyTo() (string, error) {
	p, err := m.parse()
	if err != nil {
		return "", err
	}
	// In-Reply-To may carry several ids; the first is the parent.
	if f := strings.Fields(p.InReplyTo); len(f) > 0 {
		return f[0], nil
	}
	return "", nil
}

func (m *Message) References() ([]string, error) {
	p, err := m.parse()
	if err != nil {
		return nil, err
	}
	return p.References, nil
}

func (m *Message) Bodies() (extract.Bodies, error) {
	p, err := m.parse()
	if err != nil {
		return extract.Bodies{}, err
	}
	return extract.Bodies{Text: p.BodyText, HTML: p.BodyHTML, RTF: p.BodyRTF}, nil
}

func (m *Message) Attachments() ([]extract.Attachment, error) {
	p, err := m.parse()
	if err != nil {
		return nil, err
	}
	out := make([]extract.Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		out = append(out, extract.Attachment{
			Name:        a.Filename,
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
			Inline:      a.IsInline,
			Data:        a.Content,
		})
	}
	return out, nil
}

func (m *Message) RawHeaders() ([]extract.HeaderField, error) {
	p, err := m.parse()
	if err != nil {
		return nil, err
	}
	out := make([]extract.HeaderField, 0, len(p.Headers))
	for _, h := range p.Headers {
		out = append(out, extract.HeaderField{Key: h.Key, Value: h.Value})
	}
	return out, nil
}

// NativeBytes returns the message exactly as stored.
func (m *Message) NativeBytes() ([]byte, error) { return m.raw, nil }

func address(a mime.Address) extract.Address {
	return extract.Address{Name: a.Name, Email: a.Email}
}

func addresses(list []mime.Address) []extract.Address {
	out := make([]extract.Address, 0, len(list))
	for _, a := range list {
		out = append(out, address(a))
	}
	return out
}
