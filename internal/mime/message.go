// Package mime parses RFC 5322 messages into the fields an extraction
// needs: addressing, trace headers, bodies and attachments.
package mime

import (
	"bytes"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
)

// Message is a parsed message.
type Message struct {
	Subject     string
	Date        time.Time
	From        []Address
	To          []Address
	Cc          []Address
	Bcc         []Address
	ReplyTo     []Address
	MessageID   string
	InReplyTo   string
	References  []string
	ReturnPath  Address
	Received    time.Time // date of the topmost Received line
	BodyText    string
	BodyHTML    string
	BodyRTF     string
	Attachments []Attachment
	Headers     []HeaderField // top-level header in wire order
	Errors      []string      // recoverable problems reported by the parser
}

// HeaderField is one decoded top-level header line.
type HeaderField struct {
	Key   string
	Value string
}

// Address is a mailbox with an optional display name. Email is lowercased.
type Address struct {
	Name  string
	Email string
}

// Attachment is a non-body MIME part.
type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Content     []byte
	IsInline    bool
}

// Parse parses raw into a Message. Malformed parts do not fail the parse;
// they are listed in Errors.
func Parse(raw []byte) (*Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Subject:   env.GetHeader("Subject"),
		MessageID: env.GetHeader("Message-ID"),
		InReplyTo: env.GetHeader("In-Reply-To"),
		BodyText:  env.Text,
		BodyHTML:  env.HTML,
		From:      addressList(env, "From"),
		To:        addressList(env, "To"),
		Cc:        addressList(env, "Cc"),
		Bcc:       addressList(env, "Bcc"),
		ReplyTo:   addressList(env, "Reply-To"),
	}
	msg.Date, _ = ParseDate(env.GetHeader("Date"))
	msg.References = messageIDs(env.GetHeader("References"))
	if rp := strings.Trim(strings.TrimSpace(env.GetHeader("Return-Path")), "<>"); rp != "" {
		msg.ReturnPath = Address{Email: strings.ToLower(rp)}
	}
	msg.Headers, msg.Received = readHeader(raw)

	msg.Attachments = attachments(env.Attachments, false)
	msg.Attachments = append(msg.Attachments, attachments(env.Inlines, true)...)
	if p := env.Root.BreadthMatchFirst(isRTFBody); p != nil {
		msg.BodyRTF = string(p.Content)
		msg.Attachments = withoutPart(msg.Attachments, p)
	}

	for _, e := range env.Errors {
		msg.Errors = append(msg.Errors, e.Error())
	}
	return msg, nil
}

// PlainText returns the text body, or the HTML body converted to text.
func (m *Message) PlainText() string {
	if m.BodyText != "" {
		return m.BodyText
	}
	if m.BodyHTML != "" {
		return StripHTML(m.BodyHTML)
	}
	return ""
}

// Sender returns the first From address, or the zero Address.
func (m *Message) Sender() Address {
	if len(m.From) > 0 {
		return m.From[0]
	}
	return Address{}
}
