package pst

import (
	"bytes"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	pst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/rotisserie/eris"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/mime"
	"github.com/wesm/mailextract/internal/rtf"
)

// attachMethodEmbedded marks an attachment that is itself a message object.
const attachMethodEmbedded = 5

type item struct {
	diag diag
	m    *pst.Message
	p    props
}

func (i *item) RawSize() int64 {
	n, _ := i.p.int("message_size")
	return n
}

func (i *item) attachments() ([]extract.Attachment, error) {
	if i.m == nil {
		return nil, nil
	}
	it, err := i.m.GetAttachmentIterator()
	if eris.Is(err, pst.ErrAttachmentsNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "attachments")
	}
	var out []extract.Attachment
	for it.Next() {
		a := it.Value()
		ap := propsOf(a)
		att := extract.Attachment{
			Name:        ap.str("attach_long_filename", "attach_filename", "display_name"),
			ContentType: ap.str("attach_mime_tag"),
			ContentID:   ap.str("attach_content_id"),
			Created:     ap.time("creation_time"),
			Modified:    ap.time("last_modification_time"),
		}
		if named, ok := any(a).(interface{ GetAttachLongFilename() string }); ok && att.Name == "" {
			att.Name = named.GetAttachLongFilename()
		}
		att.Inline = att.ContentID != ""
		if method, _ := ap.int("attach_method"); method == attachMethodEmbedded {
			i.diag.skipped("embedded message attachment not extracted", "attachment", att.Name, "subject", i.p.str("subject"))
			continue
		}
		var buf bytes.Buffer
		if _, err := a.WriteTo(&buf); err != nil {
			i.diag.skipped("attachment data unreadable", "attachment", att.Name, "error", err)
			continue
		}
		att.Data = buf.Bytes()
		out = append(out, att)
	}
	return out, it.Err()
}

type message struct {
	item

	once    sync.Once
	headers *mime.Message
}

// transport parses the stored internet headers, when the item came from
// the internet.
func (m *message) transport() *mime.Message {
	m.once.Do(func() {
		raw := m.p.str("transport_message_headers")
		if raw == "" {
			return
		}
		h, err := mime.Parse([]byte(strings.TrimRight(raw, "\r\n") + "\r\n\r\n"))
		if err != nil {
			m.diag.log.Debug("transport headers unparsable", "error", err)
			return
		}
		m.headers = h
	})
	return m.headers
}

func (m *message) Subject() (string, error) { return m.p.str("subject", "normalized_subject"), nil }

func (m *message) MessageID() (string, error) {
	if id := m.p.str("internet_message_id"); id != "" {
		return id, nil
	}
	if h := m.transport(); h != nil {
		return h.MessageID, nil
	}
	return "", nil
}

func (m *message) From() (extract.Address, error) {
	a := extract.Address{
		Name:  m.p.str("sender_name", "sent_representing_name"),
		Email: m.p.str("sender_smtp_address", "sender_email_address", "sent_representing_email_address"),
	}
	// Exchange-internal senders carry an X.500 DN instead of an address.
	if strings.HasPrefix(a.Email, "/") {
		a.Email = ""
		if h := m.transport(); h != nil {
			from := h.Sender()
			a.Email = from.Email
		}
	}
	return a, nil
}

func (m *message) Recipients(kind extract.RecipientKind) ([]extract.Address, error) {
	if h := m.transport(); h != nil {
		switch kind {
		case extract.Cc:
			return addresses(h.Cc), nil
		case extract.Bcc:
			return addresses(h.Bcc), nil
		default:
			return addresses(h.To), nil
		}
	}
	field := map[extract.RecipientKind]string{extract.To: "display_to", extract.Cc: "display_cc", extract.Bcc: "display_bcc"}[kind]
	return names(m.p.str(field)), nil
}

func (m *message) ReplyTo() ([]extract.Address, error) {
	if h := m.transport(); h != nil && len(h.ReplyTo) > 0 {
		return addresses(h.ReplyTo), nil
	}
	return names(m.p.str("reply_recipient_names")), nil
}

func (m *message) ReturnPath() (extract.Address, error) {
	if h := m.transport(); h != nil {
		return extract.Address{Name: h.ReturnPath.Name, Email: h.ReturnPath.Email}, nil
	}
	return extract.Address{}, nil
}

func (m *message) SentDate() (time.Time, error) {
	return m.p.time("client_submit_time"), nil
}

func (m *message) ReceivedDate() (time.Time, error) {
	return m.p.time("message_delivery_time"), nil
}

func (m *message) InReplyTo() (string, error) {
	return m.p.str("in_reply_to_id"), nil
}

func (m *message) References() ([]string, error) {
	return strings.Fields(m.p.str("internet_references")), nil
}

func (m *message) Bodies() (extract.Bodies, error) {
	b := extract.Bodies{
		Text: m.p.str("body"),
		HTML: m.p.str("body_html"),
	}
	if compressed := m.p.bytes("rtf_compressed"); len(compressed) > 0 {
		doc, err := rtf.Decompress(compressed)
		if err != nil {
			return b, err
		}
		b.RTF = string(doc)
	}
	return b, nil
}

func (m *message) Attachments() ([]extract.Attachment, error) { return m.attachments() }

func (m *message) RawHeaders() ([]extract.HeaderField, error) {
	h := m.transport()
	if h == nil {
		return nil, nil
	}
	out := make([]extract.HeaderField, 0, len(h.Headers))
	for _, f := range h.Headers {
		out = append(out, extract.HeaderField{Key: f.Key, Value: f.Value})
	}
	return out, nil
}

// NativeBytes is nil: PST holds messages as property sets, so the RFC 5322
// form is synthesized.
func (m *message) NativeBytes() ([]byte, error) { return nil, nil }

func (m *message) Flags() (extract.MessageFlags, error) {
	var f extract.MessageFlags
	if n, ok := m.p.int("importance"); ok {
		f.Importance = [...]string{"low", "normal", "high"}[min(max(n, 0), 2)]
	}
	if n, ok := m.p.int("sensitivity"); ok {
		f.Sensitivity = [...]string{"normal", "personal", "private", "confidential"}[min(max(n, 0), 3)]
	}
	return f, nil
}

type contact struct {
	item
}

func (c *contact) Contact() (*extract.Contact, error) {
	p := c.p
	rec := &extract.Contact{
		FullName:     p.str("display_name", "file_under"),
		GivenName:    p.str("given_name"),
		Surname:      p.str("surname"),
		Nickname:     p.str("nickname"),
		Organization: p.str("company_name"),
		JobTitle:     p.str("title"),
		Birthday:     p.time("birthday"),
		Note:         p.str("body"),
	}
	for _, name := range []string{"email1_email_address", "email2_email_address", "email3_email_address"} {
		if v := p.str(name); v != "" {
			rec.Emails = append(rec.Emails, v)
		}
	}
	for _, name := range []string{"business_telephone_number", "home_telephone_number", "mobile_telephone_number", "primary_telephone_number"} {
		if v := p.str(name); v != "" {
			rec.Phones = append(rec.Phones, v)
		}
	}
	for _, name := range []string{"postal_address", "home_address", "work_address"} {
		if v := p.str(name); v != "" {
			rec.Addresses = append(rec.Addresses, v)
		}
	}
	atts, err := c.attachments()
	rec.Attachments = atts
	return rec, err
}

type appointment struct {
	item
}

func (a *appointment) Appointment() (*extract.Appointment, error) {
	p := a.p
	rec := &extract.Appointment{
		Subject:     p.str("subject", "normalized_subject"),
		Location:    p.str("location"),
		Start:       p.time("appointment_start_whole", "start_date"),
		End:         p.time("appointment_end_whole", "end_date"),
		Organizer:   p.str("sent_representing_name", "sender_name"),
		Description: p.str("body"),
		Recurrence:  p.str("recurrence_pattern"),
	}
	for _, list := range []string{"to_attendees_string", "cc_attendees_string"} {
		for _, att := range strings.Split(p.str(list), ";") {
			if att = strings.TrimSpace(att); att != "" {
				rec.Attendees = append(rec.Attendees, att)
			}
		}
	}
	if uid := p.bytes("global_object_id"); len(uid) > 0 {
		rec.UID = strings.ToUpper(hex.EncodeToString(uid))
	}
	if seq, ok := p.int("appointment_sequence"); ok {
		rec.Sequence = int(seq)
	}
	atts, err := a.attachments()
	rec.Attachments = atts
	return rec, err
}

func addresses(list []mime.Address) []extract.Address {
	out := make([]extract.Address, 0, len(list))
	for _, a := range list {
		out = append(out, extract.Address{Name: a.Name, Email: a.Email})
	}
	return out
}

// names splits a display list ("Alice; Bob") into name-only addresses.
func names(display string) []extract.Address {
	var out []extract.Address
	for _, n := range strings.Split(display, ";") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, extract.Address{Name: n})
		}
	}
	return out
}
