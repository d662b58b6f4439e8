package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wesm/mailextract/internal/archive"
	"github.com/wesm/mailextract/internal/mime"
	"github.com/wesm/mailextract/internal/rtf"
	"github.com/wesm/mailextract/internal/tnef"
)

// decodeTNEF unpacks TNEF attachments; tests swap it out.
var decodeTNEF = tnef.Decode

type message struct {
	f      *folder
	x      *Extractor
	src    MessageSource
	lineID int

	subject    string
	messageID  string
	from       Address
	to         []Address
	cc         []Address
	bcc        []Address
	replyTo    []Address
	returnPath Address
	sent       time.Time
	received   time.Time
	inReplyTo  string
	references []string
	flags      MessageFlags
	rawHeaders []HeaderField

	bodies      Bodies
	attachments []*attachment
	native      []byte
}

func newMessage(f *folder, src MessageSource) *message {
	return &message{f: f, x: f.x, src: src}
}

// field runs one analysis hook, logging and zeroing the value on failure.
func field[T any](m *message, name string, get func() (T, error)) T {
	v, err := get()
	if err != nil {
		m.problem(name, err)
		var zero T
		return zero
	}
	return v
}

func (m *message) problem(what string, err error) {
	m.x.problem("message problem", "folder", m.f.path, "line", m.lineID, "field", what, "error", err)
}

func (m *message) process(ctx context.Context, md mode) error {
	if m.lineID == 0 {
		m.lineID = m.x.nextLineID(archive.KindMessage)
	}
	if md == modeList {
		return nil
	}

	m.analyze()
	m.f.widen(m.sent)

	var node archive.Node
	if md == modeExtract && m.x.opts.ExtractElementsContent && m.f.node != nil {
		n, err := m.x.createNode(m.f.node, archive.KindMessage, m.x.nodeName(m.subject, string(archive.KindMessage)))
		if err != nil {
			return fmt.Errorf("create message node: %w", err)
		}
		node = n
		m.describe(node)
	}

	// The row precedes those of any nested store.
	rowErr := m.writeRow()
	if err := m.x.extractAttachments(ctx, m.f, node, m.attachments, md); err != nil {
		return err
	}

	if node != nil {
		canonical := m.native
		if canonical == nil {
			var err error
			if canonical, err = m.synthesize(); err != nil {
				m.problem("canonical form", err)
			}
		}
		if canonical != nil {
			node.AddBinaryObject(canonical, m.x.nodeName(m.subject, "message")+".eml", archive.ObjectBinaryMaster, 1)
		}
		if err := node.Write(); err != nil {
			return fmt.Errorf("write message node: %w", err)
		}
	}
	return rowErr
}

func (m *message) analyze() {
	src := m.src

	m.subject = strings.TrimSpace(field(m, "subject", src.Subject))
	if m.subject == "" {
		m.subject = NoSubject
	}
	m.messageID = trimID(field(m, "message id", src.MessageID))
	if m.messageID == "" {
		m.messageID = NoMessageID
	}
	m.from = field(m, "from", src.From)
	m.to = field(m, "to", func() ([]Address, error) { return src.Recipients(To) })
	m.cc = field(m, "cc", func() ([]Address, error) { return src.Recipients(Cc) })
	m.bcc = field(m, "bcc", func() ([]Address, error) { return src.Recipients(Bcc) })
	m.replyTo = field(m, "reply-to", src.ReplyTo)
	m.returnPath = field(m, "return-path", src.ReturnPath)
	m.sent = field(m, "sent date", src.SentDate)
	m.received = field(m, "received date", src.ReceivedDate)
	m.inReplyTo = trimID(field(m, "in-reply-to", src.InReplyTo))
	for _, ref := range field(m, "references", src.References) {
		if id := trimID(ref); id != "" {
			m.references = append(m.references, id)
		}
	}
	if fs, ok := src.(FlaggedMessageSource); ok {
		m.flags = field(m, "flags", fs.Flags)
	}
	m.rawHeaders = field(m, "raw headers", src.RawHeaders)

	m.bodies = field(m, "bodies", src.Bodies)
	m.attachments = newAttachments(field(m, "attachments", src.Attachments))

	m.unpackTNEF()
	m.optimizeBodies()
	m.x.classify(m.attachments)

	m.native = field(m, "native bytes", src.NativeBytes)
}

func trimID(s string) string {
	return strings.Trim(strings.TrimSpace(s), "<>")
}

// unpackTNEF replaces TNEF attachments by the files they carry and fills
// the rich-text body from them when the message has none.
func (m *message) unpackTNEF() {
	var out []*attachment
	for _, a := range m.attachments {
		if !tnef.IsTNEFType(a.mimeType) {
			out = append(out, a)
			continue
		}
		res, err := decodeTNEF(a.Data)
		if err != nil {
			m.problem("tnef "+a.Name, err)
			out = append(out, a)
			continue
		}
		for _, p := range res.Problems {
			m.problem("tnef "+a.Name, errors.New(p))
		}
		if res.RTF != "" {
			if m.bodies.RTF == "" {
				m.bodies.RTF = res.RTF
			} else {
				m.problem("tnef "+a.Name, errors.New("rich-text body already present, discarding the encapsulated one"))
			}
		}
		incomplete := false
		for _, sub := range res.Attachments {
			if !sub.Complete() {
				incomplete = true
				continue
			}
			out = append(out, newAttachment(Attachment{
				Name:        sub.Name,
				ContentType: m.x.sniffType(sub.Data),
				Created:     a.Created,
				Modified:    a.Modified,
				Data:        sub.Data,
			}))
		}
		if incomplete {
			m.problem("tnef "+a.Name, errors.New("undecodable sub-attachment, keeping the original blob"))
			out = append(out, a)
		}
	}
	m.attachments = out
}

// optimizeBodies trims the bodies and resolves a rich-text body that only
// encapsulates plain text or HTML.
func (m *message) optimizeBodies() {
	b := &m.bodies
	b.Text = strings.TrimSpace(b.Text)
	b.HTML = strings.TrimSpace(b.HTML)
	b.RTF = strings.TrimSpace(b.RTF)
	if b.RTF == "" {
		return
	}
	kind, inner := rtf.Decapsulate(b.RTF)
	inner = strings.TrimSpace(inner)
	switch {
	case kind == rtf.EncapsulatedText && b.Text == "":
		b.Text, b.RTF = inner, ""
	case kind == rtf.EncapsulatedText && inner == b.Text:
		b.RTF = ""
	case kind == rtf.EncapsulatedHTML && b.HTML == "":
		b.HTML, b.RTF = inner, ""
	}
}

// text returns the plain-text rendition of the richest available body.
func (m *message) text() string {
	switch {
	case m.bodies.Text != "":
		return m.bodies.Text
	case m.bodies.HTML != "":
		return mime.StripHTML(m.bodies.HTML)
	case m.bodies.RTF != "":
		return rtf.ToText(m.bodies.RTF)
	default:
		return ""
	}
}

func (m *message) describe(n archive.Node) {
	n.AddMetadata(MetaSubject, m.subject, true)
	n.AddMetadata(MetaMessageID, m.messageID, true)
	if !m.from.IsZero() {
		n.AddMetadata(MetaFrom, m.from.String(), true)
	}
	addAddresses(n, MetaTo, m.to)
	addAddresses(n, MetaCc, m.cc)
	addAddresses(n, MetaBcc, m.bcc)
	addAddresses(n, MetaReplyTo, m.replyTo)
	if !m.returnPath.IsZero() {
		n.AddMetadata(MetaReturnPath, m.returnPath.String(), true)
	}
	if !m.sent.IsZero() {
		n.AddMetadata(MetaSentDate, formatDate(m.sent), true)
	}
	if !m.received.IsZero() {
		n.AddMetadata(MetaReceivedDate, formatDate(m.received), true)
	}
	if m.inReplyTo != "" {
		n.AddMetadata(MetaInReplyTo, m.inReplyTo, true)
	}
	for _, ref := range m.references {
		n.AddMetadata(MetaReferences, ref, false)
	}
	if m.flags.Importance != "" {
		n.AddMetadata(MetaImportance, m.flags.Importance, true)
	}
	if m.flags.Sensitivity != "" {
		n.AddMetadata(MetaSensitivity, m.flags.Sensitivity, true)
	}
	n.AddMetadata(MetaAttachmentCount, strconv.Itoa(len(m.attachments)), true)

	opts := m.x.opts
	if !opts.ExtractMessageTextAsFile && !opts.ExtractMessageTextAsMetadata {
		return
	}
	text := m.text()
	if text == "" {
		return
	}
	if opts.ExtractMessageTextAsFile {
		n.AddBinaryObject([]byte(text), "message.txt", archive.ObjectTextContent, 1)
	}
	if opts.ExtractMessageTextAsMetadata {
		n.AddMetadata(MetaTextContent, text, true)
	}
}

func addAddresses(n archive.Node, key string, list []Address) {
	for _, a := range list {
		if !a.IsZero() {
			n.AddMetadata(key, a.String(), false)
		}
	}
}

func (m *message) writeRow() error {
	s := m.x.rootExtractor().sinks
	if s == nil {
		return nil
	}
	return s.write(archive.KindMessage, []string{
		strconv.Itoa(m.lineID),
		m.subject,
		m.f.path,
		formatDate(m.sent),
		m.from.String(),
		joinAddresses(m.to),
		joinAddresses(m.cc),
		joinAddresses(m.bcc),
		m.messageID,
		m.inReplyTo,
		strconv.Itoa(len(m.attachments)),
		strconv.FormatInt(m.src.RawSize(), 10),
		strconv.FormatBool(m.x.Nested()),
	})
}

func joinAddresses(list []Address) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		if !a.IsZero() {
			parts = append(parts, a.String())
		}
	}
	return strings.Join(parts, ", ")
}
