package extract

import (
	"context"
	"errors"
	stdmime "mime"
	"strconv"
	"strings"
	"time"

	"github.com/wesm/mailextract/internal/archive"
	"github.com/wesm/mailextract/internal/tnef"
)

const defaultMIMEType = "application/octet-stream"

// AttachmentKind selects how an attachment is extracted.
type AttachmentKind int

const (
	AttachmentFile AttachmentKind = iota
	AttachmentInline
	AttachmentNested
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentInline:
		return "inline"
	case AttachmentNested:
		return "nested"
	default:
		return "file"
	}
}

// shortcutExts are renamed on output so nothing downstream follows them.
var shortcutExts = []string{".lnk", ".url"}

type attachment struct {
	Attachment
	mimeType string // normalized
	kind     AttachmentKind
	scheme   string
}

func newAttachment(a Attachment) *attachment {
	at := &attachment{Attachment: a, mimeType: normalizeMIMEType(a.ContentType)}
	switch {
	case a.Scheme != "":
		at.kind, at.scheme = AttachmentNested, strings.ToLower(a.Scheme)
	case a.Inline:
		at.kind = AttachmentInline
	default:
		at.kind = AttachmentFile
	}
	return at
}

func newAttachments(list []Attachment) []*attachment {
	out := make([]*attachment, 0, len(list))
	for _, a := range list {
		out = append(out, newAttachment(a))
	}
	return out
}

// normalizeMIMEType returns the lowercased type/subtype of a declared
// content type, or application/octet-stream when it cannot be parsed.
func normalizeMIMEType(s string) string {
	mt, _, err := stdmime.ParseMediaType(strings.TrimSpace(s))
	if err != nil && !errors.Is(err, stdmime.ErrInvalidMediaParameter) {
		return defaultMIMEType
	}
	if i := strings.IndexByte(mt, '/'); i <= 0 || i == len(mt)-1 {
		return defaultMIMEType
	}
	return mt
}

// effectiveDate is the later of the creation and modification dates.
func (a *attachment) effectiveDate() time.Time {
	if a.Modified.After(a.Created) {
		return a.Modified
	}
	return a.Created
}

func (a *attachment) fileName() string {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = "attachment"
		if exts, _ := stdmime.ExtensionsByType(a.mimeType); len(exts) > 0 {
			name += exts[0]
		}
	}
	lower := strings.ToLower(name)
	for _, ext := range shortcutExts {
		if strings.HasSuffix(lower, ext) {
			return name + ".bin"
		}
	}
	return name
}

// classify flags attachments that are stores of a registered scheme, from
// their declared type or by sniffing their bytes. TNEF blobs are left to
// the message's own unpacking.
func (x *Extractor) classify(atts []*attachment) {
	for _, a := range atts {
		if a.kind == AttachmentNested || len(a.Data) == 0 || tnef.IsTNEFType(a.mimeType) {
			continue
		}
		if a.mimeType != defaultMIMEType {
			if scheme, err := x.reg.SchemeForMIMEType(a.mimeType); err == nil {
				a.kind, a.scheme = AttachmentNested, scheme
				continue
			}
		}
		sniffed, err := x.sniffer.Sniff(a.Data)
		if err != nil {
			x.log.Debug("sniffing failed", "attachment", a.Name, "error", err)
			continue
		}
		if tnef.IsTNEFType(sniffed) {
			continue
		}
		if scheme, err := x.reg.SchemeForMIMEType(sniffed); err == nil {
			a.kind, a.scheme = AttachmentNested, scheme
		}
	}
}

// sniffType returns the sniffed type of data, or application/octet-stream.
func (x *Extractor) sniffType(data []byte) string {
	mt, err := x.sniffer.Sniff(data)
	if err != nil || mt == "" {
		return defaultMIMEType
	}
	return normalizeMIMEType(mt)
}

// extractAttachments handles the attachments of one element. node is the
// element's node, nil when nothing is written. Only cancellation is
// returned; every other failure is logged and skipped.
func (x *Extractor) extractAttachments(ctx context.Context, f *folder, node archive.Node, atts []*attachment, m mode) error {
	for i, a := range atts {
		if a.kind == AttachmentNested {
			done, err := x.extractNested(ctx, f, node, a, m)
			if err != nil {
				return err
			}
			if done {
				continue
			}
		}
		if node == nil {
			continue
		}
		if err := x.extractFile(node, a, i+1); err != nil {
			x.problem("attachment not written", "folder", f.path, "attachment", a.Name, "error", err)
		}
	}
	return nil
}

// extractFile writes a file or inline attachment as its own leaf node.
// Under model v2 an inline attachment is flagged and its bytes are stored
// as an inline object numbered by its position in the message, so cid:
// references in the HTML body can be resolved against it.
func (x *Extractor) extractFile(parent archive.Node, a *attachment, position int) error {
	name := a.fileName()
	node, err := x.createNode(parent, archive.KindAttachment, x.nodeName(name, string(archive.KindAttachment)))
	if err != nil {
		return err
	}
	node.AddMetadata(MetaFilename, name, true)
	node.AddMetadata(MetaMIMEType, a.mimeType, true)
	if cid := strings.Trim(strings.TrimSpace(a.ContentID), "<>"); cid != "" {
		node.AddMetadata(MetaContentID, cid, true)
	}
	if d := a.effectiveDate(); !d.IsZero() {
		node.AddMetadata(MetaDate, formatDate(d), true)
	}
	node.AddMetadata(MetaSize, strconv.Itoa(len(a.Data)), true)

	objectType, version := archive.ObjectBinaryMaster, 1
	if a.kind == AttachmentInline && x.opts.OutputModelVersion == ModelV2 {
		node.AddMetadata(MetaInline, "true", true)
		objectType, version = archive.ObjectInline, position
	}
	node.AddBinaryObject(a.Data, name, objectType, version)
	x.attachmentText(node, a, name, version)
	return node.Write()
}

func (x *Extractor) attachmentText(node archive.Node, a *attachment, name string, version int) {
	if !x.opts.ExtractAttachmentTextAsFile && !x.opts.ExtractAttachmentTextAsMetadata {
		return
	}
	text, err := x.texter.ExtractText(a.Data)
	if err != nil {
		x.problem("attachment text extraction failed", "attachment", name, "error", err)
		return
	}
	if text == "" {
		return
	}
	if x.opts.ExtractAttachmentTextAsFile {
		node.AddBinaryObject([]byte(text), name+".txt", archive.ObjectTextContent, version)
	}
	if x.opts.ExtractAttachmentTextAsMetadata {
		node.AddMetadata(MetaTextContent, text, false)
	}
}

// extractNested runs a child extractor over a nested store attachment.
// It reports false when the attachment must be handled as a plain file.
func (x *Extractor) extractNested(ctx context.Context, f *folder, node archive.Node, a *attachment, m mode) (bool, error) {
	if m == modeList {
		return true, nil
	}
	if _, err := x.reg.Constructor(a.scheme); err != nil {
		x.log.Warn("unknown nested store scheme, keeping attachment as file", "attachment", a.Name, "scheme", a.scheme)
		return false, nil
	}

	name := a.fileName()
	sub, err := x.child(ctx, a.scheme, a.Data, name)
	if err != nil {
		x.problem("nested store not opened, keeping attachment as file", "attachment", name, "scheme", a.scheme, "error", err)
		return false, nil
	}
	defer func() {
		if err := sub.Close(); err != nil {
			x.log.Debug("closing nested store", "attachment", name, "error", err)
		}
	}()

	rootNode := node
	if node != nil && sub.container {
		rootNode, err = x.createNode(node, archive.KindContainer, x.nodeName(name, string(archive.KindContainer)))
		if err != nil {
			x.problem("container node not created, keeping attachment as file", "attachment", name, "error", err)
			return false, nil
		}
		rootNode.AddMetadata(MetaTitle, name, true)
		rootNode.AddMetadata(MetaScheme, a.scheme, true)
	}

	if err := sub.walk(ctx, m, rootNode, f); err != nil {
		if IsCancelled(err) {
			return false, err
		}
		x.problem("nested extraction failed, keeping attachment as file", "attachment", name, "scheme", a.scheme, "error", err)
		return false, nil
	}
	x.Accumulate(sub)

	if rootNode != nil && sub.container {
		sub.root.describeRange(rootNode)
		if err := rootNode.Write(); err != nil {
			x.problem("container node not written", "attachment", name, "error", err)
		}
	}
	return true, nil
}
