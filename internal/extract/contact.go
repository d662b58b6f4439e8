package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wesm/mailextract/internal/archive"
)

type contact struct {
	f      *folder
	x      *Extractor
	src    ContactSource
	lineID int
	rec    *Contact
}

func newContact(f *folder, src ContactSource) *contact {
	return &contact{f: f, x: f.x, src: src}
}

func (c *contact) process(ctx context.Context, m mode) error {
	if c.lineID == 0 {
		c.lineID = c.x.nextLineID(archive.KindContact)
	}
	if m == modeList {
		return nil
	}

	rec, err := c.src.Contact()
	if err != nil {
		return fmt.Errorf("analyze contact: %w", err)
	}
	if rec == nil {
		rec = &Contact{}
	}
	c.rec = rec
	atts := newAttachments(rec.Attachments)
	c.x.classify(atts)

	var node archive.Node
	if m == modeExtract && c.x.opts.ExtractElementsContent && c.f.node != nil {
		node, err = c.x.createNode(c.f.node, archive.KindContact, c.x.nodeName(c.displayName(), string(archive.KindContact)))
		if err != nil {
			return fmt.Errorf("create contact node: %w", err)
		}
		c.describe(node)
	}
	if err := c.x.extractAttachments(ctx, c.f, node, atts, m); err != nil {
		return err
	}
	if node != nil {
		if err := node.Write(); err != nil {
			return fmt.Errorf("write contact node: %w", err)
		}
	}
	return c.writeRow()
}

func (c *contact) displayName() string {
	r := c.rec
	switch {
	case r.FullName != "":
		return r.FullName
	case r.GivenName != "" || r.Surname != "":
		return strings.TrimSpace(r.GivenName + " " + r.Surname)
	case r.Organization != "":
		return r.Organization
	case len(r.Emails) > 0:
		return r.Emails[0]
	default:
		return ""
	}
}

func (c *contact) describe(n archive.Node) {
	r := c.rec
	addIf(n, MetaFullName, c.displayName())
	addIf(n, MetaGivenName, r.GivenName)
	addIf(n, MetaSurname, r.Surname)
	addIf(n, MetaNickname, r.Nickname)
	addIf(n, MetaOrganization, r.Organization)
	addIf(n, MetaJobTitle, r.JobTitle)
	addEach(n, MetaEmail, r.Emails)
	addEach(n, MetaPhone, r.Phones)
	addEach(n, MetaAddress, r.Addresses)
	if !r.Birthday.IsZero() {
		n.AddMetadata(MetaBirthday, r.Birthday.Format("2006-01-02"), true)
	}
	addIf(n, MetaNote, r.Note)
	if len(r.Picture) > 0 {
		name := "picture"
		if r.PictureType != "" {
			name += "." + strings.TrimPrefix(strings.ToLower(r.PictureType), "image/")
		}
		n.AddBinaryObject(r.Picture, name, archive.ObjectBinaryMaster, 1)
	}
}

func (c *contact) writeRow() error {
	s := c.x.rootExtractor().sinks
	if s == nil {
		return nil
	}
	r := c.rec
	return s.write(archive.KindContact, []string{
		strconv.Itoa(c.lineID),
		c.displayName(),
		r.GivenName,
		r.Surname,
		r.Organization,
		strings.Join(r.Emails, ", "),
		strings.Join(r.Phones, ", "),
		c.f.path,
	})
}

func addIf(n archive.Node, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		n.AddMetadata(key, v, true)
	}
}

func addEach(n archive.Node, key string, values []string) {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			n.AddMetadata(key, v, false)
		}
	}
}
