package imap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	imap "github.com/emersion/go-imap/v2"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/rfc822"
)

// Register adds the imap and imaps schemes to reg.
func Register(reg *extract.Registry, s Settings) {
	ctor := Constructor(s)
	reg.Register("", Scheme, true, ctor)
	reg.Register("", SchemeTLS, true, ctor)
}

// Constructor returns the IMAP store constructor for s.
func Constructor(s Settings) extract.Constructor {
	return func(ctx context.Context, x *extract.Extractor) (extract.Store, error) {
		if x.Nested() {
			return nil, errors.New("imap: accounts cannot be nested")
		}
		cfg, err := ConfigFromDescriptor(x.Descriptor(), s)
		if err != nil {
			return nil, err
		}
		client := NewClient(cfg, WithLogger(x.Logger()))
		boxes, err := client.Mailboxes(ctx)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &store{client: client, root: buildTree(client, cfg.Identifier(), boxes)}, nil
	}
}

type store struct {
	client *Client
	root   *folder
}

func (s *store) Folder(_ context.Context, path string) (extract.StoreFolder, error) {
	f := s.root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		if f = f.find(part); f == nil {
			return nil, fmt.Errorf("folder %q: %w", path, extract.ErrNotFound)
		}
	}
	return f, nil
}

func (s *store) Close() error { return s.client.Close() }

type folder struct {
	client  *Client
	name    string
	mailbox string // full mailbox name; empty when not selectable
	subs    []*folder
}

// buildTree arranges the listed mailboxes by their hierarchy delimiter.
// Parents the server does not list become folders without elements.
func buildTree(c *Client, name string, boxes []*imap.ListData) *folder {
	root := &folder{client: c, name: name}
	for _, b := range boxes {
		parts := []string{b.Mailbox}
		if b.Delim != 0 {
			parts = strings.Split(b.Mailbox, string(b.Delim))
		}
		f := root
		for _, p := range parts {
			f = f.child(p)
		}
		if selectable(b.Attrs) {
			f.mailbox = b.Mailbox
		}
	}
	return root
}

func selectable(attrs []imap.MailboxAttr) bool {
	for _, a := range attrs {
		if a == imap.MailboxAttrNoSelect || a == imap.MailboxAttrNonExistent {
			return false
		}
	}
	return true
}

func (f *folder) find(name string) *folder {
	for _, s := range f.subs {
		if s.name == name {
			return s
		}
	}
	return nil
}

func (f *folder) child(name string) *folder {
	if s := f.find(name); s != nil {
		return s
	}
	s := &folder{client: f.client, name: name}
	f.subs = append(f.subs, s)
	return s
}

func (f *folder) Name() string        { return f.name }
func (f *folder) HasElements() bool   { return f.mailbox != "" }
func (f *folder) HasSubfolders() bool { return len(f.subs) > 0 }

func (f *folder) WalkElements(ctx context.Context, fn func(extract.ElementSource) error) error {
	uids, err := f.client.UIDs(ctx, f.mailbox)
	if err != nil {
		return err
	}
	return f.client.Fetch(ctx, f.mailbox, uids, func(m Fetched) error {
		msg := rfc822.New(m.Raw)
		msg.FallbackDate = m.Date
		return fn(msg)
	})
}

func (f *folder) Subfolders(context.Context) ([]extract.StoreFolder, error) {
	out := make([]extract.StoreFolder, len(f.subs))
	for i, s := range f.subs {
		out[i] = s
	}
	return out, nil
}
