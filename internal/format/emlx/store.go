package emlx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/rfc822"
)

// Scheme is the descriptor scheme of Apple Mail directories.
const Scheme = "emlx"

// Register adds the emlx scheme to reg. Apple Mail stores are directory
// trees, so no MIME type maps to them.
func Register(reg *extract.Registry) {
	reg.Register("", Scheme, true, Open)
}

// Open is the emlx store constructor. The descriptor path names an Apple
// Mail directory or a single .mbox directory.
func Open(ctx context.Context, x *extract.Extractor) (extract.Store, error) {
	if x.Nested() {
		return nil, errors.New("emlx: directory stores cannot be nested")
	}
	dir := x.Descriptor().Path
	mailboxes, err := DiscoverMailboxes(dir)
	if err != nil {
		return nil, err
	}
	root := &folder{log: x.Logger(), name: stripMailboxSuffix(filepath.Base(filepath.Clean(dir)))}
	for _, mb := range mailboxes {
		f := root
		for _, part := range mb.Folder {
			f = f.child(part)
		}
		f.msgDir = mb.MsgDir
		f.files = append(f.files, mb.Files...)
	}
	// A single .mbox directory is its own root.
	if len(mailboxes) == 1 && mailboxes[0].Path == absPath(dir) {
		only := root.subs[0]
		only.name = root.name
		root = only
	}
	return &store{root: root}, nil
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

type store struct {
	root *folder
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

func (s *store) Close() error { return nil }

type folder struct {
	log    *slog.Logger
	name   string
	msgDir string
	files  []string
	subs   []*folder
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
	s := &folder{log: f.log, name: name}
	f.subs = append(f.subs, s)
	return s
}

func (f *folder) Name() string        { return f.name }
func (f *folder) HasElements() bool   { return len(f.files) > 0 }
func (f *folder) HasSubfolders() bool { return len(f.subs) > 0 }

func (f *folder) WalkElements(ctx context.Context, fn func(extract.ElementSource) error) error {
	for _, name := range f.files {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := ParseFile(filepath.Join(f.msgDir, name))
		if err != nil {
			f.log.Warn("skipping unreadable message file", "file", name, "error", err)
			continue
		}
		msg := rfc822.New(m.Raw)
		msg.FallbackDate = m.Sent
		if err := fn(msg); err != nil {
			return err
		}
	}
	return nil
}

func (f *folder) Subfolders(context.Context) ([]extract.StoreFolder, error) {
	out := make([]extract.StoreFolder, len(f.subs))
	for i, s := range f.subs {
		out[i] = s
	}
	return out, nil
}
