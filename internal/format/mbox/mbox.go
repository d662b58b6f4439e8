// Package mbox opens mbox files as stores. A single file is one folder; a
// directory is a folder tree where each mbox file is a folder and a
// sibling "<name>.sbd" directory holds its subfolders.
package mbox

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/rfc822"
	"github.com/wesm/mailextract/internal/mbox"
	"github.com/wesm/mailextract/internal/sniff"
)

// Scheme is the descriptor scheme of mbox stores.
const Scheme = "mbox"

const subdirSuffix = ".sbd"

// Register adds the mbox scheme to reg.
func Register(reg *extract.Registry) {
	reg.Register(sniff.TypeMbox, Scheme, true, Open)
}

// Open is the mbox store constructor.
func Open(ctx context.Context, x *extract.Extractor) (extract.Store, error) {
	if content := x.Content(); content != nil {
		return &store{root: &folder{
			name: "mbox",
			size: int64(len(content)),
			open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
		}}, nil
	}

	p := filepath.Clean(x.Descriptor().Path)
	fi, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return &store{root: &folder{name: filepath.Base(p), dir: p}}, nil
	}
	if fi.Size() > 0 {
		if err := validate(p); err != nil {
			return nil, err
		}
	}
	return &store{root: fileFolder(filepath.Base(p), p, fi.Size())}, nil
}

// validate requires a separator line near the start of the file.
func validate(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := mbox.Validate(f, 64<<10); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	return nil
}

func fileFolder(name, p string, size int64) *folder {
	f := &folder{
		name: name,
		size: size,
		open: func() (io.ReadCloser, error) { return os.Open(p) },
	}
	if fi, err := os.Stat(p + subdirSuffix); err == nil && fi.IsDir() {
		f.dir = p + subdirSuffix
	}
	return f
}

type store struct {
	root *folder
}

func (s *store) Folder(ctx context.Context, path string) (extract.StoreFolder, error) {
	f := s.root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		subs, err := f.subfolders()
		if err != nil {
			return nil, err
		}
		var next *folder
		for _, sub := range subs {
			if sub.name == part {
				next = sub
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("folder %q: %w", path, extract.ErrNotFound)
		}
		f = next
	}
	return f, nil
}

func (s *store) Close() error { return nil }

type folder struct {
	name string
	size int64
	open func() (io.ReadCloser, error) // nil when the folder has no mbox file
	dir  string                        // directory of subfolders, if any
}

func (f *folder) Name() string { return f.name }

func (f *folder) HasElements() bool { return f.open != nil && f.size > 0 }

func (f *folder) HasSubfolders() bool {
	subs, err := f.subfolders()
	return err == nil && len(subs) > 0
}

func (f *folder) WalkElements(ctx context.Context, fn func(extract.ElementSource) error) error {
	if f.open == nil {
		return nil
	}
	rc, err := f.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	r := mbox.NewReader(bufio.NewReader(rc))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read mbox %s: %w", f.name, err)
		}
		msg := rfc822.New(m.Raw)
		msg.FallbackDate = m.Date
		if err := fn(msg); err != nil {
			return err
		}
	}
}

func (f *folder) Subfolders(context.Context) ([]extract.StoreFolder, error) {
	subs, err := f.subfolders()
	if err != nil {
		return nil, err
	}
	out := make([]extract.StoreFolder, len(subs))
	for i, s := range subs {
		out[i] = s
	}
	return out, nil
}

// subfolders lists f.dir in name order. Index files and dot files are
// skipped, as are regular files that do not look like mbox.
func (f *folder) subfolders() ([]*folder, error) {
	if f.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.dir, err)
	}
	files := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() {
			files[e.Name()] = true
		}
	}

	var out []*folder
	for _, e := range entries {
		name := e.Name()
		p := filepath.Join(f.dir, name)
		switch {
		case strings.HasPrefix(name, "."), strings.HasSuffix(name, ".msf"):
			continue
		case e.IsDir() && strings.HasSuffix(name, subdirSuffix):
			base := strings.TrimSuffix(name, subdirSuffix)
			if files[base] {
				continue // attached to its mbox file
			}
			out = append(out, &folder{name: base, dir: p})
		case e.IsDir():
			out = append(out, &folder{name: name, dir: p})
		default:
			info, err := e.Info()
			if err != nil {
				return nil, err
			}
			if info.Size() > 0 && !looksLikeMbox(p) {
				continue
			}
			out = append(out, fileFolder(name, p, info.Size()))
		}
	}
	return out, nil
}

func looksLikeMbox(p string) bool {
	fh, err := os.Open(p)
	if err != nil {
		return false
	}
	defer fh.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(fh, head)
	return mbox.LooksLikeMbox(head[:n])
}
