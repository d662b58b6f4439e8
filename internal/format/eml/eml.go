// Package eml opens a single RFC 5322 message file as a store holding one
// message in its root folder.
package eml

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/rfc822"
	"github.com/wesm/mailextract/internal/sniff"
)

// Scheme is the descriptor scheme of message files.
const Scheme = "eml"

// Register adds the eml scheme to reg.
func Register(reg *extract.Registry) {
	reg.Register(sniff.TypeRFC822, Scheme, false, Open)
}

// Open is the eml store constructor.
func Open(ctx context.Context, x *extract.Extractor) (extract.Store, error) {
	raw, err := x.ReadContent()
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(x.Descriptor().Path), filepath.Ext(x.Descriptor().Path))
	return &store{root: &folder{name: name, msg: rfc822.New(raw)}}, nil
}

type store struct {
	root *folder
}

func (s *store) Folder(_ context.Context, path string) (extract.StoreFolder, error) {
	if strings.Trim(path, "/") != "" {
		return nil, fmt.Errorf("folder %q: %w", path, extract.ErrNotFound)
	}
	return s.root, nil
}

func (s *store) Close() error { return nil }

type folder struct {
	name string
	msg  *rfc822.Message
}

func (f *folder) Name() string        { return f.name }
func (f *folder) HasElements() bool   { return true }
func (f *folder) HasSubfolders() bool { return false }

func (f *folder) WalkElements(ctx context.Context, fn func(extract.ElementSource) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(f.msg)
}

func (f *folder) Subfolders(context.Context) ([]extract.StoreFolder, error) { return nil, nil }
