// Package pst opens Outlook PST and OST files as stores.
package pst

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	pst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/mooijtech/go-pst/v6/pkg/properties"
	"github.com/rotisserie/eris"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/sniff"
)

// Scheme is the descriptor scheme of Outlook files.
const Scheme = "pst"

// Register adds the pst scheme to reg.
func Register(reg *extract.Registry) {
	reg.Register(sniff.TypePST, Scheme, true, Open)
}

// Open is the pst store constructor.
func Open(ctx context.Context, x *extract.Extractor) (extract.Store, error) {
	content, err := x.OpenContent()
	if err != nil {
		return nil, err
	}
	file, err := pst.New(io.NewSectionReader(content, 0, content.Size()))
	if err != nil {
		content.Close()
		return nil, eris.Wrap(err, "open pst")
	}
	root, err := file.GetRootFolder()
	if err != nil {
		file.Cleanup()
		content.Close()
		return nil, eris.Wrap(err, "pst root folder")
	}
	return &store{
		file:    file,
		content: content,
		root:    newFolder(diag{log: x.Logger(), problem: x.Problem}, asFolder(root)),
	}, nil
}

type store struct {
	file    *pst.File
	content io.Closer
	root    *folder
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
			if sub.Name() == part {
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

func (s *store) Close() error {
	s.file.Cleanup()
	return s.content.Close()
}

// asFolder normalizes the folder values go-pst hands out.
func asFolder(v any) *pst.Folder {
	switch f := v.(type) {
	case *pst.Folder:
		return f
	case pst.Folder:
		return &f
	}
	return nil
}

func asMessage(v any) *pst.Message {
	switch m := v.(type) {
	case *pst.Message:
		return m
	case pst.Message:
		return &m
	}
	return nil
}

// diag routes adapter diagnostics. Items the extraction has to leave out
// go to problem, which reports them the way the extractor reports
// per-element problems.
type diag struct {
	log     *slog.Logger
	problem func(msg string, args ...any)
}

func (d diag) skipped(msg string, args ...any) {
	if d.problem != nil {
		d.problem(msg, args...)
		return
	}
	d.log.Debug(msg, args...)
}

type folder struct {
	diag diag
	f    *pst.Folder
}

func newFolder(d diag, f *pst.Folder) *folder {
	return &folder{diag: d, f: f}
}

func (f *folder) Name() string { return f.f.Name }

// HasElements is optimistic; empty folders surface as ErrMessagesNotFound.
func (f *folder) HasElements() bool { return true }

func (f *folder) HasSubfolders() bool { return f.f.HasSubFolders }

func (f *folder) WalkElements(ctx context.Context, fn func(extract.ElementSource) error) error {
	it, err := f.f.GetMessageIterator()
	if eris.Is(err, pst.ErrMessagesNotFound) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "messages of %s", f.Name())
	}
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(element(f.diag, asMessage(it.Value()))); err != nil {
			return err
		}
	}
	return it.Err()
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

func (f *folder) subfolders() ([]*folder, error) {
	if !f.f.HasSubFolders {
		return nil, nil
	}
	subs, err := f.f.GetSubFolders()
	if err != nil {
		return nil, eris.Wrapf(err, "subfolders of %s", f.Name())
	}
	out := make([]*folder, 0, len(subs))
	for i := range subs {
		if sub := asFolder(subs[i]); sub != nil {
			out = append(out, newFolder(f.diag, sub))
		}
	}
	return out, nil
}

// element wraps a message by item class. Item classes without an
// extraction model (tasks, notes, RSS items) are read as messages.
func element(d diag, m *pst.Message) extract.ElementSource {
	if m == nil {
		return &message{item: item{diag: d}}
	}
	base := item{diag: d, m: m, p: propsOf(m.Properties)}
	switch m.Properties.(type) {
	case *properties.Contact:
		return &contact{item: base}
	case *properties.Appointment:
		return &appointment{item: base}
	default:
		return &message{item: base}
	}
}
