package extract

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/wesm/mailextract/internal/archive"
)

// folder walks one store folder and aggregates its counters and date range.
type folder struct {
	x      *Extractor
	src    StoreFolder
	parent *folder
	node   archive.Node // nil when nothing is written
	name   string
	path   string
	level  int

	begin, end time.Time

	elements   int
	subfolders int
	rawSize    int64
}

func (f *folder) walk(ctx context.Context, m mode) error {
	if f.src.HasElements() {
		err := f.src.WalkElements(ctx, func(es ElementSource) error {
			return f.element(ctx, m, es)
		})
		if err := f.walkError(ctx, err, "elements"); err != nil {
			return err
		}
	}

	if f.src.HasSubfolders() {
		subs, err := f.src.Subfolders(ctx)
		if err := f.walkError(ctx, err, "subfolders"); err != nil {
			return err
		}
		for _, sf := range subs {
			if err := f.subfolder(ctx, m, sf); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkError keeps store read failures local to the folder; only
// cancellation unwinds.
func (f *folder) walkError(ctx context.Context, err error, what string) error {
	if err == nil {
		return nil
	}
	if IsCancelled(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(ctxErr)
	}
	f.x.log.Warn("folder read failed", "folder", f.path, "reading", what, "error", err)
	return nil
}

func (f *folder) subfolder(ctx context.Context, m mode, sf StoreFolder) error {
	x := f.x
	child := &folder{
		x:      x,
		src:    sf,
		parent: f,
		name:   sf.Name(),
		path:   path.Join(f.path, sf.Name()),
		level:  f.level + 1,
	}
	if f.node != nil {
		node, err := x.createNode(f.node, archive.KindFolder, x.nodeName(sf.Name(), string(archive.KindFolder)))
		if err != nil {
			x.log.Warn("create folder node failed", "folder", child.path, "error", err)
		} else {
			child.node = node
		}
	}

	if err := child.walk(ctx, m); err != nil {
		return err
	}

	if !child.keep() {
		x.log.Debug("dropping empty folder", "folder", child.path, "level", child.level)
		return nil
	}
	f.subfolders++
	x.stats.Folders++
	if child.node != nil {
		child.node.AddMetadata(MetaTitle, child.name, true)
		child.describeRange(child.node)
		if err := child.node.Write(); err != nil {
			x.log.Warn("write folder failed", "folder", child.path, "error", err)
		}
	}
	return nil
}

// keep applies the empty-folder policy to a finished non-root folder.
func (f *folder) keep() bool {
	if f.elements+f.subfolders != 0 {
		return true
	}
	o := f.x.opts
	return !o.DropEmptyFolders && !(f.level == 1 && o.KeepOnlyDeepEmptyFolders)
}

func (f *folder) element(ctx context.Context, m mode, es ElementSource) error {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	x := f.x

	var err error
	switch src := es.(type) {
	case MessageSource:
		if !x.opts.ExtractMessages {
			return nil
		}
		x.stats.Messages++
		err = newMessage(f, src).process(ctx, m)
	case ContactSource:
		if !x.opts.ExtractContacts {
			return nil
		}
		x.stats.Contacts++
		err = newContact(f, src).process(ctx, m)
	case AppointmentSource:
		if !x.opts.ExtractAppointments {
			return nil
		}
		x.stats.Appointments++
		err = newAppointment(f, src, nil).process(ctx, m)
	default:
		x.log.Debug("skipping unsupported element", "folder", f.path, "type", fmt.Sprintf("%T", es))
		return nil
	}

	size := es.RawSize()
	f.elements++
	f.rawSize += size
	x.stats.Elements++
	x.stats.RawBytes += size

	if err != nil {
		if IsCancelled(err) {
			return err
		}
		x.problem("element skipped", "folder", f.path, "error", err)
	}
	return nil
}

// widen extends the date range of f and of every enclosing folder,
// across nested store boundaries.
func (f *folder) widen(t time.Time) {
	if t.IsZero() {
		return
	}
	for p := f; p != nil; p = p.parent {
		if p.begin.IsZero() || t.Before(p.begin) {
			p.begin = t
		}
		if p.end.IsZero() || t.After(p.end) {
			p.end = t
		}
	}
}

func (f *folder) describeRange(n archive.Node) {
	if f.begin.IsZero() {
		return
	}
	n.AddMetadata(MetaStartDate, formatDate(f.begin), true)
	n.AddMetadata(MetaEndDate, formatDate(f.end), true)
}
