package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wesm/mailextract/internal/archive"
)

type appointment struct {
	f      *folder
	x      *Extractor
	src    AppointmentSource
	parent *appointment // set for recurrence exceptions
	lineID int
	rec    *Appointment
}

func newAppointment(f *folder, src AppointmentSource, parent *appointment) *appointment {
	return &appointment{f: f, x: f.x, src: src, parent: parent}
}

func (a *appointment) process(ctx context.Context, m mode) error {
	if a.lineID == 0 {
		a.lineID = a.x.nextLineID(archive.KindAppointment)
	}
	if m == modeList {
		return nil
	}
	if a.rec == nil {
		rec, err := a.src.Appointment()
		if err != nil {
			return fmt.Errorf("analyze appointment: %w", err)
		}
		if rec == nil {
			rec = &Appointment{}
		}
		a.rec = rec
	}
	return a.extract(ctx, m, a.f.node)
}

func (a *appointment) extract(ctx context.Context, m mode, parentNode archive.Node) error {
	x := a.x
	atts := newAttachments(a.rec.Attachments)
	x.classify(atts)

	var node archive.Node
	if m == modeExtract && x.opts.ExtractElementsContent && parentNode != nil {
		var err error
		node, err = x.createNode(parentNode, archive.KindAppointment, x.nodeName(a.rec.Subject, string(archive.KindAppointment)))
		if err != nil {
			return fmt.Errorf("create appointment node: %w", err)
		}
		a.describe(node)
	}
	if err := x.extractAttachments(ctx, a.f, node, atts, m); err != nil {
		return err
	}
	rowErr := a.writeRow()

	for _, exc := range a.rec.Exceptions {
		if exc == nil {
			continue
		}
		child := &appointment{f: a.f, x: x, parent: a, rec: exc}
		child.lineID = x.nextLineID(archive.KindAppointment)
		if err := child.extract(ctx, m, node); err != nil {
			if IsCancelled(err) {
				return err
			}
			x.problem("appointment exception skipped", "folder", a.f.path, "uid", exc.UID, "error", err)
		}
	}

	if node != nil {
		if err := node.Write(); err != nil {
			return fmt.Errorf("write appointment node: %w", err)
		}
	}
	return rowErr
}

func (a *appointment) parentUID() string {
	if a.parent == nil {
		return ""
	}
	return a.parent.rec.UID
}

func (a *appointment) describe(n archive.Node) {
	r := a.rec
	addIf(n, MetaSubject, r.Subject)
	addIf(n, MetaLocation, r.Location)
	if !r.Start.IsZero() {
		n.AddMetadata(MetaStartDate, formatDate(r.Start), true)
	}
	if !r.End.IsZero() {
		n.AddMetadata(MetaEndDate, formatDate(r.End), true)
	}
	addIf(n, MetaOrganizer, r.Organizer)
	addEach(n, MetaAttendee, r.Attendees)
	addIf(n, MetaDescription, r.Description)
	addIf(n, MetaRecurrence, r.Recurrence)
	addIf(n, MetaUID, r.UID)
	if r.Sequence != 0 {
		n.AddMetadata(MetaSequence, strconv.Itoa(r.Sequence), true)
	}
	if a.parent != nil {
		addIf(n, MetaParentUID, a.parentUID())
		n.AddMetadata(MetaDeleted, strconv.FormatBool(r.Deleted), true)
	}
}

func (a *appointment) writeRow() error {
	s := a.x.rootExtractor().sinks
	if s == nil {
		return nil
	}
	r := a.rec
	parentID := ""
	if a.parent != nil {
		parentID = strconv.Itoa(a.parent.lineID)
	}
	return s.write(archive.KindAppointment, []string{
		strconv.Itoa(a.lineID),
		r.Subject,
		r.Location,
		formatDate(r.Start),
		formatDate(r.End),
		r.Organizer,
		strings.Join(r.Attendees, ", "),
		r.UID,
		parentID,
		strconv.FormatBool(r.Deleted),
		a.f.path,
	})
}
