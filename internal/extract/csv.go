package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wesm/mailextract/internal/archive"
	"github.com/wesm/mailextract/internal/fileutil"
)

// CSV list files and their fixed headers.
var csvLists = []struct {
	kind   archive.Kind
	file   string
	header []string
}{
	{archive.KindMessage, "messages.csv", []string{
		"ID", "Subject", "Folder", "Date", "From", "To", "Cc", "Bcc",
		"MessageID", "InReplyTo", "AttachmentCount", "Size", "Nested",
	}},
	{archive.KindContact, "contacts.csv", []string{
		"ID", "FullName", "GivenName", "Surname", "Organization", "Emails", "Phones", "Folder",
	}},
	{archive.KindAppointment, "appointments.csv", []string{
		"ID", "Subject", "Location", "Start", "End", "Organizer", "Attendees",
		"UID", "ParentID", "Deleted", "Folder",
	}},
}

// CSVFile returns the list file name for an element kind.
func CSVFile(kind archive.Kind) string {
	for _, l := range csvLists {
		if l.kind == kind {
			return l.file
		}
	}
	return ""
}

type sink struct {
	f *os.File
	w *csv.Writer
}

// sinks holds one open CSV list per element kind. Rows are flushed as they
// are written.
type sinks struct {
	byKind map[archive.Kind]*sink
}

func (x *Extractor) openSinks() error {
	if x.parent != nil || !x.opts.ExtractElementsList {
		return nil
	}
	if err := x.closeSinks(); err != nil {
		return err
	}
	if err := fileutil.MkdirPrivate(x.dest); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	enabled := map[archive.Kind]bool{
		archive.KindMessage:     x.opts.ExtractMessages,
		archive.KindContact:     x.opts.ExtractContacts,
		archive.KindAppointment: x.opts.ExtractAppointments,
	}
	s := &sinks{byKind: make(map[archive.Kind]*sink)}
	for _, l := range csvLists {
		if !enabled[l.kind] {
			continue
		}
		f, err := fileutil.CreatePrivate(filepath.Join(x.dest, l.file))
		if err != nil {
			_ = s.close()
			return fmt.Errorf("open %s: %w", l.file, err)
		}
		w := csv.NewWriter(f)
		w.Comma = ';'
		s.byKind[l.kind] = &sink{f: f, w: w}
		if err := s.write(l.kind, l.header); err != nil {
			_ = s.close()
			return err
		}
	}
	x.sinks = s
	return nil
}

func (x *Extractor) closeSinks() error {
	if x.sinks == nil {
		return nil
	}
	err := x.sinks.close()
	x.sinks = nil
	return err
}

func (s *sinks) write(kind archive.Kind, row []string) error {
	k := s.byKind[kind]
	if k == nil {
		return nil
	}
	if err := k.w.Write(row); err != nil {
		return fmt.Errorf("write %s row: %w", kind, err)
	}
	k.w.Flush()
	return k.w.Error()
}

func (s *sinks) close() error {
	var errs []error
	for _, k := range s.byKind {
		k.w.Flush()
		if err := k.w.Error(); err != nil {
			errs = append(errs, err)
		}
		if err := k.f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.byKind = nil
	return errors.Join(errs...)
}
