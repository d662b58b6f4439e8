// Package extracttest provides in-memory stores for exercising the
// extraction engine without a real mailbox format.
package extracttest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wesm/mailextract/internal/extract"
)

// Store is an in-memory store rooted at Root.
type Store struct {
	Root   *Folder
	Closed int
}

// NewStore returns a store whose root folder holds folders.
func NewStore(folders ...*Folder) *Store {
	return &Store{Root: &Folder{FolderName: "root", Folders: folders}}
}

// Constructor returns a constructor that always opens s.
func (s *Store) Constructor() extract.Constructor {
	return func(context.Context, *extract.Extractor) (extract.Store, error) {
		return s, nil
	}
}

// Failing returns a constructor that always fails with err.
func Failing(err error) extract.Constructor {
	return func(context.Context, *extract.Extractor) (extract.Store, error) {
		return nil, err
	}
}

func (s *Store) Folder(_ context.Context, path string) (extract.StoreFolder, error) {
	f := s.Root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		var next *Folder
		for _, c := range f.Folders {
			if c.FolderName == part {
				next = c
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

func (s *Store) Close() error {
	s.Closed++
	return nil
}

// Folder is an in-memory folder. WalkErr and SubfoldersErr simulate store
// read failures.
type Folder struct {
	FolderName    string
	Elements      []extract.ElementSource
	Folders       []*Folder
	WalkErr       error
	SubfoldersErr error
}

// NewFolder returns a folder holding elements.
func NewFolder(name string, elements ...extract.ElementSource) *Folder {
	return &Folder{FolderName: name, Elements: elements}
}

// With appends subfolders and returns f.
func (f *Folder) With(folders ...*Folder) *Folder {
	f.Folders = append(f.Folders, folders...)
	return f
}

func (f *Folder) Name() string { return f.FolderName }
func (f *Folder) HasElements() bool { return len(f.Elements) > 0 || f.WalkErr != nil }
func (f *Folder) HasSubfolders() bool { return len(f.Folders) > 0 || f.SubfoldersErr != nil }

func (f *Folder) WalkElements(_ context.Context, fn func(extract.ElementSource) error) error {
	for _, e := range f.Elements {
		if err := fn(e); err != nil {
			return err
		}
	}
	return f.WalkErr
}

func (f *Folder) Subfolders(context.Context) ([]extract.StoreFolder, error) {
	if f.SubfoldersErr != nil {
		return nil, f.SubfoldersErr
	}
	out := make([]extract.StoreFolder, 0, len(f.Folders))
	for _, c := range f.Folders {
		out = append(out, c)
	}
	return out, nil
}

// Message is an in-memory message. Fail makes the hook of the same name
// (e.g. "Subject", "Bodies") return the mapped error.
type Message struct {
	Subj        string
	ID          string
	Sender      extract.Address
	ToList      []extract.Address
	CcList      []extract.Address
	BccList     []extract.Address
	ReplyToList []extract.Address
	ReturnAddr  extract.Address
	Sent        time.Time
	Received    time.Time
	ParentID    string
	Refs        []string
	Body        extract.Bodies
	Files       []extract.Attachment
	Headers     []extract.HeaderField
	Native      []byte
	Size        int64

	Fail map[string]error

	// OnSubject runs when the engine reads the subject.
	OnSubject func()
}

func (m *Message) fail(hook string) error { return m.Fail[hook] }

func (m *Message) RawSize() int64 { return m.Size }

func (m *Message) Subject() (string, error) {
	if m.OnSubject != nil {
		m.OnSubject()
	}
	return m.Subj, m.fail("Subject")
}

func (m *Message) MessageID() (string, error) { return m.ID, m.fail("MessageID") }
func (m *Message) From() (extract.Address, error) { return m.Sender, m.fail("From") }
func (m *Message) ReplyTo() ([]extract.Address, error) {
	return m.ReplyToList, m.fail("ReplyTo")
}
func (m *Message) ReturnPath() (extract.Address, error) { return m.ReturnAddr, m.fail("ReturnPath") }
func (m *Message) SentDate() (time.Time, error) { return m.Sent, m.fail("SentDate") }
func (m *Message) ReceivedDate() (time.Time, error) { return m.Received, m.fail("ReceivedDate") }
func (m *Message) InReplyTo() (string, error) { return m.ParentID, m.fail("InReplyTo") }
func (m *Message) References() ([]string, error) { return m.Refs, m.fail("References") }
func (m *Message) Bodies() (extract.Bodies, error) { return m.Body, m.fail("Bodies") }
func (m *Message) Attachments() ([]extract.Attachment, error) {
	return m.Files, m.fail("Attachments")
}
func (m *Message) RawHeaders() ([]extract.HeaderField, error) { return m.Headers, m.fail("RawHeaders") }
func (m *Message) NativeBytes() ([]byte, error) { return m.Native, m.fail("NativeBytes") }

func (m *Message) Recipients(kind extract.RecipientKind) ([]extract.Address, error) {
	switch kind {
	case extract.Cc:
		return m.CcList, m.fail("Cc")
	case extract.Bcc:
		return m.BccList, m.fail("Bcc")
	default:
		return m.ToList, m.fail("To")
	}
}

// Contact is an in-memory contact.
type Contact struct {
	Record *extract.Contact
	Size   int64
	Err    error
}

func (c *Contact) RawSize() int64                    { return c.Size }
func (c *Contact) Contact() (*extract.Contact, error) { return c.Record, c.Err }

// Appointment is an in-memory appointment.
type Appointment struct {
	Record *extract.Appointment
	Size   int64
	Err    error
}

func (a *Appointment) RawSize() int64 { return a.Size }
func (a *Appointment) Appointment() (*extract.Appointment, error) {
	return a.Record, a.Err
}

// Date returns a UTC time on the given day at noon.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}
