package extract

import (
	"context"
	"time"
)

// Store is an opened mailbox container. Format adapters implement it.
type Store interface {
	// Folder returns the folder at path, "/"-separated and relative to the
	// store root. The empty path names the root. Missing folders yield an
	// error wrapping ErrNotFound.
	Folder(ctx context.Context, path string) (StoreFolder, error)
	Close() error
}

// StoreFolder is the format-specific side of one folder.
type StoreFolder interface {
	Name() string
	HasElements() bool
	HasSubfolders() bool

	// WalkElements calls fn for each element in store order. An error from
	// fn stops the walk and is returned unchanged.
	WalkElements(ctx context.Context, fn func(ElementSource) error) error

	Subfolders(ctx context.Context) ([]StoreFolder, error)
}

// ElementSource is one extractable unit. Concrete values also implement
// MessageSource, ContactSource or AppointmentSource.
type ElementSource interface {
	// RawSize is the element's size in the store, in bytes.
	RawSize() int64
}

// RecipientKind selects a recipient list.
type RecipientKind int

const (
	To RecipientKind = iota
	Cc
	Bcc
)

func (k RecipientKind) String() string {
	switch k {
	case Cc:
		return "cc"
	case Bcc:
		return "bcc"
	default:
		return "to"
	}
}

// Address is a mailbox with an optional display name.
type Address struct {
	Name  string
	Email string
}

// IsZero reports whether a has neither name nor email.
func (a Address) IsZero() bool { return a.Name == "" && a.Email == "" }

func (a Address) String() string {
	switch {
	case a.Name == "":
		return a.Email
	case a.Email == "":
		return a.Name
	default:
		return a.Name + " <" + a.Email + ">"
	}
}

// Bodies holds the body variants of a message.
type Bodies struct {
	Text string
	HTML string
	RTF  string
}

// IsEmpty reports whether every variant is empty.
func (b Bodies) IsEmpty() bool { return b.Text == "" && b.HTML == "" && b.RTF == "" }

// HeaderField is one raw header line.
type HeaderField struct {
	Key   string
	Value string
}

// Attachment is a payload attached to a message, contact or appointment.
type Attachment struct {
	Name        string
	ContentType string // as declared by the store
	ContentID   string
	Inline      bool
	Created     time.Time
	Modified    time.Time
	Data        []byte

	// Scheme marks the attachment as a nested store of that scheme when the
	// adapter knows it already.
	Scheme string
}

// MessageSource exposes the analysis hooks of one message. Each hook may
// fail on its own; the engine leaves the corresponding field unset.
type MessageSource interface {
	ElementSource

	Subject() (string, error)
	MessageID() (string, error)
	From() (Address, error)
	Recipients(kind RecipientKind) ([]Address, error)
	ReplyTo() ([]Address, error)
	ReturnPath() (Address, error)
	SentDate() (time.Time, error)
	ReceivedDate() (time.Time, error)
	InReplyTo() (string, error)
	References() ([]string, error)

	Bodies() (Bodies, error)
	Attachments() ([]Attachment, error)

	// RawHeaders returns the original header lines, if the store keeps them.
	RawHeaders() ([]HeaderField, error)

	// NativeBytes returns the message's RFC 5322 form when the store holds
	// one, or nil when it must be synthesized.
	NativeBytes() ([]byte, error)
}

// MessageFlags carries optional store-specific markers.
type MessageFlags struct {
	Importance  string
	Sensitivity string
}

// FlaggedMessageSource is implemented by stores that record importance or
// sensitivity.
type FlaggedMessageSource interface {
	MessageSource
	Flags() (MessageFlags, error)
}

// Contact is the analyzed record of one contact.
type Contact struct {
	FullName     string
	GivenName    string
	Surname      string
	Nickname     string
	Organization string
	JobTitle     string
	Emails       []string
	Phones       []string
	Addresses    []string
	Birthday     time.Time
	Note         string

	Picture     []byte
	PictureType string

	Attachments []Attachment
}

// ContactSource exposes one contact.
type ContactSource interface {
	ElementSource
	Contact() (*Contact, error)
}

// Appointment is the analyzed record of one calendar entry. Exceptions are
// full appointments overriding single occurrences of a recurring one.
type Appointment struct {
	Subject     string
	Location    string
	Start       time.Time
	End         time.Time
	Organizer   string
	Attendees   []string
	Description string
	Recurrence  string
	UID         string
	Sequence    int
	Deleted     bool

	Exceptions  []*Appointment
	Attachments []Attachment
}

// AppointmentSource exposes one appointment.
type AppointmentSource interface {
	ElementSource
	Appointment() (*Appointment, error)
}

// Sniffer guesses the content type of raw bytes.
type Sniffer interface {
	Sniff(data []byte) (string, error)
}

// TextExtractor renders a document as plain text.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}
