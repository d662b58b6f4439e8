package extract

import (
	"fmt"
	"time"
)

// Summary reports what an extraction or listing saw. Counts include every
// nested store.
type Summary struct {
	Folders          int
	Elements         int
	Messages         int
	Contacts         int
	Appointments     int
	AttachedMessages int
	RawBytes         int64

	// Begin and End bound the sent dates of all messages; zero when no
	// dated message was seen.
	Begin time.Time
	End   time.Time

	Duration time.Duration
}

// LogAttrs returns the summary as slog key/value pairs.
func (s Summary) LogAttrs() []any {
	args := []any{
		"folders", s.Folders,
		"elements", s.Elements,
		"messages", s.Messages,
		"contacts", s.Contacts,
		"appointments", s.Appointments,
		"attached_messages", s.AttachedMessages,
		"raw_bytes", s.RawBytes,
		"duration", s.Duration.Round(time.Millisecond),
	}
	if !s.Begin.IsZero() {
		args = append(args, "begin", s.Begin.Format(time.RFC3339), "end", s.End.Format(time.RFC3339))
	}
	return args
}

func (s Summary) String() string {
	return fmt.Sprintf("%d folders, %d elements (%d messages, %d contacts, %d appointments), %d attached messages, %d bytes",
		s.Folders, s.Elements, s.Messages, s.Contacts, s.Appointments, s.AttachedMessages, s.RawBytes)
}
