package extract_test

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/wesm/mailextract/internal/archive"
	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/extract/extracttest"
)

const testStoreType = "application/x-test-store"

type fixture struct {
	reg  *extract.Registry
	mem  *archive.Memory
	dest string
	opts extract.Options
}

func newFixture(t *testing.T, store *extracttest.Store) *fixture {
	t.Helper()
	reg := extract.NewRegistry()
	reg.Register("", "test", true, store.Constructor())
	opts := extract.DefaultOptions()
	opts.ExtractElementsList = true
	return &fixture{reg: reg, mem: archive.NewMemory(), dest: t.TempDir(), opts: opts}
}

func (f *fixture) open(t *testing.T) *extract.Extractor {
	t.Helper()
	x, err := extract.New(context.Background(), f.reg, "test://host/store", "", f.dest, f.opts,
		extract.WithWriter(f.mem),
		extract.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = x.Close() })
	return x
}

func (f *fixture) extract(t *testing.T) *extract.Summary {
	t.Helper()
	sum, err := f.open(t).ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	return sum
}

func (f *fixture) readCSV(t *testing.T, name string) [][]string {
	t.Helper()
	file, err := os.Open(filepath.Join(f.dest, name))
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer file.Close()
	r := csv.NewReader(file)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return rows
}

func nodesOfKind(mem *archive.Memory, kind archive.Kind) []*archive.MemoryNode {
	var out []*archive.MemoryNode
	mem.Walk(func(n *archive.MemoryNode) {
		if n.Kind == kind {
			out = append(out, n)
		}
	})
	return out
}

func mailbox() *extracttest.Store {
	inbox := extracttest.NewFolder("Inbox",
		&extracttest.Message{
			Subj:   "First",
			ID:     "<first@example.com>",
			Sender: extract.Address{Name: "Alice", Email: "alice@example.com"},
			ToList: []extract.Address{{Email: "bob@example.com"}},
			Sent:   extracttest.Date(2020, time.March, 1),
			Body:   extract.Bodies{Text: "hello"},
			Size:   100,
		},
		&extracttest.Message{
			Subj:   "Second",
			ID:     "second@example.com",
			Sender: extract.Address{Email: "bob@example.com"},
			Sent:   extracttest.Date(2021, time.June, 5),
			Body:   extract.Bodies{HTML: "<p>hi</p>"},
			Size:   200,
		},
	)
	contacts := extracttest.NewFolder("Contacts",
		&extracttest.Contact{Size: 10, Record: &extract.Contact{
			GivenName: "Carol",
			Surname:   "Smith",
			Emails:    []string{"carol@example.com"},
		}},
	)
	calendar := extracttest.NewFolder("Calendar",
		&extracttest.Appointment{Size: 20, Record: &extract.Appointment{
			Subject:    "Standup",
			UID:        "uid-1",
			Start:      extracttest.Date(2021, time.January, 4),
			Recurrence: "FREQ=DAILY",
			Exceptions: []*extract.Appointment{
				{Subject: "Standup (moved)", UID: "uid-1", Start: extracttest.Date(2021, time.January, 5)},
				{UID: "uid-1", Deleted: true},
			},
		}},
	)
	return extracttest.NewStore(inbox, contacts, calendar)
}

func TestExtractAll_Summary(t *testing.T) {
	f := newFixture(t, mailbox())
	sum := f.extract(t)

	got := *sum
	got.Duration = 0
	want := extract.Summary{
		Folders:      4,
		Elements:     4,
		Messages:     2,
		Contacts:     1,
		Appointments: 1,
		RawBytes:     330,
		Begin:        extracttest.Date(2020, time.March, 1),
		End:          extracttest.Date(2021, time.June, 5),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractAll_Tree(t *testing.T) {
	f := newFixture(t, mailbox())
	f.extract(t)

	roots := f.mem.Roots()
	if len(roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(roots))
	}
	root := roots[0]
	if root.Kind != archive.KindRoot || root.Name != "store" {
		t.Errorf("root = %s %q, want root \"store\"", root.Kind, root.Name)
	}
	if got := root.Value(extract.MetaScheme); got != "test" {
		t.Errorf("root scheme = %q", got)
	}
	if got := root.Value(extract.MetaStartDate); got != "2020-03-01T12:00:00Z" {
		t.Errorf("root start date = %q", got)
	}

	var names []string
	for _, c := range root.ChildrenOfKind(archive.KindFolder) {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"Inbox", "Contacts", "Calendar"}, names); diff != "" {
		t.Errorf("folders (-want +got):\n%s", diff)
	}

	msgs := nodesOfKind(f.mem, archive.KindMessage)
	if len(msgs) != 2 {
		t.Fatalf("got %d message nodes, want 2", len(msgs))
	}
	first := msgs[0]
	if got := first.Value(extract.MetaMessageID); got != "first@example.com" {
		t.Errorf("message id = %q, want angle brackets trimmed", got)
	}
	if got := first.Value(extract.MetaFrom); got != "Alice <alice@example.com>" {
		t.Errorf("from = %q", got)
	}
	if got := first.Value(extract.MetaTextContent); got != "hello" {
		t.Errorf("text content = %q", got)
	}
	if obj := first.Object(archive.ObjectBinaryMaster); obj == nil || !strings.HasSuffix(obj.Filename, ".eml") {
		t.Errorf("message has no .eml binary master: %+v", first.Objects)
	}
	if got := msgs[1].Value(extract.MetaTextContent); got != "hi" {
		t.Errorf("html text content = %q, want stripped html", got)
	}

	appts := nodesOfKind(f.mem, archive.KindAppointment)
	if len(appts) != 3 {
		t.Fatalf("got %d appointment nodes, want 3", len(appts))
	}
	parent := appts[0]
	if kids := parent.ChildrenOfKind(archive.KindAppointment); len(kids) != 2 {
		t.Errorf("exceptions under parent = %d, want 2", len(kids))
	} else if got := kids[1].Value(extract.MetaDeleted); got != "true" {
		t.Errorf("deleted exception flag = %q", got)
	}

	contacts := nodesOfKind(f.mem, archive.KindContact)
	if len(contacts) != 1 || contacts[0].Name != "Carol Smith" {
		t.Errorf("contact nodes = %+v", contacts)
	}
}

func TestExtractAll_SystemIDsUnique(t *testing.T) {
	f := newFixture(t, mailbox())
	f.extract(t)

	seen := make(map[string]string)
	f.mem.Walk(func(n *archive.MemoryNode) {
		id := n.Value(extract.MetaSystemID)
		if id == "" {
			t.Errorf("%s %q has no SystemId", n.Kind, n.Name)
			return
		}
		if prev, ok := seen[id]; ok {
			t.Errorf("SystemId %s used by %s and %q", id, prev, n.Name)
		}
		seen[id] = n.Name
	})
	if _, ok := seen["1"]; !ok {
		t.Error("identifiers do not start at 1")
	}
}

func TestExtractAll_CSV(t *testing.T) {
	f := newFixture(t, mailbox())
	f.extract(t)

	msgs := f.readCSV(t, "messages.csv")
	if len(msgs) != 3 {
		t.Fatalf("messages.csv has %d rows, want header + 2", len(msgs))
	}
	if diff := cmp.Diff([]string{
		"ID", "Subject", "Folder", "Date", "From", "To", "Cc", "Bcc",
		"MessageID", "InReplyTo", "AttachmentCount", "Size", "Nested",
	}, msgs[0]); diff != "" {
		t.Errorf("messages header (-want +got):\n%s", diff)
	}
	if got := msgs[1][:4]; !cmp.Equal(got, []string{"1", "First", "root/Inbox", "2020-03-01T12:00:00Z"}) {
		t.Errorf("first message row = %q", got)
	}
	if got := msgs[2][0]; got != "2" {
		t.Errorf("second message id = %q", got)
	}

	appts := f.readCSV(t, "appointments.csv")
	if len(appts) != 4 {
		t.Fatalf("appointments.csv has %d rows, want header + 3", len(appts))
	}
	// ID;...;UID;ParentID;Deleted;Folder
	if got := appts[1][8]; got != "" {
		t.Errorf("parent row ParentID = %q, want empty", got)
	}
	for _, row := range appts[2:] {
		if row[8] != "1" {
			t.Errorf("exception %s ParentID = %q, want 1", row[0], row[8])
		}
	}
	if got := appts[3][9]; got != "true" {
		t.Errorf("deleted exception row = %q", got)
	}

	contacts := f.readCSV(t, "contacts.csv")
	if len(contacts) != 2 || contacts[1][1] != "Carol Smith" {
		t.Errorf("contacts.csv = %q", contacts)
	}
}

func TestExtractAll_DisabledKindsHaveNoList(t *testing.T) {
	f := newFixture(t, mailbox())
	f.opts.ExtractContacts = false
	sum := f.extract(t)

	if sum.Contacts != 0 || sum.Elements != 3 {
		t.Errorf("summary = %+v, want contacts skipped", sum)
	}
	if _, err := os.Stat(filepath.Join(f.dest, "contacts.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("contacts.csv exists for disabled kind: %v", err)
	}
}

func TestListAll_MatchesExtract(t *testing.T) {
	f := newFixture(t, mailbox())
	x := f.open(t)

	quick, err := x.ListAll(context.Background(), false)
	if err != nil {
		t.Fatalf("ListAll(false): %v", err)
	}
	full, err := x.ListAll(context.Background(), true)
	if err != nil {
		t.Fatalf("ListAll(true): %v", err)
	}
	extracted, err := x.ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	ignore := func(s *extract.Summary) extract.Summary {
		c := *s
		c.Duration = 0
		return c
	}
	if diff := cmp.Diff(ignore(extracted), ignore(full)); diff != "" {
		t.Errorf("list with stats differs from extraction (-extract +list):\n%s", diff)
	}
	if quick.Elements != extracted.Elements || quick.Folders != extracted.Folders || quick.Messages != extracted.Messages {
		t.Errorf("quick list = %v, extraction = %v", quick, extracted)
	}
	if !quick.Begin.IsZero() {
		t.Errorf("quick list analyzed dates: %v", quick.Begin)
	}
	if full.Begin.IsZero() {
		t.Error("list with stats did not widen the date range")
	}

	// Line ids restart on every run.
	if rows := f.readCSV(t, "messages.csv"); rows[1][0] != "1" {
		t.Errorf("first line id after rerun = %q", rows[1][0])
	}
}

func TestListAll_WritesOnlyElementLists(t *testing.T) {
	f := newFixture(t, mailbox())
	if _, err := f.open(t).ListAll(context.Background(), true); err != nil {
		t.Fatalf("ListAll(true): %v", err)
	}
	nodes := 0
	f.mem.Walk(func(*archive.MemoryNode) { nodes++ })
	if nodes != 0 {
		t.Errorf("list wrote %d archival nodes", nodes)
	}
	if rows := f.readCSV(t, "messages.csv"); len(rows) < 2 {
		t.Errorf("messages.csv rows = %d, want header and elements", len(rows))
	}
}

func TestExtractAll_EmptyFolderPolicy(t *testing.T) {
	store := func() *extracttest.Store {
		return extracttest.NewStore(
			extracttest.NewFolder("Empty"),
			extracttest.NewFolder("Deep").With(extracttest.NewFolder("Deeper")),
			extracttest.NewFolder("Full", &extracttest.Message{Subj: "x"}),
		)
	}
	tests := []struct {
		name        string
		drop        bool
		keepDeep    bool
		wantFolders []string
	}{
		{"keep all", false, false, []string{"Empty", "Deeper", "Deep", "Full"}},
		{"drop empty", true, false, []string{"Full"}},
		{"keep only deep", false, true, []string{"Deeper", "Deep", "Full"}},
		// With both flags set, drop removes empty folders at every level,
		// so "Deep" goes once "Deeper" is dropped.
		{"drop wins over keep deep", true, true, []string{"Full"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, store())
			f.opts.DropEmptyFolders = tt.drop
			f.opts.KeepOnlyDeepEmptyFolders = tt.keepDeep
			sum := f.extract(t)

			var got []string
			for _, n := range nodesOfKind(f.mem, archive.KindFolder) {
				got = append(got, n.Name)
			}
			if diff := cmp.Diff(tt.wantFolders, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
				t.Errorf("kept folders (-want +got):\n%s", diff)
			}
			if sum.Folders != len(tt.wantFolders)+1 {
				t.Errorf("Folders = %d, want %d", sum.Folders, len(tt.wantFolders)+1)
			}
		})
	}
}

func TestExtractAll_Cancelled(t *testing.T) {
	f := newFixture(t, mailbox())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.open(t).ExtractAll(ctx)
	if !errors.Is(err, extract.ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want cancellation wrapping context.Canceled", err)
	}
}

func TestExtractAll_CancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	second := &extracttest.Message{Subj: "never"}
	store := extracttest.NewStore(extracttest.NewFolder("Inbox",
		&extracttest.Message{Subj: "first", OnSubject: cancel},
		second,
	))
	f := newFixture(t, store)

	_, err := f.open(t).ExtractAll(ctx)
	if !extract.IsCancelled(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	for _, n := range nodesOfKind(f.mem, archive.KindMessage) {
		if n.Name == "never" {
			t.Error("element after cancellation was extracted")
		}
	}
}

func TestExtractAll_FailingHooks(t *testing.T) {
	boom := errors.New("boom")
	store := extracttest.NewStore(extracttest.NewFolder("Inbox",
		&extracttest.Message{
			Subj: "lost",
			ID:   "lost-too",
			Sent: extracttest.Date(2022, time.May, 1),
			Fail: map[string]error{"Subject": boom, "MessageID": boom},
		},
		&extracttest.Contact{Err: boom},
	))
	f := newFixture(t, store)
	sum := f.extract(t)

	if sum.Elements != 2 || sum.Messages != 1 || sum.Contacts != 1 {
		t.Errorf("summary = %+v, want failed elements counted", sum)
	}
	msgs := nodesOfKind(f.mem, archive.KindMessage)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if got := msgs[0].Value(extract.MetaSubject); got != extract.NoSubject {
		t.Errorf("subject = %q, want placeholder", got)
	}
	if got := msgs[0].Value(extract.MetaMessageID); got != extract.NoMessageID {
		t.Errorf("message id = %q, want placeholder", got)
	}
	if got := msgs[0].Value(extract.MetaSentDate); got == "" {
		t.Error("sent date lost after unrelated hook failures")
	}
	if n := len(nodesOfKind(f.mem, archive.KindContact)); n != 0 {
		t.Errorf("failed contact produced %d nodes", n)
	}
}

func TestExtractAll_FolderReadFailure(t *testing.T) {
	broken := extracttest.NewFolder("Broken", &extracttest.Message{Subj: "ok"})
	broken.WalkErr = errors.New("corrupt index")
	f := newFixture(t, extracttest.NewStore(broken, extracttest.NewFolder("Fine", &extracttest.Message{Subj: "fine"})))
	sum := f.extract(t)

	if sum.Messages != 2 {
		t.Errorf("Messages = %d, want both folders walked", sum.Messages)
	}
}

func TestExtractAll_Attachments(t *testing.T) {
	created := extracttest.Date(2020, time.January, 1)
	modified := extracttest.Date(2020, time.February, 1)
	msg := &extracttest.Message{
		Subj: "with files",
		Body: extract.Bodies{Text: "message body", HTML: `<p>message body <img src="cid:logo"></p>`},
		Files: []extract.Attachment{
			{Name: "notes.txt", ContentType: "text/plain; charset=utf-8", Data: []byte("meeting notes"), Created: created, Modified: modified},
			{Name: "logo.png", ContentType: "image/png", ContentID: "<logo>", Inline: true, Data: []byte("\x89PNG\r\n\x1a\nrest"), Created: created},
			{Name: "agenda.txt", ContentType: "text/plain", ContentID: "agenda", Inline: true, Data: []byte("inline attachment text")},
			{Name: "evil.lnk", ContentType: "application/octet-stream", Data: []byte{0x4c, 0, 0, 0}},
		},
	}

	for _, model := range []int{extract.ModelV1, extract.ModelV2} {
		f := newFixture(t, extracttest.NewStore(extracttest.NewFolder("Inbox", msg)))
		f.opts.OutputModelVersion = model
		f.opts.ExtractAttachmentTextAsMetadata = true
		f.extract(t)

		m := nodesOfKind(f.mem, archive.KindMessage)[0]
		if got := m.Value(extract.MetaAttachmentCount); got != "4" {
			t.Errorf("v%d: attachment count = %q", model, got)
		}
		if diff := cmp.Diff([]string{"message body"}, m.Values(extract.MetaTextContent)); diff != "" {
			t.Errorf("v%d: message text (-want +got):\n%s", model, diff)
		}
		if m.Object(archive.ObjectInline) != nil {
			t.Errorf("v%d: inline bytes stored on the message node", model)
		}

		atts := m.ChildrenOfKind(archive.KindAttachment)
		if len(atts) != 4 {
			t.Fatalf("v%d: %d attachment nodes, want one per attachment", model, len(atts))
		}

		notes := atts[0]
		if got := notes.Value(extract.MetaDate); got != "2020-02-01T12:00:00Z" {
			t.Errorf("v%d: attachment date = %q, want the later date", model, got)
		}
		if got := notes.Value(extract.MetaMIMEType); got != "text/plain" {
			t.Errorf("v%d: mime type = %q", model, got)
		}
		if got := notes.Value(extract.MetaTextContent); got != "meeting notes" {
			t.Errorf("v%d: attachment text = %q", model, got)
		}
		if notes.Value(extract.MetaInline) != "" || notes.Object(archive.ObjectBinaryMaster) == nil {
			t.Errorf("v%d: file attachment = %+v", model, notes.Metadata())
		}

		logo := atts[1]
		got := []string{logo.Value(extract.MetaFilename), logo.Value(extract.MetaMIMEType), logo.Value(extract.MetaContentID), logo.Value(extract.MetaDate)}
		if diff := cmp.Diff([]string{"logo.png", "image/png", "logo", "2020-01-01T12:00:00Z"}, got); diff != "" {
			t.Errorf("v%d: inline metadata (-want +got):\n%s", model, diff)
		}
		if got := atts[2].Value(extract.MetaTextContent); got != "inline attachment text" {
			t.Errorf("v%d: inline attachment text = %q", model, got)
		}

		switch model {
		case extract.ModelV1:
			if logo.Value(extract.MetaInline) != "" || logo.Object(archive.ObjectBinaryMaster) == nil {
				t.Errorf("v1: inline attachment should be a plain file node: %+v", logo.Metadata())
			}
		case extract.ModelV2:
			obj := logo.Object(archive.ObjectInline)
			if logo.Value(extract.MetaInline) != "true" || obj == nil || obj.Filename != "logo.png" || obj.Version != 2 {
				t.Errorf("v2: inline node = %+v, object = %+v", logo.Metadata(), obj)
			}
		}

		if got := atts[3].Value(extract.MetaFilename); got != "evil.lnk.bin" {
			t.Errorf("v%d: shortcut renamed to %q", model, got)
		}
	}
}

func TestExtractAll_NestedContainer(t *testing.T) {
	inner := extracttest.NewStore(extracttest.NewFolder("Archived",
		&extracttest.Message{Subj: "old", Sent: extracttest.Date(2010, time.July, 7), Size: 5},
	))
	outer := extracttest.NewStore(extracttest.NewFolder("Inbox",
		&extracttest.Message{
			Subj: "carrier",
			Sent: extracttest.Date(2020, time.July, 7),
			Files: []extract.Attachment{
				{Name: "backup.store", ContentType: testStoreType, Data: []byte("inner")},
			},
			Size: 50,
		},
	))
	f := newFixture(t, outer)
	f.reg.Register(testStoreType, "nested", true, inner.Constructor())
	sum := f.extract(t)

	if sum.Messages != 2 || sum.AttachedMessages != 1 || sum.Elements != 2 || sum.RawBytes != 55 {
		t.Errorf("summary = %+v", sum)
	}
	// root, Inbox, nested root, Archived
	if sum.Folders != 4 {
		t.Errorf("Folders = %d, want 4", sum.Folders)
	}
	if want := extracttest.Date(2010, time.July, 7); !sum.Begin.Equal(want) {
		t.Errorf("Begin = %v, want nested message date %v", sum.Begin, want)
	}
	if inner.Closed != 1 {
		t.Errorf("nested store closed %d times", inner.Closed)
	}

	carrier := nodesOfKind(f.mem, archive.KindMessage)[0]
	containers := carrier.ChildrenOfKind(archive.KindContainer)
	if len(containers) != 1 {
		t.Fatalf("got %d container nodes under carrier", len(containers))
	}
	if got := containers[0].Value(extract.MetaScheme); got != "nested" {
		t.Errorf("container scheme = %q", got)
	}
	if len(carrier.ChildrenOfKind(archive.KindAttachment)) != 0 {
		t.Error("nested store also written as a file")
	}

	inbox := f.mem.Roots()[0].ChildrenOfKind(archive.KindFolder)[0]
	if got := inbox.Value(extract.MetaStartDate); got != "2010-07-07T12:00:00Z" {
		t.Errorf("outer folder start = %q, want widened by nested message", got)
	}

	rows := f.readCSV(t, "messages.csv")
	if len(rows) != 3 {
		t.Fatalf("messages.csv rows = %d", len(rows))
	}
	if rows[1][12] != "false" || rows[2][12] != "true" {
		t.Errorf("nested column = %q, %q", rows[1][12], rows[2][12])
	}
	if rows[2][2] != "root/Inbox/backup.store/Archived" {
		t.Errorf("nested folder path = %q", rows[2][2])
	}
}

func TestExtractAll_NestedMessage(t *testing.T) {
	inner := &extracttest.Store{Root: extracttest.NewFolder("forwarded.eml",
		&extracttest.Message{Subj: "forwarded", Size: 7},
	)}
	outer := extracttest.NewStore(extracttest.NewFolder("Inbox",
		&extracttest.Message{Subj: "fwd", Files: []extract.Attachment{
			{Name: "forwarded.eml", ContentType: "message/rfc822", Data: []byte("Subject: forwarded\r\n\r\n")},
		}},
	))
	f := newFixture(t, outer)
	f.reg.Register("message/rfc822", "eml", false, inner.Constructor())
	sum := f.extract(t)

	if sum.Folders != 2 {
		t.Errorf("Folders = %d, want the nested root absorbed", sum.Folders)
	}
	if sum.AttachedMessages != 1 {
		t.Errorf("AttachedMessages = %d", sum.AttachedMessages)
	}
	carrier := nodesOfKind(f.mem, archive.KindMessage)[0]
	nested := carrier.ChildrenOfKind(archive.KindMessage)
	if len(nested) != 1 || nested[0].Value(extract.MetaSubject) != "forwarded" {
		t.Errorf("nested message not under its carrier: %+v", carrier.Children)
	}
}

func TestExtractAll_NestedFallback(t *testing.T) {
	outer := extracttest.NewStore(extracttest.NewFolder("Inbox",
		&extracttest.Message{Subj: "carrier", Files: []extract.Attachment{
			{Name: "broken.store", ContentType: testStoreType, Data: []byte("junk")},
			{Name: "mystery.bin", Scheme: "unregistered", Data: []byte("junk")},
		}},
	))
	f := newFixture(t, outer)
	f.reg.Register(testStoreType, "nested", true, extracttest.Failing(errors.New("not a store")))
	sum := f.extract(t)

	if sum.AttachedMessages != 0 || sum.Folders != 2 {
		t.Errorf("summary = %+v", sum)
	}
	carrier := nodesOfKind(f.mem, archive.KindMessage)[0]
	var names []string
	for _, a := range carrier.ChildrenOfKind(archive.KindAttachment) {
		names = append(names, a.Value(extract.MetaFilename))
	}
	if diff := cmp.Diff([]string{"broken.store", "mystery.bin"}, names); diff != "" {
		t.Errorf("fallback files (-want +got):\n%s", diff)
	}
}

func TestExtractAll_RootFolderPath(t *testing.T) {
	f := newFixture(t, mailbox())
	x, err := extract.New(context.Background(), f.reg, "test://host/store", "/Inbox/", f.dest, f.opts, extract.WithWriter(f.mem))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer x.Close()
	sum, err := x.ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if sum.Messages != 2 || sum.Contacts != 0 || sum.Folders != 1 {
		t.Errorf("summary = %+v", sum)
	}

	// A missing root folder is reported when walking.
	y, err := extract.New(context.Background(), f.reg, "test://host/store", "Missing", f.dest, f.opts, extract.WithWriter(f.mem))
	if err != nil {
		t.Fatalf("New with missing folder: %v", err)
	}
	defer y.Close()
	if _, err := y.ListAll(context.Background(), false); !errors.Is(err, extract.ErrNotFound) {
		t.Errorf("ListAll on missing folder: %v, want ErrNotFound", err)
	}
}

func TestNew_Errors(t *testing.T) {
	reg := extract.NewRegistry()
	reg.Register("", "broken", false, extracttest.Failing(errors.New("cannot open")))
	opts := extract.DefaultOptions()

	tests := []struct {
		name       string
		descriptor string
		opts       extract.Options
		want       error
	}{
		{"unknown scheme", "nope://x/y", opts, extract.ErrUnknownScheme},
		{"construction failure", "broken://x/y", opts, extract.ErrConstructionFailed},
		{"malformed descriptor", "no-scheme", opts, extract.ErrMalformedDescriptor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extract.New(context.Background(), reg, tt.descriptor, "", t.TempDir(), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	bad := opts
	bad.NamesLength = 0
	if _, err := extract.New(context.Background(), reg, "broken://x", "", t.TempDir(), bad); err == nil {
		t.Error("invalid options accepted")
	}
}

func TestExtractor_NextIdentifier(t *testing.T) {
	f := newFixture(t, mailbox())
	x := f.open(t)
	for want := int64(1); want <= 3; want++ {
		if got := x.NextIdentifier(); got != want {
			t.Fatalf("NextIdentifier = %d, want %d", got, want)
		}
	}
}
