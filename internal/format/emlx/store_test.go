package emlx_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/mailextract/internal/archive"
	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/emlx"
	"github.com/wesm/mailextract/internal/format/formattest"
	testemail "github.com/wesm/mailextract/internal/testutil/email"
)

const datePlist = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>date-sent</key>
	<real>252460800</real>
</dict>
</plist>`

func writeEmlx(t *testing.T, dir, name string, raw []byte, trailer string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	data := fmt.Sprintf("%d\n%s%s", len(raw), raw, trailer)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestStore_Tree(t *testing.T) {
	mail := filepath.Join(t.TempDir(), "Mail")
	inbox := filepath.Join(mail, "IMAP-jane@example.com", "INBOX.imapmbox", "Messages")
	work := filepath.Join(mail, "Mailboxes", "Work.mbox", "Messages")
	writeEmlx(t, inbox, "10.emlx", testemail.NewMessage().Subject("ten").Bytes(), "")
	writeEmlx(t, inbox, "9.emlx", testemail.NewMessage().Subject("nine").Bytes(), "")
	writeEmlx(t, work, "1.emlx", testemail.NewMessage().Subject("plan").Bytes(), "")
	if err := os.WriteFile(filepath.Join(work, "2.emlx"), []byte("not an emlx"), 0600); err != nil {
		t.Fatal(err)
	}

	res := formattest.Extract(t, "emlx://"+mail, emlx.Register)

	if diff := cmp.Diff([]string{"nine", "ten", "plan"}, res.Values(archive.KindMessage, extract.MetaSubject)); diff != "" {
		t.Errorf("subjects (-want +got):\n%s", diff)
	}
	var folders []string
	for _, n := range res.Nodes(archive.KindFolder) {
		folders = append(folders, n.Name)
	}
	if diff := cmp.Diff([]string{"INBOX", "Work"}, folders); diff != "" {
		t.Errorf("folders (-want +got):\n%s", diff)
	}
}

func TestStore_SingleMailboxWithPlistDate(t *testing.T) {
	box := filepath.Join(t.TempDir(), "Archive.mbox")
	raw := testemail.NewMessage().Date("").Subject("old").Bytes()
	writeEmlx(t, filepath.Join(box, "Messages"), "1.emlx", raw, datePlist)

	res := formattest.Extract(t, "emlx://"+box, emlx.Register)

	if res.Summary.Messages != 1 || res.Summary.Folders != 1 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if want := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC); !res.Summary.Begin.Equal(want) {
		t.Errorf("Begin = %v, want %v", res.Summary.Begin, want)
	}
	if roots := res.Tree.Roots(); len(roots) != 1 || roots[0].Name != "Archive.mbox" {
		t.Errorf("roots = %+v", roots)
	}
}
