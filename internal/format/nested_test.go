package format

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/google/go-cmp/cmp"

	"github.com/wesm/mailextract/internal/archive"
	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/formattest"
	"github.com/wesm/mailextract/internal/format/imap"
	"github.com/wesm/mailextract/internal/testutil"
	testemail "github.com/wesm/mailextract/internal/testutil/email"
)

const teamCard = "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nN:Doe;Jane;;;\r\nEMAIL:jane@example.com\r\nEND:VCARD\r\n"

func registerAll(reg *extract.Registry) { RegisterAll(reg, imap.DefaultSettings()) }

func TestExtract_NestedStores(t *testing.T) {
	inner := testemail.NewMessage().
		Subject("plan").
		Date("Tue, 02 Jan 2024 08:00:00 +0000").
		Body("the plan").
		Bytes()
	outer := testemail.NewMessage().
		Subject("Fwd: plan").
		Date("Wed, 03 Jan 2024 08:00:00 +0000").
		Body("see below").
		WithMessage("plan.eml", inner).
		WithAttachment("team.vcf", "text/vcard", []byte(teamCard)).
		Bytes()

	var buf bytes.Buffer
	w := gombox.NewWriter(&buf)
	mw, err := w.CreateMessage("sender@example.com", time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mw.Write(outer); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := testutil.WriteFile(t, t.TempDir(), "fwd.mbox", buf.Bytes())

	d, err := Descriptor(Registry(imap.DefaultSettings()), path)
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	res := formattest.Extract(t, d, registerAll)

	if diff := cmp.Diff([]string{"Fwd: plan", "plan"}, res.Values(archive.KindMessage, extract.MetaSubject)); diff != "" {
		t.Errorf("messages (-want +got):\n%s", diff)
	}
	if nested := res.Nodes(archive.KindMessage)[1]; nested.Parent == nil || nested.Parent.Kind != archive.KindMessage {
		t.Errorf("forwarded message should hang below its carrier, parent = %+v", nested.Parent)
	}

	containers := res.Nodes(archive.KindContainer)
	if len(containers) != 1 || containers[0].Value(extract.MetaScheme) != "vcard" {
		t.Fatalf("containers = %+v", containers)
	}
	if got := res.Values(archive.KindContact, extract.MetaFullName); len(got) != 1 || got[0] != "Jane Doe" {
		t.Errorf("contacts = %v", got)
	}

	sum := res.Summary
	if sum.Messages != 2 || sum.AttachedMessages != 1 || sum.Contacts != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestExtract_DetectedPaths(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string][]byte{
		"people.vcf": []byte(teamCard),
		"note.eml":   testemail.NewMessage().Subject("note").Bytes(),
	})
	reg := Registry(imap.DefaultSettings())

	for name, kind := range map[string]archive.Kind{"people.vcf": archive.KindContact, "note.eml": archive.KindMessage} {
		t.Run(name, func(t *testing.T) {
			d, err := Descriptor(reg, filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("Descriptor: %v", err)
			}
			res := formattest.Extract(t, d, registerAll)
			if n := len(res.Nodes(kind)); n != 1 {
				t.Errorf("got %d %s nodes, want 1", n, kind)
			}
		})
	}
}
