package tnef

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/teamwork/tnef"
)

func TestIsTNEFType(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"application/ms-tnef", true},
		{" Application/VND.MS-TNEF ", true},
		{"application/octet-stream", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsTNEFType(tc.in); got != tc.want {
			t.Errorf("IsTNEFType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDecodeRejectsNonTNEF(t *testing.T) {
	if _, err := Decode([]byte("hello world")); err == nil {
		t.Fatal("expected error for non-TNEF input")
	}
}

func TestLooksLikeTNEF(t *testing.T) {
	if !LooksLikeTNEF([]byte{0x78, 0x9f, 0x3e, 0x22, 0x01, 0x00}) {
		t.Error("signature not recognized")
	}
	if LooksLikeTNEF([]byte{0x78, 0x9f}) {
		t.Error("truncated signature recognized")
	}
}

func TestFromData(t *testing.T) {
	compressed, err := hex.DecodeString("2d0000002b0000004c5a4675f1c5c7a703000a007263706731323542320af32068656c0900206277" +
		"05b06c647d0a800fa0")
	if err != nil {
		t.Fatal(err)
	}
	d := &tnef.Data{
		Body: []byte("plain"),
		Attributes: []tnef.MAPIAttribute{
			{Name: 0x0037, Data: []byte("subject")},
			{Name: propRTFCompressed, Data: compressed},
		},
		Attachments: []*tnef.Attachment{
			{Title: "report.pdf\x00", Data: []byte("%PDF-1.4")},
			{Title: "", Data: []byte("x")},
			{Title: "broken.bin", Data: nil},
		},
	}

	res := fromData(d)
	if res.Text != "plain" {
		t.Errorf("Text = %q, want %q", res.Text, "plain")
	}
	if !strings.Contains(res.RTF, "hello world") {
		t.Errorf("RTF = %q, want decompressed body", res.RTF)
	}
	if len(res.Attachments) != 3 {
		t.Fatalf("got %d attachments, want 3", len(res.Attachments))
	}
	if res.Attachments[0].Name != "report.pdf" {
		t.Errorf("Attachments[0].Name = %q, want report.pdf", res.Attachments[0].Name)
	}
	if res.Attachments[1].Name != "attachment-2" {
		t.Errorf("Attachments[1].Name = %q, want attachment-2", res.Attachments[1].Name)
	}
	if res.Complete() {
		t.Error("Complete() = true with an empty attachment")
	}
}

func TestFromDataCorruptRTF(t *testing.T) {
	d := &tnef.Data{
		Attributes: []tnef.MAPIAttribute{{Name: propRTFCompressed, Data: []byte("garbage")}},
	}
	res := fromData(d)
	if res.RTF != "" {
		t.Errorf("RTF = %q, want empty", res.RTF)
	}
	if len(res.Problems) != 1 {
		t.Errorf("Problems = %v, want one entry", res.Problems)
	}
	if !res.Complete() {
		t.Error("Complete() = false with no attachments")
	}
}
