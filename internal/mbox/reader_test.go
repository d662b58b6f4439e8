package mbox

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func mboxText(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n"))
}

// readAll returns the raw text of every message.
func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	for {
		m, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, string(m.Raw))
	}
}

func TestReader_Splits(t *testing.T) {
	tests := []struct {
		name string
		sep  [2]string
	}{
		{"ctime", [2]string{"From a@example.com Mon Jan 1 00:00:00 2024", "From a@example.com Mon Jan 1 00:00:01 2024"}},
		{"named zone", [2]string{"From a@example.com Mon Jan 1 00:00:00 MST 2024", "From a@example.com Mon Jan 1 00:00:01 MST 2024"}},
		{"remote from", [2]string{"From a@example.com Mon Jan 1 00:00:00 2024 remote from mx", "From a@example.com Mon Jan 1 00:00:01 2024 remote from mx"}},
		{"no seconds", [2]string{"From a@example.com Mon Jan 1 00:00 2024", "From a@example.com Mon Jan 1 00:01 2024"}},
		{"crlf", [2]string{"From a@example.com Mon Jan 1 00:00:00 2024\r", "From a@example.com Mon Jan 1 00:00:01 2024\r"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(mboxText(
				tt.sep[0], "Subject: One", "", "Body1", "",
				tt.sep[1], "Subject: Two", "", "Body2", "",
			))
			got := readAll(t, r)
			if len(got) != 2 {
				t.Fatalf("got %d messages, want 2: %q", len(got), got)
			}
			if !strings.Contains(got[0], "Subject: One") || !strings.Contains(got[1], "Subject: Two") {
				t.Errorf("messages = %q", got)
			}
		})
	}
}

func TestReader_Unescape(t *testing.T) {
	lines := []string{
		"From sender@example.com Mon Jan 1 00:00:00 2024",
		"Subject: One",
		"",
		">From quoted",
		">>From twice",
		"> From not an escape",
		"",
	}

	got := readAll(t, NewReader(mboxText(lines...)))
	want := []string{"Subject: One\n\nFrom quoted\n>From twice\n> From not an escape\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unescaped (-want +got):\n%s", diff)
	}

	got = readAll(t, NewReader(mboxText(lines...), KeepFromEscapes()))
	want = []string{"Subject: One\n\n>From quoted\n>>From twice\n> From not an escape\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kept (-want +got):\n%s", diff)
	}
}

func TestReader_BodyFromLinesStay(t *testing.T) {
	got := readAll(t, NewReader(mboxText(
		"From sender@example.com Mon Jan 1 00:00:00 2024",
		"Subject: One",
		"",
		"From this is not a separator",
		"From b@example.com whenever",
		"",
	)))
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	for _, want := range []string{"From this is not a separator\n", "From b@example.com whenever\n"} {
		if !strings.Contains(got[0], want) {
			t.Errorf("body lost %q:\n%s", want, got[0])
		}
	}
}

func TestReader_LongLines(t *testing.T) {
	long := strings.Repeat("a", 100_000)
	got := readAll(t, NewReader(mboxText(
		"From sender@example.com Mon Jan 1 00:00:00 2024",
		"X-Long: "+long,
		"",
		"Body",
	)))
	if len(got) != 1 || !strings.Contains(got[0], "X-Long: "+long+"\n") {
		t.Fatalf("long header line not kept intact")
	}
}

func TestReader_PreambleAndEmpty(t *testing.T) {
	got := readAll(t, NewReader(mboxText(
		"garbage before the first separator",
		"From sender@example.com Mon Jan 1 00:00:00 2024",
		"Subject: One",
	)))
	if diff := cmp.Diff([]string{"Subject: One"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if got := readAll(t, NewReader(strings.NewReader(""))); len(got) != 0 {
		t.Errorf("empty stream gave %d messages", len(got))
	}
}

func TestReader_SeparatorDate(t *testing.T) {
	r := NewReader(mboxText(
		"From a@example.com Mon Jan 1 10:30:00 2024",
		"Subject: dated",
		"",
		"From a@example.com Mon Jan 1 10:30:00 FOO 2024",
		"Subject: unknown zone",
		"",
	))
	var dates []time.Time
	for {
		m, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		dates = append(dates, m.Date)
	}
	want := []time.Time{time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), {}}
	if diff := cmp.Diff(want, dates); diff != "" {
		t.Errorf("dates (-want +got):\n%s", diff)
	}
}

func TestLooksLikeMbox(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"separator", "From a@b Sat Jan 1 00:00:00 2024\nSubject: x\n", true},
		{"separator only", "From a@b Sat Jan 1 00:00:00 2024", true},
		{"header", "From: a@b\nSubject: x\n", false},
		{"prose", "From here on we go\n", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeMbox([]byte(tt.data)); got != tt.want {
				t.Errorf("LooksLikeMbox(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		limit   int64
		wantErr bool
	}{
		{"separator after junk", "not mbox\nFrom a@b Sat Jan 1 00:00:00 2024\nSubject: x\n", 1024, false},
		{"remote from", "From a@b Sat Jan 1 00:00:00 2024 remote from mx\n", 1024, false},
		{"beyond limit", "0123456789\nFrom a@b Sat Jan 1 00:00:00 2024\n", 8, true},
		{"no separator", "Subject: x\n\nbody\n", 1024, true},
		{"bad limit", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(strings.NewReader(tt.data), tt.limit)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
