// Package ical opens iCalendar files as stores holding one folder of
// appointments. Events sharing a UID are grouped: the event without
// RECURRENCE-ID is the series, the others override single occurrences,
// and EXDATE entries become deleted occurrences.
package ical

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/sniff"
)

// Scheme is the descriptor scheme of iCalendar files.
const Scheme = "ical"

// Register adds the ical scheme to reg.
func Register(reg *extract.Registry) {
	reg.Register(sniff.TypeCalendar, Scheme, true, Open)
}

// Open is the ical store constructor.
func Open(ctx context.Context, x *extract.Extractor) (extract.Store, error) {
	data, err := x.ReadContent()
	if err != nil {
		return nil, err
	}
	sizes := blockSizes(data, "VEVENT")
	dec := ical.NewDecoder(bytes.NewReader(data))
	var events []event
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}
		for _, ev := range cal.Events() {
			e := event{ev: ev}
			if i := len(events); i < len(sizes) {
				e.size = sizes[i]
			}
			events = append(events, e)
		}
	}
	name := strings.TrimSuffix(filepath.Base(x.Descriptor().Path), filepath.Ext(x.Descriptor().Path))
	return &store{root: &folder{name: name, items: group(events)}}, nil
}

type event struct {
	ev   ical.Event
	size int64
}

func (e event) uid() string {
	uid, _ := e.ev.Props.Text(ical.PropUID)
	return uid
}

func (e event) isOverride() bool {
	return e.ev.Props.Get(ical.PropRecurrenceID) != nil
}

// group attaches overrides to their series in document order. Overrides
// without a series stand alone.
func group(events []event) []*item {
	var out []*item
	series := make(map[string]*item)
	for _, e := range events {
		if e.isOverride() {
			continue
		}
		it := &item{master: e}
		if uid := e.uid(); uid != "" {
			series[uid] = it
		}
		out = append(out, it)
	}
	for _, e := range events {
		if !e.isOverride() {
			continue
		}
		if it, ok := series[e.uid()]; ok {
			it.overrides = append(it.overrides, e)
			continue
		}
		out = append(out, &item{master: e})
	}
	return out
}

func blockSizes(data []byte, kind string) []int64 {
	var (
		out   []int64
		cur   int64
		depth int
	)
	r := bufio.NewReader(bytes.NewReader(data))
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			upper := strings.ToUpper(strings.TrimSpace(line))
			if upper == "BEGIN:"+kind {
				if depth == 0 {
					cur = 0
				}
				depth++
			}
			if depth > 0 {
				cur += int64(len(line))
			}
			if upper == "END:"+kind && depth > 0 {
				if depth--; depth == 0 {
					out = append(out, cur)
				}
			}
		}
		if err != nil {
			return out
		}
	}
}

type store struct {
	root *folder
}

func (s *store) Folder(_ context.Context, path string) (extract.StoreFolder, error) {
	if strings.Trim(path, "/") != "" {
		return nil, fmt.Errorf("folder %q: %w", path, extract.ErrNotFound)
	}
	return s.root, nil
}

func (s *store) Close() error { return nil }

type folder struct {
	name  string
	items []*item
}

func (f *folder) Name() string        { return f.name }
func (f *folder) HasElements() bool   { return len(f.items) > 0 }
func (f *folder) HasSubfolders() bool { return false }

func (f *folder) WalkElements(ctx context.Context, fn func(extract.ElementSource) error) error {
	for _, it := range f.items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(it); err != nil {
			return err
		}
	}
	return nil
}

func (f *folder) Subfolders(context.Context) ([]extract.StoreFolder, error) { return nil, nil }

// item is one series, or one standalone event, with its overrides.
type item struct {
	master    event
	overrides []event
}

func (it *item) RawSize() int64 {
	n := it.master.size
	for _, o := range it.overrides {
		n += o.size
	}
	return n
}

func (it *item) Appointment() (*extract.Appointment, error) {
	a, err := appointment(it.master.ev)
	if err != nil {
		return nil, err
	}
	for _, o := range it.overrides {
		ex, err := appointment(o.ev)
		if err != nil {
			return a, err
		}
		a.Exceptions = append(a.Exceptions, ex)
	}
	for _, d := range exdates(it.master.ev) {
		a.Exceptions = append(a.Exceptions, &extract.Appointment{
			Subject: a.Subject,
			Start:   d,
			End:     d.Add(a.End.Sub(a.Start)),
			UID:     a.UID,
			Deleted: true,
		})
	}
	return a, nil
}

func appointment(ev ical.Event) (*extract.Appointment, error) {
	text := func(name string) string {
		v, _ := ev.Props.Text(name)
		return v
	}
	a := &extract.Appointment{
		Subject:     text(ical.PropSummary),
		Location:    text(ical.PropLocation),
		Description: text(ical.PropDescription),
		UID:         text(ical.PropUID),
		Deleted:     strings.EqualFold(text(ical.PropStatus), "CANCELLED"),
	}
	var err error
	if a.Start, err = ev.DateTimeStart(time.UTC); err != nil {
		return a, fmt.Errorf("DTSTART: %w", err)
	}
	// A missing DTEND means a zero-length or all-day entry.
	if end, err := ev.DateTimeEnd(time.UTC); err == nil {
		a.End = end
	}
	if p := ev.Props.Get(ical.PropOrganizer); p != nil {
		a.Organizer = person(p)
	}
	attendees := ev.Props.Values(ical.PropAttendee)
	for i := range attendees {
		a.Attendees = append(a.Attendees, person(&attendees[i]))
	}
	if p := ev.Props.Get(ical.PropRecurrenceRule); p != nil {
		a.Recurrence = p.Value
	}
	if p := ev.Props.Get(ical.PropSequence); p != nil {
		a.Sequence, _ = p.Int()
	}
	a.Attachments = attachments(ev)
	return a, nil
}

// person renders an ORGANIZER or ATTENDEE as "CN <address>".
func person(p *ical.Prop) string {
	addr := strings.TrimPrefix(strings.TrimPrefix(p.Value, "mailto:"), "MAILTO:")
	if cn := p.Params.Get(ical.ParamCommonName); cn != "" {
		return cn + " <" + addr + ">"
	}
	return addr
}

func exdates(ev ical.Event) []time.Time {
	var out []time.Time
	for _, p := range ev.Props.Values(ical.PropExceptionDates) {
		for _, v := range strings.Split(p.Value, ",") {
			one := ical.NewProp(ical.PropExceptionDates)
			one.Value = v
			one.Params = p.Params
			if t, err := one.DateTime(time.UTC); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// attachments returns inline ATTACH values. URI references are skipped.
func attachments(ev ical.Event) []extract.Attachment {
	var out []extract.Attachment
	for _, p := range ev.Props.Values(ical.PropAttach) {
		if !strings.EqualFold(p.Params.Get("ENCODING"), "BASE64") {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.Value)
		if err != nil {
			continue
		}
		name := p.Params.Get("X-FILENAME")
		if name == "" {
			name = p.Params.Get("FILENAME")
		}
		out = append(out, extract.Attachment{
			Name:        name,
			ContentType: p.Params.Get("FMTTYPE"),
			Data:        data,
		})
	}
	return out
}
