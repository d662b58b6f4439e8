package mime

import (
	"bufio"
	"bytes"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime"
)

// readHeader returns the top-level fields in order, with encoded words
// decoded, and the date of the topmost Received line.
func readHeader(raw []byte) ([]HeaderField, time.Time) {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, time.Time{}
	}
	var (
		fields   []HeaderField
		received time.Time
	)
	mh := message.Header{Header: h}
	for f := mh.Fields(); f.Next(); {
		v, err := f.Text()
		if err != nil {
			v = f.Value()
		}
		fields = append(fields, HeaderField{Key: f.Key(), Value: v})
		if received.IsZero() && strings.EqualFold(f.Key(), "Received") {
			received = traceDate(v)
		}
	}
	return fields, received
}

// traceDate returns the date after the last ';' of a Received value.
func traceDate(v string) time.Time {
	i := strings.LastIndexByte(v, ';')
	if i < 0 {
		return time.Time{}
	}
	t, _ := ParseDate(v[i+1:])
	return t
}

// addressList reads an address header. Group syntax is flattened to its
// members; entries without an address are skipped.
func addressList(env *enmime.Envelope, key string) []Address {
	list, err := env.AddressList(key)
	if err != nil || len(list) == 0 {
		return nil
	}
	out := make([]Address, 0, len(list))
	for _, a := range list {
		if a.Address == "" {
			continue
		}
		out = append(out, Address{Name: a.Name, Email: strings.ToLower(a.Address)})
	}
	return out
}

// messageIDs splits a References style value into ids without brackets.
func messageIDs(v string) []string {
	var ids []string
	for _, f := range strings.Fields(v) {
		if id := strings.Trim(f, "<>"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
