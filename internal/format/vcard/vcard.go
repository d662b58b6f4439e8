// Package vcard opens vCard files as stores holding one folder of contacts.
package vcard

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

	"github.com/emersion/go-vcard"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/sniff"
)

// Scheme is the descriptor scheme of vCard files.
const Scheme = "vcard"

// Register adds the vcard scheme to reg.
func Register(reg *extract.Registry) {
	reg.Register(sniff.TypeVCard, Scheme, true, Open)
}

// Open is the vcard store constructor. Cards are decoded up front.
func Open(ctx context.Context, x *extract.Extractor) (extract.Store, error) {
	data, err := x.ReadContent()
	if err != nil {
		return nil, err
	}
	sizes := blockSizes(data, "VCARD")
	dec := vcard.NewDecoder(bytes.NewReader(data))
	var cards []*card
	for {
		c, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode vcard %d: %w", len(cards)+1, err)
		}
		cc := &card{c: c}
		if i := len(cards); i < len(sizes) {
			cc.size = sizes[i]
		}
		cards = append(cards, cc)
	}
	name := strings.TrimSuffix(filepath.Base(x.Descriptor().Path), filepath.Ext(x.Descriptor().Path))
	return &store{root: &folder{name: name, cards: cards}}, nil
}

// blockSizes returns the byte length of each BEGIN:kind ... END:kind block
// in document order.
func blockSizes(data []byte, kind string) []int64 {
	var (
		out   []int64
		cur   int64
		depth int
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	sc.Split(scanLinesKeepEOL)
	for sc.Scan() {
		line := sc.Bytes()
		trimmed := strings.ToUpper(strings.TrimSpace(string(line)))
		if trimmed == "BEGIN:"+kind {
			if depth == 0 {
				cur = 0
			}
			depth++
		}
		if depth > 0 {
			cur += int64(len(line))
		}
		if trimmed == "END:"+kind && depth > 0 {
			depth--
			if depth == 0 {
				out = append(out, cur)
			}
		}
	}
	return out
}

func scanLinesKeepEOL(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
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
	cards []*card
}

func (f *folder) Name() string        { return f.name }
func (f *folder) HasElements() bool   { return len(f.cards) > 0 }
func (f *folder) HasSubfolders() bool { return false }

func (f *folder) WalkElements(ctx context.Context, fn func(extract.ElementSource) error) error {
	for _, c := range f.cards {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *folder) Subfolders(context.Context) ([]extract.StoreFolder, error) { return nil, nil }

type card struct {
	c    vcard.Card
	size int64
}

func (c *card) RawSize() int64 { return c.size }

func (c *card) Contact() (*extract.Contact, error) {
	v := c.c
	rec := &extract.Contact{
		FullName:     v.PreferredValue(vcard.FieldFormattedName),
		Nickname:     v.PreferredValue(vcard.FieldNickname),
		Organization: strings.TrimRight(strings.ReplaceAll(v.PreferredValue(vcard.FieldOrganization), ";", ", "), ", "),
		JobTitle:     v.PreferredValue(vcard.FieldTitle),
		Emails:       v.Values(vcard.FieldEmail),
		Phones:       v.Values(vcard.FieldTelephone),
		Note:         v.PreferredValue(vcard.FieldNote),
		Birthday:     ParseBirthday(v.PreferredValue(vcard.FieldBirthday)),
	}
	if n := v.Name(); n != nil {
		rec.GivenName = n.GivenName
		rec.Surname = n.FamilyName
	}
	for _, a := range v.Addresses() {
		var parts []string
		for _, p := range []string{a.StreetAddress, a.Locality, a.Region, a.PostalCode, a.Country} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			rec.Addresses = append(rec.Addresses, strings.Join(parts, ", "))
		}
	}
	var err error
	rec.Picture, rec.PictureType, err = photo(v.Get(vcard.FieldPhoto))
	return rec, err
}

var birthdayLayouts = []string{"2006-01-02", "20060102", "2006-01-02T15:04:05Z", "20060102T150405Z", "--0102"}

// ParseBirthday reads a BDAY value; unparsable values yield the zero time.
func ParseBirthday(s string) time.Time {
	for _, layout := range birthdayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// photo decodes an inline PHOTO, either vCard 3 base64 or a vCard 4 data
// URI. Photos by reference are ignored.
func photo(f *vcard.Field) ([]byte, string, error) {
	if f == nil || f.Value == "" {
		return nil, "", nil
	}
	if rest, ok := strings.CutPrefix(f.Value, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", nil
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("photo: %w", err)
		}
		return data, strings.TrimSuffix(meta, ";base64"), nil
	}
	enc := strings.ToLower(f.Params.Get("ENCODING"))
	if enc != "b" && enc != "base64" {
		return nil, "", nil
	}
	data, err := base64.StdEncoding.DecodeString(f.Value)
	if err != nil {
		return nil, "", fmt.Errorf("photo: %w", err)
	}
	typ := strings.ToLower(f.Params.Get(vcard.ParamType))
	if typ != "" && !strings.Contains(typ, "/") {
		typ = "image/" + typ
	}
	return data, typ, nil
}
