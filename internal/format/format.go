// Package format assembles the registry of every store format and turns
// user input (descriptors or plain paths) into descriptors.
package format

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/eml"
	"github.com/wesm/mailextract/internal/format/emlx"
	"github.com/wesm/mailextract/internal/format/ical"
	"github.com/wesm/mailextract/internal/format/imap"
	"github.com/wesm/mailextract/internal/format/mbox"
	"github.com/wesm/mailextract/internal/format/pst"
	"github.com/wesm/mailextract/internal/format/vcard"
	"github.com/wesm/mailextract/internal/sniff"
)

// Registry returns a registry holding every built-in scheme.
func Registry(imapSettings imap.Settings) *extract.Registry {
	reg := extract.NewRegistry()
	RegisterAll(reg, imapSettings)
	return reg
}

// RegisterAll adds every built-in scheme to reg.
func RegisterAll(reg *extract.Registry, imapSettings imap.Settings) {
	eml.Register(reg)
	mbox.Register(reg)
	emlx.Register(reg)
	pst.Register(reg)
	vcard.Register(reg)
	ical.Register(reg)
	imap.Register(reg, imapSettings)
}

var extensions = map[string]string{
	".eml":  eml.Scheme,
	".mbox": mbox.Scheme,
	".mbx":  mbox.Scheme,
	".pst":  pst.Scheme,
	".ost":  pst.Scheme,
	".vcf":  vcard.Scheme,
	".ics":  ical.Scheme,
}

// sniffLen is how much of a file is read to guess its format.
const sniffLen = 4096

// Descriptor returns the descriptor for s. Strings that already carry a
// scheme are returned unchanged. Otherwise s is a local path: files are
// typed by extension, then by content; directories are Apple Mail trees
// when they hold .mbox/Messages directories and mbox trees otherwise.
func Descriptor(reg *extract.Registry, s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") {
		return s, nil
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty", extract.ErrMalformedDescriptor)
	}

	abs, err := filepath.Abs(s)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", extract.ErrMalformedDescriptor, err)
	}

	var scheme string
	switch {
	case info.IsDir():
		scheme = mbox.Scheme
		if emlx.Contains(abs) {
			scheme = emlx.Scheme
		}
	default:
		scheme = extensions[strings.ToLower(filepath.Ext(abs))]
		if scheme == "" {
			scheme, err = sniffFile(reg, abs)
			if err != nil {
				return "", err
			}
		}
	}
	return extract.Descriptor{Scheme: scheme, Path: filepath.ToSlash(abs)}.String(), nil
}

func sniffFile(reg *extract.Registry, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	mimeType := sniff.Detect(head[:n])
	scheme, err := reg.SchemeForMIMEType(mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: cannot tell the format of %s (%s)", extract.ErrUnknownScheme, path, mimeType)
	}
	return scheme, nil
}
