package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format"
	"github.com/wesm/mailextract/internal/format/imap"
)

// jobFlags are the store-selection flags shared by extract and list.
type jobFlags struct {
	folder string
}

// openExtractor resolves source into a descriptor and opens its store.
func openExtractor(ctx context.Context, source, dest string, jf jobFlags, opts extract.Options, options ...extract.Option) (*extract.Extractor, error) {
	settings := cfg.IMAPSettings()
	reg := format.Registry(settings)

	descriptor, err := format.Descriptor(reg, source)
	if err != nil {
		return nil, err
	}
	d, err := extract.ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}

	if needsPassword(d, settings) {
		password, err := promptPassword(os.Stdin, os.Stderr, d)
		if err != nil {
			return nil, err
		}
		settings.Password = password
		reg = format.Registry(settings)
	}

	options = append([]extract.Option{extract.WithLogger(logger)}, options...)
	x, err := extract.New(ctx, reg, descriptor, jf.folder, dest, opts, options...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	return x, nil
}

// needsPassword reports whether an IMAP login would have no password.
func needsPassword(d extract.Descriptor, s imap.Settings) bool {
	if d.Scheme != imap.Scheme && d.Scheme != imap.SchemeTLS {
		return false
	}
	return d.User != "" && d.Password == "" && s.Password == ""
}

// promptPassword reads a password without echo. It refuses to prompt when
// stdin is not a terminal so scripted runs fail instead of hanging.
func promptPassword(in *os.File, out io.Writer, d extract.Descriptor) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password for %s@%s: set [imap] password_env or put it in the descriptor", d.User, d.Host)
	}
	fmt.Fprintf(out, "Password for %s@%s: ", d.User, d.Host)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("password is required")
	}
	return string(raw), nil
}

// interactive reports whether f is a terminal.
func interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
