// Package mbox reads Unix mailbox files one message at a time.
//
// Both mboxo and mboxrd are handled: messages are delimited by "From "
// lines, and body lines matching ^>+From  lose one '>' unless
// KeepFromEscapes is given.
package mbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
)

const maxLineBytes = 32 << 20

// Message is one message of a mailbox.
type Message struct {
	// FromLine is the separator line without its newline.
	FromLine string
	// Date is the delivery date of the separator, zero when unknown.
	Date time.Time
	// Raw holds the RFC 5322 message, separator excluded.
	Raw []byte
}

// Option configures a Reader.
type Option func(*Reader)

// KeepFromEscapes leaves >From lines as stored.
func KeepFromEscapes() Option {
	return func(r *Reader) { r.unescape = false }
}

// Reader reads messages from a mailbox stream.
type Reader struct {
	br       *bufio.Reader
	unescape bool

	pending string // separator of the next message
	started bool
	done    bool
}

// NewReader returns a Reader for r. Data before the first separator is
// skipped.
func NewReader(r io.Reader, opts ...Option) *Reader {
	rd := &Reader{br: bufio.NewReader(r), unescape: true}
	for _, o := range opts {
		o(rd)
	}
	return rd
}

// Next returns the next message, or io.EOF.
func (r *Reader) Next() (*Message, error) {
	if !r.started {
		r.started = true
		if err := r.skipPreamble(); err != nil {
			return nil, err
		}
	}
	if r.done {
		return nil, io.EOF
	}

	msg := &Message{FromLine: r.pending}
	if sep, ok := ParseSeparator(r.pending); ok && !sep.Date.IsZero() {
		msg.Date = sep.Date.UTC()
	}

	var raw bytes.Buffer
	for {
		line, err := r.readLine()
		if len(line) > 0 {
			if IsSeparator(line) {
				r.pending = string(bytes.TrimRight(line, "\r\n"))
				break
			}
			if r.unescape {
				line = unescapeFrom(line)
			}
			raw.Write(line)
		}
		if err == io.EOF {
			r.done = true
			break
		}
		if err != nil {
			return nil, err
		}
	}
	msg.Raw = raw.Bytes()
	return msg, nil
}

func (r *Reader) skipPreamble() error {
	for {
		line, err := r.readLine()
		if IsSeparator(line) {
			r.pending = string(bytes.TrimRight(line, "\r\n"))
			return nil
		}
		if err == io.EOF {
			r.done = true
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine returns the next line including its newline. Lines longer than
// the bufio buffer are joined.
func (r *Reader) readLine() ([]byte, error) {
	var out []byte
	for {
		b, err := r.br.ReadSlice('\n')
		out = append(out, b...)
		if len(out) > maxLineBytes {
			return nil, fmt.Errorf("mbox line exceeds %d bytes", maxLineBytes)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return out, err
	}
}

var fromPrefix = []byte("From ")

// IsSeparator reports whether line, with or without its newline, starts a
// message.
func IsSeparator(line []byte) bool {
	if !bytes.HasPrefix(line, fromPrefix) {
		return false
	}
	_, ok := ParseSeparator(string(bytes.TrimRight(line, "\r\n")))
	return ok
}

// unescapeFrom drops one '>' from a line matching ^>+From .
func unescapeFrom(line []byte) []byte {
	i := 0
	for i < len(line) && line[i] == '>' {
		i++
	}
	if i > 0 && bytes.HasPrefix(line[i:], fromPrefix) {
		return line[1:]
	}
	return line
}

// LooksLikeMbox reports whether data starts with a separator line.
func LooksLikeMbox(data []byte) bool {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	}
	return IsSeparator(data)
}

// Validate reads at most limit bytes of r looking for a separator.
func Validate(r io.Reader, limit int64) error {
	if limit <= 0 {
		return errors.New("mbox: validation limit must be positive")
	}
	br := bufio.NewReader(io.LimitReader(r, limit))
	for {
		line, err := br.ReadBytes('\n')
		if IsSeparator(line) {
			return nil
		}
		if err == io.EOF {
			return errors.New(`no "From " separator found (not an mbox file?)`)
		}
		if err != nil {
			return err
		}
	}
}
