package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// ContentReader is the byte stream of a file-backed or nested store.
type ContentReader interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Size() int64
}

type fileContent struct {
	*os.File
	size int64
}

func (f fileContent) Size() int64 { return f.size }

type memContent struct{ *bytes.Reader }

func (memContent) Close() error { return nil }

// OpenContent returns the store's bytes: the attachment content for a nested
// store, otherwise the file named by the descriptor path.
func (x *Extractor) OpenContent() (ContentReader, error) {
	if x.content != nil {
		return memContent{bytes.NewReader(x.content)}, nil
	}
	if x.desc.Path == "" {
		return nil, fmt.Errorf("%s: descriptor has no path", x.desc.Scheme)
	}
	f, err := os.Open(x.desc.Path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: is a directory", x.desc.Path)
	}
	return fileContent{File: f, size: fi.Size()}, nil
}

// ReadContent is OpenContent read fully into memory.
func (x *Extractor) ReadContent() ([]byte, error) {
	if x.content != nil {
		return x.content, nil
	}
	r, err := x.OpenContent()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
