// Package fileutil writes extraction output with owner-only permissions.
//
// Archives hold message bodies and attachments, so every directory is
// created 0700 and every file 0600. On Windows the mode bits carry little
// weight and a DACL limited to the current user is applied instead.
package fileutil

import (
	"os"
	"path/filepath"
)

const (
	dirPerm  os.FileMode = 0o700
	filePerm os.FileMode = 0o600
)

// MkdirPrivate creates dir and any missing parents.
func MkdirPrivate(dir string) error {
	created := missingDirs(dir)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}
	for _, d := range created {
		restrict(d)
	}
	return nil
}

// CreatePrivate creates or truncates path for writing.
func CreatePrivate(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, err
	}
	restrict(path)
	return f, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so a reader sees either the old content or the new one.
func WriteFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = os.Chmod(tmpPath, filePerm); err != nil {
		return err
	}
	restrict(tmpPath)
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// missingDirs lists dir and those of its parents that do not exist yet,
// deepest first.
func missingDirs(dir string) []string {
	var out []string
	for p := filepath.Clean(dir); ; {
		if _, err := os.Stat(p); err == nil {
			return out
		}
		out = append(out, p)
		parent := filepath.Dir(p)
		if parent == p {
			return out
		}
		p = parent
	}
}
