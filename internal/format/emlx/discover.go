// Package emlx opens Apple Mail directories as stores. Each .mbox or
// .imapmbox directory with a Messages directory is a folder; its .emlx files
// are its messages, ordered by numeric message id.
package emlx

import (
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Mailbox is one Apple Mail mailbox directory holding .emlx files.
type Mailbox struct {
	Path   string   // the .mbox or .imapmbox directory
	MsgDir string   // Messages, or <GUID>/Data/Messages in V10 layouts
	Folder []string // folder path relative to the scanned root
	Files  []string // .emlx names in MsgDir, by message id
}

// DiscoverMailboxes finds the mailboxes under dir. When dir is itself a
// non-empty mailbox, only that mailbox is returned.
func DiscoverMailboxes(dir string) ([]Mailbox, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("emlx: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("emlx: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("emlx: %s is not a directory", abs)
	}

	if isMailboxDir(abs) {
		mb, err := readMailbox(filepath.Dir(abs), abs)
		if err != nil {
			return nil, err
		}
		if len(mb.Files) > 0 {
			return []Mailbox{mb}, nil
		}
	}

	var out []Mailbox
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if d.Name() == "Messages" {
			return filepath.SkipDir
		}
		if !isMailboxDir(p) {
			return nil
		}
		if mb, err := readMailbox(abs, p); err == nil && len(mb.Files) > 0 {
			out = append(out, mb)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("emlx: walk %s: %w", abs, err)
	}
	slices.SortFunc(out, func(a, b Mailbox) int { return cmp.Compare(a.Path, b.Path) })
	return out, nil
}

func readMailbox(root, p string) (Mailbox, error) {
	mb := Mailbox{Path: p, Folder: FolderPath(root, p)}
	mb.MsgDir = findMessagesDir(p)
	if mb.MsgDir == "" {
		return mb, nil
	}
	entries, err := os.ReadDir(mb.MsgDir)
	if err != nil {
		return mb, fmt.Errorf("emlx: read %s: %w", mb.MsgDir, err)
	}
	for _, e := range entries {
		lower := strings.ToLower(e.Name())
		if e.IsDir() || !strings.HasSuffix(lower, ".emlx") || strings.HasSuffix(lower, ".partial.emlx") {
			continue
		}
		mb.Files = append(mb.Files, e.Name())
	}
	slices.SortFunc(mb.Files, byMessageID)
	return mb, nil
}

// byMessageID orders "<id>.emlx" names numerically, falling back to name
// order for anything else.
func byMessageID(a, b string) int {
	ia, errA := strconv.ParseInt(strings.TrimSuffix(a, filepath.Ext(a)), 10, 64)
	ib, errB := strconv.ParseInt(strings.TrimSuffix(b, filepath.Ext(b)), 10, 64)
	if errA == nil && errB == nil && ia != ib {
		return cmp.Compare(ia, ib)
	}
	return cmp.Compare(a, b)
}

// FolderPath maps a mailbox directory to its folder path under root. Account
// containers (Mailboxes, IMAP-*, POP-*, V10 GUID directories) are not folders,
// and mailbox suffixes are dropped.
func FolderPath(root, mailbox string) []string {
	rel, err := filepath.Rel(root, mailbox)
	if err != nil || strings.HasPrefix(rel, "..") {
		return []string{stripMailboxSuffix(filepath.Base(mailbox))}
	}
	var out []string
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "Mailboxes" || part == "." || strings.HasPrefix(part, "IMAP-") || strings.HasPrefix(part, "POP-") || isUUID(part) {
			continue
		}
		out = append(out, stripMailboxSuffix(part))
	}
	if len(out) == 0 {
		return []string{stripMailboxSuffix(filepath.Base(mailbox))}
	}
	return out
}

// Contains reports whether dir is, or holds, an Apple Mail mailbox. It stops
// at the first one found.
func Contains(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && isMailboxDir(p) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func isMailboxDir(p string) bool {
	lower := strings.ToLower(filepath.Base(p))
	if !strings.HasSuffix(lower, ".mbox") && !strings.HasSuffix(lower, ".imapmbox") {
		return false
	}
	return findMessagesDir(p) != ""
}

func findMessagesDir(mailbox string) string {
	if isDir(filepath.Join(mailbox, "Messages")) {
		return filepath.Join(mailbox, "Messages")
	}
	entries, err := os.ReadDir(mailbox)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if p := filepath.Join(mailbox, e.Name(), "Data", "Messages"); isDir(p) {
			return p
		}
	}
	return ""
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

// isUUID matches the 8-4-4-4-12 hex form.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, c := range s {
		if i == 8 || i == 13 || i == 18 || i == 23 {
			if c != '-' {
				return false
			}
			continue
		}
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

func stripMailboxSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".imapmbox", ".mbox"} {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}
