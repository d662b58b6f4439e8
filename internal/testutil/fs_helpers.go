package testutil

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// validateRelativePath checks that name is a relative path that stays within dir.
func validateRelativePath(dir, name string) error {
	if filepath.IsAbs(name) {
		return fmt.Errorf("absolute path not allowed: %s", name)
	}
	// filepath.Join(dir, "C:foo") ignores dir on Windows.
	if filepath.VolumeName(name) != "" {
		return fmt.Errorf("path with volume name not allowed: %s", name)
	}
	rel, err := filepath.Rel(dir, filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("cannot compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes directory: %s", name)
	}
	return nil
}

// WriteFile writes content below dir, creating parent directories. name
// must stay inside dir.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	if err := validateRelativePath(dir, name); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := filepath.Join(dir, filepath.Clean(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

// WriteTree writes a fixture store layout below dir, e.g. a Thunderbird
// profile or an Apple Mail directory. Keys are /-separated relative paths.
func WriteTree(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, dir, filepath.FromSlash(name), content)
	}
}

// MustExist fails the test if the path does not exist or cannot be accessed.
func MustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

// ArchiveNode is one node read back from an archive written to disk.
type ArchiveNode struct {
	Dir      string // relative to the archive root, /-separated
	Kind     string
	Metadata map[string][]string
}

// Value returns the first value of key.
func (n ArchiveNode) Value(key string) string {
	if v := n.Metadata[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// ReadArchive loads every node file named metadataFile below root, sorted
// by directory.
func ReadArchive(t *testing.T, root, metadataFile string) []ArchiveNode {
	t.Helper()

	var nodes []ArchiveNode
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != metadataFile {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		var file struct {
			Kind     string `json:"kind"`
			Metadata []struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		rel, _ := filepath.Rel(root, filepath.Dir(p))
		n := ArchiveNode{Dir: filepath.ToSlash(rel), Kind: file.Kind, Metadata: make(map[string][]string)}
		for _, f := range file.Metadata {
			n.Metadata[f.Key] = append(n.Metadata[f.Key], f.Value)
		}
		nodes = append(nodes, n)
		return nil
	})
	if err != nil {
		t.Fatalf("read archive %s: %v", root, err)
	}
	slices.SortFunc(nodes, func(a, b ArchiveNode) int { return strings.Compare(a.Dir, b.Dir) })
	return nodes
}
