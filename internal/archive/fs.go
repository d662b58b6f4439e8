package archive

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/wesm/mailextract/internal/fileutil"
)

// MetadataFile is the per-node metadata file written by FS.
const MetadataFile = "__metadata.json"

// FS writes each node as a directory below a root directory. Child nodes
// are subdirectories of their parent's directory.
type FS struct {
	root string

	mu   sync.Mutex
	used map[string]map[string]bool // dir -> taken child names
}

// NewFS returns a writer rooted at dir. The directory is created on the
// first Write.
func NewFS(dir string) *FS {
	return &FS{root: dir, used: make(map[string]map[string]bool)}
}

// Root returns the root directory.
func (w *FS) Root() string { return w.root }

// CreateNode allocates a directory for the node. Nothing touches the disk
// until the node is written.
func (w *FS) CreateNode(parent Node, kind Kind, name string) (Node, error) {
	base := w.root
	if parent != nil {
		p, ok := parent.(*fsNode)
		if !ok {
			return nil, fmt.Errorf("archive: parent node %T not created by this writer", parent)
		}
		base = p.dir
	}
	dir := filepath.Join(base, w.uniqueName(base, sanitizeName(name, kind)))
	return &fsNode{dir: dir, kind: kind}, nil
}

func (w *FS) uniqueName(dir, name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	taken := w.used[dir]
	if taken == nil {
		taken = make(map[string]bool)
		w.used[dir] = taken
	}
	candidate := name
	for i := 2; taken[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
	taken[strings.ToLower(candidate)] = true
	return candidate
}

// sanitizeName turns an arbitrary label into a single safe path component.
func sanitizeName(name string, kind Kind) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			sb.WriteRune('_')
		case unicode.IsControl(r):
			// dropped
		default:
			sb.WriteRune(r)
		}
	}
	s := strings.Trim(strings.TrimSpace(sb.String()), ".")
	if s == "" {
		s = string(kind)
	}
	return s
}

type fsNode struct {
	dir     string
	kind    Kind
	meta    metadata
	objects []Object
	flushed int // objects already on disk
}

func (n *fsNode) AddMetadata(key, value string, overwrite bool) {
	n.meta.add(key, value, overwrite)
}

func (n *fsNode) AddBinaryObject(data []byte, filename, objectType string, version int) {
	n.objects = append(n.objects, Object{
		Filename:   filename,
		ObjectType: objectType,
		Version:    version,
		Size:       len(data),
		Data:       data,
	})
}

type nodeFile struct {
	Kind     Kind     `json:"kind"`
	Metadata []Field  `json:"metadata"`
	Objects  []Object `json:"objects,omitempty"`
}

// Write creates the node directory and persists metadata and objects.
// Writing a node twice rewrites its metadata file.
func (n *fsNode) Write() error {
	if err := fileutil.MkdirPrivate(n.dir); err != nil {
		return fmt.Errorf("create node dir: %w", err)
	}
	for i := n.flushed; i < len(n.objects); i++ {
		obj := &n.objects[i]
		name := objectFileName(obj)
		if err := fileutil.WriteFileAtomic(filepath.Join(n.dir, name), obj.Data); err != nil {
			return fmt.Errorf("write object %q: %w", name, err)
		}
		obj.Filename = name
		obj.Data = nil
	}
	n.flushed = len(n.objects)
	b, err := json.MarshalIndent(nodeFile{Kind: n.kind, Metadata: n.meta.fields, Objects: n.objects}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(n.dir, MetadataFile), b); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func objectFileName(obj *Object) string {
	name := sanitizeName(obj.Filename, Kind("object"))
	return fmt.Sprintf("__%s_%d_%s", obj.ObjectType, obj.Version, name)
}
