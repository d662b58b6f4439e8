package archive

import (
	"fmt"
	"sync"
)

// Memory keeps the archival tree in memory. It is used for dry runs and by
// tests that need to inspect what an extraction produced.
type Memory struct {
	mu    sync.Mutex
	roots []*MemoryNode
}

// NewMemory returns an empty in-memory writer.
func NewMemory() *Memory { return &Memory{} }

// MemoryNode is a node held by Memory.
type MemoryNode struct {
	Kind     Kind
	Name     string
	Parent   *MemoryNode
	Children []*MemoryNode
	Objects  []Object
	Writes   int

	owner *Memory
	meta  metadata
}

// CreateNode returns a detached node. It joins the tree (under parent, or
// at the top level) when first written, so nodes that are never written
// never show up.
func (m *Memory) CreateNode(parent Node, kind Kind, name string) (Node, error) {
	n := &MemoryNode{Kind: kind, Name: name, owner: m}
	if parent == nil {
		return n, nil
	}
	p, ok := parent.(*MemoryNode)
	if !ok {
		return nil, fmt.Errorf("archive: parent node %T not created by this writer", parent)
	}
	n.Parent = p
	return n, nil
}

// Roots returns the top-level nodes.
func (m *Memory) Roots() []*MemoryNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MemoryNode(nil), m.roots...)
}

// Walk visits every node depth-first, parents before children.
func (m *Memory) Walk(fn func(*MemoryNode)) {
	for _, r := range m.Roots() {
		r.walk(fn)
	}
}

func (n *MemoryNode) walk(fn func(*MemoryNode)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

func (n *MemoryNode) AddMetadata(key, value string, overwrite bool) {
	n.meta.add(key, value, overwrite)
}

func (n *MemoryNode) AddBinaryObject(data []byte, filename, objectType string, version int) {
	n.Objects = append(n.Objects, Object{
		Filename:   filename,
		ObjectType: objectType,
		Version:    version,
		Size:       len(data),
		Data:       append([]byte(nil), data...),
	})
}

func (n *MemoryNode) Write() error {
	n.owner.mu.Lock()
	defer n.owner.mu.Unlock()
	if n.Writes == 0 {
		if n.Parent == nil {
			n.owner.roots = append(n.owner.roots, n)
		} else {
			n.Parent.Children = append(n.Parent.Children, n)
		}
	}
	n.Writes++
	return nil
}

// Metadata returns the node's metadata in insertion order.
func (n *MemoryNode) Metadata() []Field {
	return append([]Field(nil), n.meta.fields...)
}

// Values returns every value recorded for key.
func (n *MemoryNode) Values(key string) []string {
	return n.meta.values(key)
}

// Value returns the first value recorded for key, or "".
func (n *MemoryNode) Value(key string) string {
	if v := n.meta.values(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Object returns the first object of the given type, or nil.
func (n *MemoryNode) Object(objectType string) *Object {
	for i := range n.Objects {
		if n.Objects[i].ObjectType == objectType {
			return &n.Objects[i]
		}
	}
	return nil
}

// ChildrenOfKind returns the direct children with the given kind.
func (n *MemoryNode) ChildrenOfKind(kind Kind) []*MemoryNode {
	var out []*MemoryNode
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
