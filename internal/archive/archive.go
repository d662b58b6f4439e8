// Package archive writes the hierarchical archival representation produced
// by an extraction: nodes (folders, messages, attachments, ...) carrying
// ordered metadata and binary objects.
package archive

// Kind classifies an archival node.
type Kind string

const (
	KindRoot        Kind = "root"
	KindFolder      Kind = "folder"
	KindContainer   Kind = "container"
	KindMessage     Kind = "message"
	KindAttachment  Kind = "attachment"
	KindContact     Kind = "contact"
	KindAppointment Kind = "appointment"
)

// Object types for binary objects attached to a node.
const (
	ObjectBinaryMaster = "BinaryMaster"
	ObjectTextContent  = "TextContent"
	ObjectInline       = "InlineAttachment"
)

// Writer creates archival nodes. A nil parent creates a top-level node.
type Writer interface {
	CreateNode(parent Node, kind Kind, name string) (Node, error)
}

// Node is one archival unit. Metadata and objects are buffered until Write.
type Node interface {
	// AddMetadata records key=value. With overwrite, any earlier values for
	// key are replaced; otherwise value is appended as an additional value.
	AddMetadata(key, value string, overwrite bool)
	AddBinaryObject(data []byte, filename, objectType string, version int)
	Write() error
}

// Field is one metadata entry.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Object is one binary object of a node.
type Object struct {
	Filename   string `json:"filename"`
	ObjectType string `json:"object_type"`
	Version    int    `json:"version"`
	Size       int    `json:"size"`
	Data       []byte `json:"-"`
}

// metadata is the ordered key/value list shared by both writers.
type metadata struct {
	fields []Field
}

func (m *metadata) add(key, value string, overwrite bool) {
	if overwrite {
		for i, f := range m.fields {
			if f.Key == key {
				m.fields[i].Value = value
				// Drop any further values for key.
				kept := m.fields[:i+1]
				for _, rest := range m.fields[i+1:] {
					if rest.Key != key {
						kept = append(kept, rest)
					}
				}
				m.fields = kept
				return
			}
		}
	}
	m.fields = append(m.fields, Field{Key: key, Value: value})
}

func (m *metadata) values(key string) []string {
	var out []string
	for _, f := range m.fields {
		if f.Key == key {
			out = append(out, f.Value)
		}
	}
	return out
}
