package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Constructor opens the store an Extractor was created for. It reads the
// descriptor, the root folder path and, for nested stores, Content from x.
type Constructor func(ctx context.Context, x *Extractor) (Store, error)

// Scheme describes one registered store format.
type Scheme struct {
	Name      string
	Container bool
	MIMETypes []string
	New       Constructor
}

// Registry maps schemes to store constructors and content types to schemes.
// It is filled once at startup and only read during extraction.
type Registry struct {
	mu        sync.RWMutex
	schemes   map[string]*Scheme
	mimeTypes map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemes:   make(map[string]*Scheme),
		mimeTypes: make(map[string]string),
	}
}

// Register adds or replaces a scheme. mimeType may be empty for schemes only
// reachable through a descriptor. Registering the same key again overwrites
// the previous entry.
func (r *Registry) Register(mimeType, scheme string, container bool, ctor Constructor) {
	scheme = strings.ToLower(scheme)
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schemes[scheme]
	if !ok {
		s = &Scheme{Name: scheme}
		r.schemes[scheme] = s
	}
	s.Container = container
	s.New = ctor

	if mt := normalizeMIMEType(mimeType); mimeType != "" && mt != defaultMIMEType {
		if prev, ok := r.mimeTypes[mt]; ok && prev != scheme {
			if p := r.schemes[prev]; p != nil {
				p.MIMETypes = remove(p.MIMETypes, mt)
			}
		}
		r.mimeTypes[mt] = scheme
		if !contains(s.MIMETypes, mt) {
			s.MIMETypes = append(s.MIMETypes, mt)
		}
	}
}

// Constructor returns the constructor registered for scheme.
func (r *Registry) Constructor(scheme string) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemes[strings.ToLower(scheme)]
	if !ok || s.New == nil {
		return nil, fmt.Errorf("scheme %q: %w", scheme, ErrNotFound)
	}
	return s.New, nil
}

// IsContainer reports whether scheme's nested extractions get a container node.
func (r *Registry) IsContainer(scheme string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemes[strings.ToLower(scheme)]
	return ok && s.Container
}

// SchemeForMIMEType returns the scheme registered for a content type.
func (r *Registry) SchemeForMIMEType(mimeType string) (string, error) {
	mt := normalizeMIMEType(mimeType)
	r.mu.RLock()
	defer r.mu.RUnlock()
	scheme, ok := r.mimeTypes[mt]
	if !ok {
		return "", fmt.Errorf("mime type %q: %w", mt, ErrNotFound)
	}
	return scheme, nil
}

// Schemes returns a snapshot of the registered schemes sorted by name.
func (r *Registry) Schemes() []Scheme {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scheme, 0, len(r.schemes))
	for _, s := range r.schemes {
		c := *s
		c.MIMETypes = append([]string(nil), s.MIMETypes...)
		sort.Strings(c.MIMETypes)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
