// Package formattest runs real extractions over format adapters in tests.
package formattest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/wesm/mailextract/internal/archive"
	"github.com/wesm/mailextract/internal/extract"
)

// Result is the outcome of one in-memory extraction.
type Result struct {
	Summary *extract.Summary
	Tree    *archive.Memory
}

// Extract runs an extraction of descriptor with default options, writing to
// memory. register adds the schemes under test.
func Extract(t *testing.T, descriptor string, register ...func(*extract.Registry)) Result {
	t.Helper()
	return ExtractWith(t, descriptor, extract.DefaultOptions(), register...)
}

// ExtractWith is Extract with explicit options.
func ExtractWith(t *testing.T, descriptor string, opts extract.Options, register ...func(*extract.Registry)) Result {
	t.Helper()
	reg := extract.NewRegistry()
	for _, r := range register {
		r(reg)
	}
	mem := archive.NewMemory()
	x, err := extract.New(context.Background(), reg, descriptor, "", t.TempDir(), opts,
		extract.WithWriter(mem),
		extract.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("New(%s): %v", descriptor, err)
	}
	defer x.Close()
	sum, err := x.ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll(%s): %v", descriptor, err)
	}
	return Result{Summary: sum, Tree: mem}
}

// Nodes returns the written nodes of kind in tree order.
func (r Result) Nodes(kind archive.Kind) []*archive.MemoryNode {
	var out []*archive.MemoryNode
	r.Tree.Walk(func(n *archive.MemoryNode) {
		if n.Kind == kind {
			out = append(out, n)
		}
	})
	return out
}

// Values returns the metadata value key of every node of kind.
func (r Result) Values(kind archive.Kind, key string) []string {
	var out []string
	for _, n := range r.Nodes(kind) {
		out = append(out, n.Value(key))
	}
	return out
}
