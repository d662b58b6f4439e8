// Package extract is the mail-store extraction engine. An Extractor opens a
// store through the scheme registry, walks its folders, analyzes every
// message, contact and appointment, and writes an archival tree plus
// optional CSV lists. Attachments that are themselves stores are extracted
// recursively by child extractors sharing the root's identifier counters.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/wesm/mailextract/internal/archive"
	"github.com/wesm/mailextract/internal/sniff"
	"github.com/wesm/mailextract/internal/textextract"
	"github.com/wesm/mailextract/internal/textutil"
)

type mode int

const (
	modeList mode = iota
	modeStats
	modeExtract
)

// Extractor runs one extraction job, or one nested store within a job.
type Extractor struct {
	reg       *Registry
	desc      Descriptor
	rootPath  string
	dest      string
	opts      Options
	parent    *Extractor
	content   []byte
	container bool

	log     *slog.Logger
	writer  archive.Writer
	sniffer Sniffer
	texter  TextExtractor
	now     func() time.Time

	store Store
	root  *folder

	// Owned by the root extractor; children delegate.
	nextID  int64
	lineIDs map[archive.Kind]int
	sinks   *sinks

	stats  Summary
	closed bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) { x.log = l }
}

// WithWriter replaces the filesystem archive writer rooted at destination.
func WithWriter(w archive.Writer) Option {
	return func(x *Extractor) { x.writer = w }
}

// WithSniffer replaces the content sniffer.
func WithSniffer(s Sniffer) Option {
	return func(x *Extractor) { x.sniffer = s }
}

// WithTextExtractor replaces the attachment text extractor.
func WithTextExtractor(t TextExtractor) Option {
	return func(x *Extractor) { x.texter = t }
}

// WithClock sets the time source used for titles and durations.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) { x.now = now }
}

// New creates the root extractor for descriptor. rootFolderPath selects the
// folder extraction starts from ("" for the store root). Archival output
// and CSV lists go below destination.
func New(ctx context.Context, reg *Registry, descriptor, rootFolderPath, destination string, opts Options, options ...Option) (*Extractor, error) {
	if reg == nil {
		return nil, errors.New("extract: nil registry")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	d, err := ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}

	x := &Extractor{
		reg:      reg,
		desc:     d,
		rootPath: strings.Trim(rootFolderPath, "/"),
		dest:     destination,
		opts:     opts,
		nextID:   1,
		lineIDs:  make(map[archive.Kind]int),
	}
	for _, o := range options {
		o(x)
	}
	if x.log == nil {
		x.log = slog.Default()
	}
	if x.writer == nil {
		x.writer = archive.NewFS(destination)
	}
	if x.sniffer == nil {
		x.sniffer = sniff.New()
	}
	if x.texter == nil {
		x.texter = textextract.New(opts.DefaultCharset)
	}
	if x.now == nil {
		x.now = time.Now
	}

	if err := x.open(ctx); err != nil {
		return nil, err
	}
	return x, nil
}

// child creates the extractor for a nested store held in content.
func (x *Extractor) child(ctx context.Context, scheme string, content []byte, name string) (*Extractor, error) {
	c := &Extractor{
		reg:       x.reg,
		desc:      Descriptor{Scheme: scheme, Path: name},
		dest:      x.dest,
		opts:      x.opts,
		parent:    x,
		content:   content,
		container: x.reg.IsContainer(scheme),
		log:       x.log.With("nested", name, "scheme", scheme),
		writer:    x.writer,
		sniffer:   x.sniffer,
		texter:    x.texter,
		now:       x.now,
	}
	if err := c.open(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (x *Extractor) open(ctx context.Context) error {
	ctor, err := x.reg.Constructor(x.desc.Scheme)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownScheme, x.desc.Scheme)
	}
	store, err := ctor(ctx, x)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConstructionFailed, x.desc.Scheme, err)
	}
	if store == nil {
		return fmt.Errorf("%w: %s: constructor returned no store", ErrConstructionFailed, x.desc.Scheme)
	}
	x.store = store
	return nil
}

// Descriptor returns the parsed connection descriptor. Nested extractors
// carry only the scheme and the attachment name as path.
func (x *Extractor) Descriptor() Descriptor { return x.desc }

// RootFolderPath returns the folder extraction starts from.
func (x *Extractor) RootFolderPath() string { return x.rootPath }

// Content returns the bytes of a nested store, or nil for a root extractor.
func (x *Extractor) Content() []byte { return x.content }

// Nested reports whether x extracts a store embedded in an attachment.
func (x *Extractor) Nested() bool { return x.parent != nil }

// Options returns the extraction options.
func (x *Extractor) Options() Options { return x.opts }

// Logger returns the extractor's logger.
func (x *Extractor) Logger() *slog.Logger { return x.log }

// Problem reports content a format adapter had to leave out. It logs at
// Warn when WarnOnMessageProblem is set and at Debug otherwise.
func (x *Extractor) Problem(msg string, args ...any) { x.problem(msg, args...) }

// NextIdentifier returns a job-wide unique identifier.
func (x *Extractor) NextIdentifier() int64 {
	if x.parent != nil {
		return x.parent.NextIdentifier()
	}
	id := x.nextID
	x.nextID++
	return id
}

// nextLineID returns the next line id for one element kind, shared by the
// whole job.
func (x *Extractor) nextLineID(kind archive.Kind) int {
	if x.parent != nil {
		return x.parent.nextLineID(kind)
	}
	x.lineIDs[kind]++
	return x.lineIDs[kind]
}

func (x *Extractor) rootExtractor() *Extractor {
	r := x
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// ExtractAll walks the store and writes the archival tree and CSV lists.
func (x *Extractor) ExtractAll(ctx context.Context) (*Summary, error) {
	start := x.now()
	x.reset()
	if err := x.openSinks(); err != nil {
		return nil, err
	}
	defer x.closeSinks()

	var rootNode archive.Node
	if x.opts.ExtractElementsContent {
		n, err := x.createNode(nil, archive.KindRoot, x.rootName())
		if err != nil {
			return nil, fmt.Errorf("create root node: %w", err)
		}
		rootNode = n
	}

	x.log.Info("extraction started", "store", x.desc.String(), "folder", x.rootPath)
	if err := x.walk(ctx, modeExtract, rootNode, nil); err != nil {
		return nil, err
	}

	if rootNode != nil {
		rootNode.AddMetadata(MetaTitle, x.title(start), true)
		rootNode.AddMetadata(MetaScheme, x.desc.Scheme, true)
		x.root.describeRange(rootNode)
		if err := rootNode.Write(); err != nil {
			return nil, fmt.Errorf("write root node: %w", err)
		}
	}
	if err := x.closeSinks(); err != nil {
		return nil, err
	}

	sum := x.summary(start)
	x.log.Info("extraction finished", sum.LogAttrs()...)
	return sum, nil
}

// ListAll walks the store without writing archival output. withStats
// analyzes every element (dates, nested stores) and writes the CSV element
// lists, which are the only files it creates; the archival tree is never
// written. Otherwise elements are only counted and nothing is written.
func (x *Extractor) ListAll(ctx context.Context, withStats bool) (*Summary, error) {
	start := x.now()
	x.reset()
	m := modeList
	if withStats {
		m = modeStats
		if err := x.openSinks(); err != nil {
			return nil, err
		}
		defer x.closeSinks()
	}

	if err := x.walk(ctx, m, nil, nil); err != nil {
		return nil, err
	}
	if err := x.closeSinks(); err != nil {
		return nil, err
	}
	return x.summary(start), nil
}

// walk runs the root folder of x. host is the folder of the message that
// holds a nested store, so that date ranges widen across store boundaries.
func (x *Extractor) walk(ctx context.Context, m mode, node archive.Node, host *folder) error {
	sf, err := x.store.Folder(ctx, x.rootPath)
	if err != nil {
		return fmt.Errorf("open root folder %q: %w", x.rootPath, err)
	}
	x.root = &folder{x: x, src: sf, parent: host, node: node, name: sf.Name()}
	switch {
	case host != nil:
		x.root.path = path.Join(host.path, x.desc.Path)
	case x.rootPath != "":
		x.root.path = x.rootPath
	default:
		x.root.path = sf.Name()
	}
	if x.parent == nil || x.container {
		x.stats.Folders++
	}
	return x.root.walk(ctx, m)
}

// reset clears per-run counters. CSV lists are rewritten on every run, so
// line ids restart; SystemIds never do.
func (x *Extractor) reset() {
	x.stats = Summary{}
	x.root = nil
	if x.parent == nil {
		x.lineIDs = make(map[archive.Kind]int)
	}
}

// Accumulate merges the counters of a finished nested extraction.
func (x *Extractor) Accumulate(sub *Extractor) {
	x.stats.Elements += sub.stats.Elements
	x.stats.Folders += sub.stats.Folders
	x.stats.RawBytes += sub.stats.RawBytes
	x.stats.Messages += sub.stats.Messages
	x.stats.Contacts += sub.stats.Contacts
	x.stats.Appointments += sub.stats.Appointments
	x.stats.AttachedMessages += sub.stats.Messages
}

// Close flushes and closes the CSV lists and the store. It is idempotent.
func (x *Extractor) Close() error {
	if x.closed {
		return nil
	}
	x.closed = true
	err := x.closeSinks()
	if x.store != nil {
		if cerr := x.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (x *Extractor) summary(start time.Time) *Summary {
	s := x.stats
	if x.root != nil {
		s.Begin, s.End = x.root.begin, x.root.end
	}
	s.Duration = x.now().Sub(start)
	return &s
}

func (x *Extractor) title(at time.Time) string {
	stamp := at.UTC().Format(time.RFC3339)
	if t := x.desc.Target(); t != "" {
		return t + " extracted " + stamp
	}
	return "extracted " + stamp
}

func (x *Extractor) rootName() string {
	name := path.Base(strings.TrimRight(x.desc.Path, "/"))
	if name == "." || name == "/" || name == "" {
		name = x.desc.Host
	}
	return x.nodeName(name, string(archive.KindRoot))
}

// nodeName derives a node name from a label: first line, truncated.
func (x *Extractor) nodeName(label, fallback string) string {
	name := textutil.TruncateRunes(strings.TrimSpace(textutil.FirstLine(label)), x.opts.NamesLength)
	if name == "" {
		return fallback
	}
	return name
}

// createNode creates a node stamped with a job-wide unique SystemId.
func (x *Extractor) createNode(parent archive.Node, kind archive.Kind, name string) (archive.Node, error) {
	n, err := x.writer.CreateNode(parent, kind, name)
	if err != nil {
		return nil, err
	}
	n.AddMetadata(MetaSystemID, strconv.FormatInt(x.NextIdentifier(), 10), true)
	return n, nil
}

// problem logs a recoverable per-element issue.
func (x *Extractor) problem(msg string, args ...any) {
	if x.opts.WarnOnMessageProblem {
		x.log.Warn(msg, args...)
		return
	}
	x.log.Debug(msg, args...)
}
