package obo

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/ontology"
)

// DefaultArchiveEntry is the OBO file looked up inside .zip sources when no
// entry is configured.
const DefaultArchiveEntry = "so-xp-simple.obo"

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	logger *slog.Logger
	entry  string
}

// WithLogger sets the logger used for load reporting and the
// duplicate-description policy.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithArchiveEntry selects the OBO file inside a .zip source.
func WithArchiveEntry(name string) LoadOption {
	return func(o *loadOptions) {
		if name != "" {
			o.entry = name
		}
	}
}

func applyLoadOptions(opts []LoadOption) *loadOptions {
	o := &loadOptions{logger: slog.Default(), entry: DefaultArchiveEntry}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Load reads an ontology from source and builds its graph. source is either
// Bundled, a path to a plain .obo file, a gzip-compressed .obo.gz file, or a
// .zip archive holding the OBO file.
//
// Missing or unreadable resources are fatal; malformed content is invalid.
func Load(ctx context.Context, source string, opts ...LoadOption) (*ontology.Graph, error) {
	o := applyLoadOptions(opts)

	start := time.Now()

	doc, err := LoadDocument(ctx, source, opts...)
	if err != nil {
		return nil, err
	}

	graph, err := doc.Build(o.logger)
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "Load", "build ontology graph")
	}

	o.logger.Info("Loaded Sequence Ontology",
		"source", source,
		"data_version", doc.HeaderValue("data-version"),
		"terms", graph.Len(),
		"edges", graph.EdgeCount(),
		"dangling_edges", graph.DanglingEdges(),
		"elapsed_ms", time.Since(start).Milliseconds())

	return graph, nil
}

// LoadDocument reads and parses source without building a graph.
func LoadDocument(ctx context.Context, source string, opts ...LoadOption) (*Document, error) {
	o := applyLoadOptions(opts)

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "Loader", "LoadDocument", "load ontology")
	}

	rc, err := open(source, o.entry)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	doc, err := Parse(&contextReader{ctx: ctx, r: rc})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "Loader", "LoadDocument", "load ontology")
		}
		return nil, errors.Wrap(err, "Loader", "LoadDocument", "parse "+source)
	}
	if len(doc.Terms()) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: no [Term] stanzas in %s", errors.ErrInvalidData, source),
			"Loader", "LoadDocument", "parse ontology")
	}
	return doc, nil
}

func open(source, entry string) (io.ReadCloser, error) {
	if source == "" {
		return nil, errors.WrapFatal(errors.ErrOntologyNotFound, "Loader", "open", "resolve ontology source")
	}
	if source == Bundled {
		return io.NopCloser(bytes.NewReader(bundledOBO)), nil
	}

	switch {
	case strings.HasSuffix(source, ".zip"):
		return openArchive(source, entry)
	case strings.HasSuffix(source, ".gz"):
		return openGzip(source)
	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, openFailure(err, source)
		}
		return f, nil
	}
}

func openFailure(err error, source string) error {
	if stderrors.Is(err, fs.ErrNotExist) {
		return errors.WrapFatal(fmt.Errorf("%w: %s", errors.ErrOntologyNotFound, source),
			"Loader", "open", "open ontology")
	}
	return errors.WrapFatal(err, "Loader", "open", "open ontology "+source)
}

func openGzip(source string) (io.ReadCloser, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, openFailure(err, source)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrDataCorrupted, err),
			"Loader", "openGzip", "read gzip header of "+source)
	}
	return &multiCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
}

func openArchive(source, entry string) (io.ReadCloser, error) {
	if _, err := os.Stat(source); err != nil {
		return nil, openFailure(err, source)
	}
	zr, err := zip.OpenReader(source)
	if err != nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrDataCorrupted, err),
			"Loader", "openArchive", "open archive "+source)
	}

	file := findEntry(zr.File, entry)
	if file == nil {
		_ = zr.Close()
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: entry %s not in %s", errors.ErrOntologyNotFound, entry, source),
			"Loader", "openArchive", "locate archive entry")
	}

	rc, err := file.Open()
	if err != nil {
		_ = zr.Close()
		return nil, errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrDataCorrupted, err),
			"Loader", "openArchive", "open archive entry "+file.Name)
	}
	return &multiCloser{Reader: rc, closers: []io.Closer{rc, zr}}, nil
}

// findEntry matches entry against the full entry name or its base name.
func findEntry(files []*zip.File, entry string) *zip.File {
	for _, f := range files {
		if f.Name == entry {
			return f
		}
	}
	for _, f := range files {
		if path.Base(f.Name) == entry {
			return f
		}
	}
	return nil
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// contextReader stops a long parse once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
