// Package reader streams GWAS lines from a source through a parser,
// per-field lookups, transforms and filters, and writes the result in the
// canonical tab-delimited format.
package reader

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/gwasnorm/internal/gwas"
)

// DefaultMaxErrors is the error budget of a tolerant read.
const DefaultMaxErrors = 100

// Parser turns one line into a row. *parser.LineParser and
// parser.TupleParser implement it.
type Parser interface {
	Parse(line string) (gwas.Row, error)
}

// Options configures a Reader.
type Options struct {
	// SkipRows is the number of leading header rows to drop.
	SkipRows int
	// SkipErrors records unparseable lines instead of stopping at the first.
	SkipErrors bool
	// MaxErrors bounds the number of recorded errors; zero means
	// DefaultMaxErrors.
	MaxErrors int
	Logger    *zap.Logger
	// Index serves region queries; nil selects tabix.
	Index RegionIndex
}

type lookup struct {
	field string
	fn    func(gwas.Row) (any, error)
}

// Reader is a restartable pass over a Source. It is not safe for concurrent
// use; create one Reader per goroutine.
type Reader struct {
	src    Source
	parser Parser
	opts   Options
	logger *zap.Logger
	index  RegionIndex

	lookups    []lookup
	transforms []func(gwas.Row) gwas.Row
	filters    []func(gwas.Row) bool

	errors []gwas.LineError
	handle RegionHandle
}

// New creates a reader over src. A nil parser yields raw gwas.Line rows.
func New(src Source, p Parser, opts Options) *Reader {
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	index := opts.Index
	if index == nil {
		index = defaultIndex()
	}
	return &Reader{src: src, parser: p, opts: opts, logger: logger, index: index}
}

// NewFileReader reads a plain or gzip-compressed file.
func NewFileReader(path string, p Parser, opts Options) *Reader {
	return New(FileSource{Path: path}, p, opts)
}

// NewIterableReader reads lines held in memory.
func NewIterableReader(lines []string, p Parser, opts Options) *Reader {
	return New(IterableSource{Items: lines}, p, opts)
}

// NewStreamReader reads r once, e.g. standard input.
func NewStreamReader(r io.Reader, p Parser, opts Options) *Reader {
	return New(NewStreamSource(r), p, opts)
}

// NewIndexedReader reads a BGZF-compressed file with a tabix index next to
// it. Whole-file iteration works as for NewFileReader; Fetch additionally
// serves region queries.
func NewIndexedReader(path string, p Parser, opts Options) (*Reader, error) {
	r := NewFileReader(path, p, opts)
	if !r.index.HasIndex(path) {
		return nil, &gwas.NotSupportedError{Message: fmt.Sprintf("no index found for %s", path)}
	}
	return r, nil
}

// SetLogger sets the logger used to report skipped lines.
func (r *Reader) SetLogger(logger *zap.Logger) {
	r.logger = logger
}

// Source returns the reader's source.
func (r *Reader) Source() Source { return r.src }

// Parser returns the reader's parser, which may be nil.
func (r *Reader) Parser() Parser { return r.parser }

// Errors returns the lines rejected during the most recent pass.
func (r *Reader) Errors() []gwas.LineError {
	return slices.Clone(r.errors)
}

// Rows iterates over the source from the beginning. Iteration stops at the
// first error; in tolerant mode parse failures are recorded in Errors until
// the error budget is spent.
func (r *Reader) Rows() iter.Seq2[gwas.Row, error] {
	return func(yield func(gwas.Row, error) bool) {
		r.errors = nil
		n := 0
		for line, err := range r.src.Lines() {
			if err != nil {
				yield(nil, err)
				return
			}
			n++
			if n <= r.opts.SkipRows {
				continue
			}
			row, err := r.process(n, line)
			if err != nil {
				yield(nil, err)
				return
			}
			if row == nil {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Records is Rows restricted to parsed records. It fails when the parser
// does not produce *gwas.Record rows.
func (r *Reader) Records() iter.Seq2[*gwas.Record, error] {
	return typedRecords(r.Rows())
}

func typedRecords(rows iter.Seq2[gwas.Row, error]) iter.Seq2[*gwas.Record, error] {
	return func(yield func(*gwas.Record, error) bool) {
		for row, err := range rows {
			if err != nil {
				yield(nil, err)
				return
			}
			rec, ok := row.(*gwas.Record)
			if !ok {
				yield(nil, &gwas.ConfigError{Message: fmt.Sprintf("parser yields %T rows, not records", row)})
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// process runs one line through parse, lookups, transforms and filters.
// A nil row with a nil error means the line is skipped.
func (r *Reader) process(n int, line string) (gwas.Row, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	var row gwas.Row
	if r.parser == nil {
		row = gwas.Line(line)
	} else {
		parsed, err := r.parser.Parse(line)
		if err != nil {
			return r.reject(n, line, err)
		}
		row = parsed
	}

	for _, l := range r.lookups {
		v, err := l.fn(row)
		if err != nil {
			return r.reject(n, line, fmt.Errorf("lookup %s: %w", l.field, err))
		}
		if err := row.Set(l.field, v); err != nil {
			return nil, fmt.Errorf("line %d: lookup %s: %w", n, l.field, err)
		}
	}
	for _, t := range r.transforms {
		if row = t(row); row == nil {
			return nil, nil
		}
	}
	for _, f := range r.filters {
		if !f(row) {
			return nil, nil
		}
	}
	return row, nil
}

// reject handles a bad line: fatal in strict mode, recorded and skipped in
// tolerant mode until MaxErrors is reached.
func (r *Reader) reject(n int, line string, err error) (gwas.Row, error) {
	if !r.opts.SkipErrors {
		return nil, fmt.Errorf("line %d: %w", n, err)
	}
	r.errors = append(r.errors, gwas.LineError{Line: n, Message: err.Error(), Raw: line})
	r.logger.Debug("skipping bad line", zap.Int("line", n), zap.Error(err))
	if len(r.errors) >= r.opts.MaxErrors {
		return nil, &gwas.TooManyBadLinesError{Errors: slices.Clone(r.errors)}
	}
	return nil, nil
}
