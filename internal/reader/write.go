package reader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/output"
	"github.com/inodb/gwasnorm/internal/tabix"
)

// Indexer compresses a written file and builds a region index for it,
// returning the path of the compressed file.
type Indexer interface {
	Index(path string) (string, error)
}

// WriteOptions configures Write and WriteTo.
type WriteOptions struct {
	// Columns defaults to the parser's fields.
	Columns []string
	// Delimiter defaults to tab.
	Delimiter string
	// MakeIndex compresses the output with BGZF and indexes it with tabix.
	MakeIndex bool
	// Indexer defaults to tabix.Indexer.
	Indexer Indexer
}

func (r *Reader) columns(opts WriteOptions) ([]string, error) {
	if len(opts.Columns) == 0 {
		fields, ok := r.fieldNames()
		if !ok {
			return nil, &gwas.ConfigError{Message: "no output columns given and the parser does not list its fields"}
		}
		return fields, nil
	}
	for _, col := range opts.Columns {
		if err := r.checkReadable(col); err != nil {
			return nil, err
		}
	}
	return opts.Columns, nil
}

// WriteTo writes every row of a full pass to w.
func (r *Reader) WriteTo(w io.Writer, opts WriteOptions) error {
	if opts.MakeIndex {
		return &gwas.ConfigError{Message: "an index can only be built when writing to a named file"}
	}
	cols, err := r.columns(opts)
	if err != nil {
		return err
	}
	return r.write(w, cols, opts.Delimiter)
}

// Write writes every row of a full pass to the file dest and returns the
// path of the result. With MakeIndex the returned path is the compressed,
// indexed file.
func (r *Reader) Write(dest string, opts WriteOptions) (string, error) {
	if opts.MakeIndex && dest == "" {
		return "", &gwas.ConfigError{Message: "an index can only be built when writing to a named file"}
	}
	cols, err := r.columns(opts)
	if err != nil {
		return "", err
	}
	if same, err := samePath(dest, r.src.Name()); err != nil {
		return "", err
	} else if same {
		return "", &gwas.ConfigError{Message: fmt.Sprintf("output path %s would overwrite the input file", dest)}
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	if err := r.write(f, cols, opts.Delimiter); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close output file: %w", err)
	}
	r.logger.Info("wrote output", zap.String("path", dest), zap.Int("skipped_lines", len(r.errors)))

	if !opts.MakeIndex {
		return dest, nil
	}
	indexer := opts.Indexer
	if indexer == nil {
		indexer = tabix.Indexer{Logger: r.logger}
	}
	out, err := indexer.Index(dest)
	if err != nil {
		return "", fmt.Errorf("index output: %w", err)
	}
	return out, nil
}

func (r *Reader) write(w io.Writer, cols []string, delimiter string) error {
	tw := output.NewTabWriter(w, cols, delimiter)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for row, err := range r.Rows() {
		if err != nil {
			return err
		}
		if err := tw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func samePath(a, b string) (bool, error) {
	if a == "" || b == "" {
		return false, nil
	}
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolve path: %w", err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolve path: %w", err)
	}
	return absA == absB, nil
}
