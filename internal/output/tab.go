// Package output provides the canonical GWAS text writer.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/gwasnorm/internal/gwas"
)

// TabWriter writes rows as delimited text with a "#"-prefixed header.
type TabWriter struct {
	w         *bufio.Writer
	columns   []string
	delimiter string
	values    []string
}

// NewTabWriter creates a writer for the given columns. An empty delimiter
// means tab.
func NewTabWriter(w io.Writer, columns []string, delimiter string) *TabWriter {
	if delimiter == "" {
		delimiter = "\t"
	}
	return &TabWriter{
		w:         bufio.NewWriter(w),
		columns:   columns,
		delimiter: delimiter,
		values:    make([]string, len(columns)),
	}
}

// Columns returns the output column names.
func (tw *TabWriter) Columns() []string {
	return tw.columns
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString("#" + strings.Join(tw.columns, tw.delimiter) + "\n")
	return err
}

// Write writes a single row. Fields the row does not have, and missing
// values, are written as ".".
func (tw *TabWriter) Write(row gwas.Row) error {
	for i, col := range tw.columns {
		v, ok := row.Get(col)
		if !ok {
			tw.values[i] = gwas.MissingValue
			continue
		}
		tw.values[i] = gwas.FormatValue(v)
	}
	_, err := tw.w.WriteString(strings.Join(tw.values, tw.delimiter) + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
