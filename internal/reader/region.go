package reader

import (
	"fmt"
	"iter"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/tabix"
)

// RegionIndex opens region queries over an indexed file.
type RegionIndex interface {
	HasIndex(path string) bool
	Open(path string) (RegionHandle, error)
}

// RegionHandle is an open indexed file. Coordinates are 0-based and
// half-open, as in tabix queries.
type RegionHandle interface {
	Fetch(contig string, start, end int64) iter.Seq2[string, error]
	Close() error
}

type tabixIndex struct {
	tabix.Index
}

func (t tabixIndex) Open(path string) (RegionHandle, error) {
	h, err := t.Index.Open(path)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func defaultIndex() RegionIndex {
	return tabixIndex{}
}

// Fetch yields the processed rows overlapping contig:[start, end). The
// index handle is opened on first use and kept until Close. Line numbers in
// Errors count lines within the region.
func (r *Reader) Fetch(contig string, start, end int64) iter.Seq2[gwas.Row, error] {
	return func(yield func(gwas.Row, error) bool) {
		h, err := r.regionHandle()
		if err != nil {
			yield(nil, err)
			return
		}
		r.errors = nil
		n := 0
		for line, err := range h.Fetch(contig, start, end) {
			if err != nil {
				yield(nil, fmt.Errorf("fetch %s:%d-%d: %w", contig, start, end, err))
				return
			}
			n++
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

// FetchRecords is Fetch restricted to parsed records.
func (r *Reader) FetchRecords(contig string, start, end int64) iter.Seq2[*gwas.Record, error] {
	return typedRecords(r.Fetch(contig, start, end))
}

func (r *Reader) regionHandle() (RegionHandle, error) {
	if r.handle != nil {
		return r.handle, nil
	}
	name := r.src.Name()
	if name == "" {
		return nil, &gwas.ConfigError{Message: "region queries require a file name"}
	}
	if !r.index.HasIndex(name) {
		return nil, &gwas.NotSupportedError{Message: fmt.Sprintf("region queries require a tabix index: %s.tbi not found", name)}
	}
	h, err := r.index.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	r.handle = h
	return h, nil
}

// Close releases the region query handle, if one is open.
func (r *Reader) Close() error {
	if r.handle == nil {
		return nil
	}
	err := r.handle.Close()
	r.handle = nil
	return err
}
