// Package tabix serves region queries over BGZF-compressed, tabix-indexed
// GWAS files and builds such files from plain text output.
package tabix

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	htstabix "github.com/biogo/hts/tabix"
	"github.com/klauspost/pgzip"
)

// Extension is the suffix of a tabix index next to its data file.
const Extension = ".tbi"

// layout locates the interval of a data line. Columns are 0-based field
// numbers; end equals begin for single-position files.
type layout struct {
	name, begin, end int
	zeroBased        bool
	meta             string
}

// layoutOf reads the column layout stored in a tabix header, where column
// numbers are 1-based and a zero end column means "same as begin".
func layoutOf(idx *htstabix.Index) layout {
	l := layout{
		name:      int(idx.NameColumn) - 1,
		begin:     int(idx.BeginColumn) - 1,
		end:       int(idx.EndColumn) - 1,
		zeroBased: idx.ZeroBased,
	}
	if l.name < 0 {
		l.name = 0
	}
	if l.begin < 0 {
		l.begin = 1
	}
	if l.end < 0 {
		l.end = l.begin
	}
	if idx.MetaChar != 0 {
		l.meta = string(idx.MetaChar)
	}
	return l
}

// Index opens tabix-indexed files.
type Index struct {
	// Readers is the number of concurrent BGZF decompressors; zero means one.
	Readers int
}

// HasIndex reports whether path has a sibling index file.
func (Index) HasIndex(path string) bool {
	info, err := os.Stat(path + Extension)
	return err == nil && !info.IsDir()
}

// Open opens path and its index for region queries.
func (x Index) Open(path string) (*Handle, error) {
	idx, err := readIndex(path + Extension)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open indexed file: %w", err)
	}
	rd := x.Readers
	if rd <= 0 {
		rd = 1
	}
	bgz, err := bgzf.NewReader(f, rd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create bgzf reader: %w", err)
	}
	return &Handle{f: f, bgz: bgz, idx: idx, layout: layoutOf(idx)}, nil
}

func readIndex(path string) (*htstabix.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tabix index: %w", err)
	}
	defer f.Close()

	// The index is itself BGZF compressed; ReadFrom expects the raw bytes.
	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress tabix index: %w", err)
	}
	defer gz.Close()

	idx, err := htstabix.ReadFrom(gz)
	if err != nil {
		return nil, fmt.Errorf("read tabix index: %w", err)
	}
	return idx, nil
}

// Handle is an open indexed file. It is not safe for concurrent use.
type Handle struct {
	f      *os.File
	bgz    *bgzf.Reader
	idx    *htstabix.Index
	layout layout
}

// Names returns the sequence names present in the index.
func (h *Handle) Names() []string {
	return h.idx.Names()
}

// Fetch yields the lines whose position falls in contig:[start, end),
// with 0-based half-open coordinates. An unknown contig yields nothing.
func (h *Handle) Fetch(contig string, start, end int64) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if end <= start {
			return
		}
		chunks, err := h.idx.Chunks(contig, int(start), int(end))
		if errors.Is(err, index.ErrNoReference) {
			return
		}
		if err != nil {
			yield("", fmt.Errorf("query index: %w", err))
			return
		}
		if len(chunks) == 0 {
			return
		}

		cr, err := index.NewChunkReader(h.bgz, chunks)
		if err != nil {
			yield("", fmt.Errorf("seek indexed file: %w", err))
			return
		}
		defer cr.Close()

		br := bufio.NewReader(cr)
		for {
			line, err := br.ReadString('\n')
			if line = strings.TrimRight(line, "\r\n"); line != "" && !h.layout.isMeta(line) {
				if h.layout.overlaps(line, contig, start, end) {
					if !yield(line, nil) {
						return
					}
				}
			}
			if err != nil {
				if err != io.EOF {
					yield("", fmt.Errorf("read indexed file: %w", err))
				}
				return
			}
		}
	}
}

func (l layout) isMeta(line string) bool {
	return l.meta != "" && strings.HasPrefix(line, l.meta)
}

// overlaps reports whether a data line lies in the query window. Chunks
// cover whole blocks, so neighbouring lines must be dropped here. Lines
// whose coordinates cannot be read are passed on for the parser to report.
func (l layout) overlaps(line, contig string, start, end int64) bool {
	fields := strings.Split(line, "\t")
	if len(fields) <= max(l.name, l.begin, l.end) {
		return true
	}
	if fields[l.name] != contig {
		return false
	}
	b, err := strconv.ParseInt(fields[l.begin], 10, 64)
	if err != nil {
		return true
	}
	if !l.zeroBased {
		b--
	}
	e := b + 1
	if l.end != l.begin {
		// A 1-based inclusive end and a 0-based exclusive end are the same number.
		if e, err = strconv.ParseInt(fields[l.end], 10, 64); err != nil {
			return true
		}
	}
	return b < end && e > start
}

// Close releases the file.
func (h *Handle) Close() error {
	err := h.bgz.Close()
	if cerr := h.f.Close(); err == nil {
		err = cerr
	}
	return err
}
