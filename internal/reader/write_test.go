package reader

import (
	"bytes"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/parser"
)

func TestReader_WriteTo(t *testing.T) {
	r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})

	var buf bytes.Buffer
	require.NoError(t, r.WriteTo(&buf, WriteOptions{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "#chrom\tpos\trsid\tref\talt\tneg_log_pvalue\tbeta\tstderr_beta\talt_allele_freq", lines[0])
	first := strings.Split(lines[1], "\t")
	assert.Equal(t, []string{"1", "100", ".", "A", "G"}, first[:5])
	assert.Equal(t, []string{".", ".", "."}, first[6:])
	last := strings.Split(lines[3], "\t")
	assert.Equal(t, []string{"X", "300", ".", ".", "A"}, last[:5], "missing ref is written as a dot")
}

func TestReader_WriteTo_Columns(t *testing.T) {
	r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})

	var buf bytes.Buffer
	require.NoError(t, r.WriteTo(&buf, WriteOptions{Columns: []string{"marker", "pos"}, Delimiter: ","}))
	assert.Equal(t, "#marker,pos\n1:100_A/G,100\n1:200_C/T,200\nX:300,300\n", buf.String())

	var ce *gwas.ConfigError
	assert.True(t, errors.As(r.WriteTo(&buf, WriteOptions{Columns: []string{"walrus"}}), &ce))
	assert.True(t, errors.As(r.WriteTo(&buf, WriteOptions{MakeIndex: true}), &ce))

	raw := NewIterableReader(sampleLines, nil, Options{})
	assert.True(t, errors.As(raw.WriteTo(&buf, WriteOptions{}), &ce), "no columns can be determined")
}

func TestReader_Write_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.tsv")
	require.NoError(t, os.WriteFile(src, []byte(strings.Join(sampleLines, "\n")), 0o644))

	r := NewFileReader(src, columnsParser(t), Options{SkipRows: 1})
	dest := filepath.Join(dir, "out.tsv")
	out, err := r.Write(dest, WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, dest, out)

	first := collect(t, r)
	again := collect(t, NewFileReader(dest, parser.NewStandardParser(), Options{SkipRows: 1}))
	require.Len(t, again, len(first))
	for i := range first {
		assert.Equal(t, first[i].Chrom, again[i].Chrom)
		assert.Equal(t, first[i].Pos, again[i].Pos)
		assert.Equal(t, first[i].Ref, again[i].Ref)
		assert.InDelta(t, *first[i].NegLogPvalue, *again[i].NegLogPvalue, 1e-12)
	}

	var ce *gwas.ConfigError
	_, err = r.Write(src, WriteOptions{})
	assert.True(t, errors.As(err, &ce), "refuses to overwrite the input")
}

type fakeIndexer struct {
	called string
}

func (f *fakeIndexer) Index(path string) (string, error) {
	f.called = path
	return path + ".gz", nil
}

func TestReader_Write_MakeIndex(t *testing.T) {
	r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})
	dest := filepath.Join(t.TempDir(), "out.tsv")

	idx := &fakeIndexer{}
	out, err := r.Write(dest, WriteOptions{MakeIndex: true, Indexer: idx})
	require.NoError(t, err)
	assert.Equal(t, dest, idx.called)
	assert.Equal(t, dest+".gz", out)
}

type fakeIndex struct {
	lines  []string
	opened int
	closed bool
}

func (f *fakeIndex) HasIndex(path string) bool { return strings.HasSuffix(path, ".gz") }

func (f *fakeIndex) Open(path string) (RegionHandle, error) {
	f.opened++
	return f, nil
}

func (f *fakeIndex) Fetch(contig string, start, end int64) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, line := range f.lines {
			fields := strings.Split(line, "\t")
			if fields[0] != contig {
				continue
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}

func (f *fakeIndex) Close() error {
	f.closed = true
	return nil
}

func TestReader_Fetch(t *testing.T) {
	idx := &fakeIndex{lines: sampleLines[1:]}
	r := NewFileReader("sample.tsv.gz", columnsParser(t), Options{SkipRows: 1, Index: idx})
	require.NoError(t, r.AddFilter(gwas.FieldRef))

	var got []int64
	for rec, err := range r.FetchRecords("1", 0, 1000) {
		require.NoError(t, err)
		got = append(got, rec.Pos)
	}
	assert.Equal(t, []int64{100, 200}, got)

	n := 0
	for _, err := range r.Fetch("X", 0, 1000) {
		require.NoError(t, err)
		n++
	}
	assert.Zero(t, n, "filters apply to fetched rows")
	assert.Equal(t, 1, idx.opened, "the handle is reused")

	require.NoError(t, r.Close())
	assert.True(t, idx.closed)
}

func TestReader_Fetch_Errors(t *testing.T) {
	idx := &fakeIndex{}

	var ce *gwas.ConfigError
	r := NewIterableReader(sampleLines, columnsParser(t), Options{Index: idx})
	for _, err := range r.Fetch("1", 0, 10) {
		assert.True(t, errors.As(err, &ce))
	}

	var ns *gwas.NotSupportedError
	r = NewFileReader("plain.tsv", columnsParser(t), Options{Index: idx})
	for _, err := range r.Fetch("1", 0, 10) {
		assert.True(t, errors.As(err, &ns))
	}
	_, err := NewIndexedReader("plain.tsv", columnsParser(t), Options{Index: idx})
	assert.True(t, errors.As(err, &ns))

	_, err = NewIndexedReader("sample.tsv.gz", columnsParser(t), Options{Index: idx})
	assert.NoError(t, err)
}
