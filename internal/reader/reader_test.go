package reader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/parser"
)

var sampleLines = []string{
	"chrom\tpos\tref\talt\tpvalue",
	"1\t100\tA\tG\t0.01",
	"1\t200\tC\tT\t0.5",
	"",
	"X\t300\t.\tA\t1e-10",
}

func columnsParser(t *testing.T) *parser.LineParser {
	t.Helper()
	cfg := parser.NewConfig()
	cfg.Chrom, cfg.Pos, cfg.Ref, cfg.Alt, cfg.Pvalue = 0, 1, 2, 3, 4
	p, err := parser.NewLineParser(cfg)
	require.NoError(t, err)
	return p
}

func noLookup(gwas.Row) (any, error) { return nil, nil }

func collect(t *testing.T, r *Reader) []*gwas.Record {
	t.Helper()
	var out []*gwas.Record
	for rec, err := range r.Records() {
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestReader_Iterable(t *testing.T) {
	r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})

	recs := collect(t, r)
	require.Len(t, recs, 3, "blank lines are skipped")
	assert.Equal(t, "1", recs[0].Chrom)
	assert.Equal(t, int64(200), recs[1].Pos)
	assert.Equal(t, "X", recs[2].Chrom)
	assert.Nil(t, recs[2].Ref)
	assert.Empty(t, r.Errors())

	assert.Len(t, collect(t, r), 3, "iteration restarts from the beginning")
}

func TestReader_RawLines(t *testing.T) {
	r := NewIterableReader(sampleLines, nil, Options{})
	var lines []gwas.Row
	for row, err := range r.Rows() {
		require.NoError(t, err)
		lines = append(lines, row)
	}
	require.Len(t, lines, 4)
	assert.Equal(t, gwas.Line("chrom\tpos\tref\talt\tpvalue"), lines[0])

	for _, err := range r.Records() {
		var ce *gwas.ConfigError
		assert.True(t, errors.As(err, &ce))
		break
	}
}

func TestReader_EarlyBreak(t *testing.T) {
	r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})
	n := 0
	for range r.Rows() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestReader_FailFast(t *testing.T) {
	lines := []string{"#header", "1\t100\tA\tG\t0.01", "1\tbad\tA\tG\t0.01", "1\t300\tA\tG\t0.01"}
	r := NewIterableReader(lines, columnsParser(t), Options{SkipRows: 1})

	var got int
	var err error
	for _, e := range r.Records() {
		if e != nil {
			err = e
			break
		}
		got++
	}
	assert.Equal(t, 1, got)
	var lpe *gwas.LineParseError
	require.True(t, errors.As(err, &lpe))
	assert.Contains(t, err.Error(), "line 3")
}

func TestReader_SkipErrors(t *testing.T) {
	lines := []string{"#header", "1\t100\tA\tG\t0.01", "1\tbad\tA\tG\t0.01", "1\t300\tA\tG\t2"}
	r := NewIterableReader(lines, columnsParser(t), Options{SkipRows: 1, SkipErrors: true})

	recs := collect(t, r)
	assert.Len(t, recs, 1)
	errs := r.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, 3, errs[0].Line, "line numbers count header rows")
	assert.Equal(t, "1\tbad\tA\tG\t0.01", errs[0].Raw)
	assert.Contains(t, errs[0].Message, "invalid position")
	assert.Equal(t, 4, errs[1].Line)
}

func TestReader_TooManyErrors(t *testing.T) {
	lines := []string{"bad", "worse", "worst", "1\t100\tA\tG\t0.01"}
	r := NewIterableReader(lines, columnsParser(t), Options{SkipErrors: true, MaxErrors: 2})

	var err error
	for _, e := range r.Rows() {
		if e != nil {
			err = e
		}
	}
	var tooMany *gwas.TooManyBadLinesError
	require.True(t, errors.As(err, &tooMany))
	assert.Len(t, tooMany.Errors, 2)
	assert.Len(t, r.Errors(), 2, "the log is available after a failed read")
}

func TestReader_Lookups(t *testing.T) {
	r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})

	require.NoError(t, r.AddLookup(gwas.FieldRsid, func(row gwas.Row) (any, error) {
		pos, _ := row.Get(gwas.FieldPos)
		if pos == int64(100) {
			return "rs100", nil
		}
		return nil, nil
	}))
	recs := collect(t, r)
	require.Len(t, recs, 3)
	assert.Equal(t, "rs100", *recs[0].Rsid)
	assert.Nil(t, recs[1].Rsid)

	var ce *gwas.ConfigError
	assert.True(t, errors.As(r.AddLookup("dummy", noLookup), &ce))
	assert.True(t, errors.As(r.AddLookup(gwas.FieldRsid, nil), &ce))
	assert.True(t, errors.As(r.AddLookup(gwas.FieldMarker, noLookup), &ce), "derived fields cannot be looked up")

	raw := NewIterableReader(sampleLines, parser.TupleParser{}, Options{})
	assert.True(t, errors.As(raw.AddLookup(gwas.FieldRsid, noLookup), &ce), "tuples have no named fields")
}

func TestReader_LookupErrors(t *testing.T) {
	storeDown := errors.New("store unavailable")
	failAt200 := func(row gwas.Row) (any, error) {
		if pos, _ := row.Get(gwas.FieldPos); pos == int64(200) {
			return nil, storeDown
		}
		return nil, nil
	}

	t.Run("strict mode stops", func(t *testing.T) {
		r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})
		require.NoError(t, r.AddLookup(gwas.FieldRsid, failAt200))

		var err error
		for _, e := range r.Rows() {
			if e != nil {
				err = e
			}
		}
		require.ErrorIs(t, err, storeDown)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("tolerant mode records a line error", func(t *testing.T) {
		r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1, SkipErrors: true})
		require.NoError(t, r.AddLookup(gwas.FieldRsid, failAt200))

		recs := collect(t, r)
		assert.Len(t, recs, 2)
		errs := r.Errors()
		require.Len(t, errs, 1)
		assert.Equal(t, 3, errs[0].Line)
		assert.Equal(t, "1\t200\tC\tT\t0.5", errs[0].Raw)
		assert.Contains(t, errs[0].Message, "store unavailable")
	})

	t.Run("lookup errors count toward the budget", func(t *testing.T) {
		r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1, SkipErrors: true, MaxErrors: 1})
		require.NoError(t, r.AddLookup(gwas.FieldRsid, failAt200))

		var err error
		for _, e := range r.Rows() {
			if e != nil {
				err = e
			}
		}
		var tooMany *gwas.TooManyBadLinesError
		require.True(t, errors.As(err, &tooMany))
		assert.Len(t, tooMany.Errors, 1)
	})
}

func TestReader_Transforms(t *testing.T) {
	r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})
	require.NoError(t, r.AddTransform(func(row gwas.Row) gwas.Row {
		rec := row.(*gwas.Record)
		rec.Chrom = "chr" + rec.Chrom
		return rec
	}))
	require.NoError(t, r.AddTransform(func(row gwas.Row) gwas.Row {
		if row.(*gwas.Record).Chrom == "chrX" {
			return nil
		}
		return row
	}))

	recs := collect(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, "chr1", recs[0].Chrom)
}

func TestReader_Filters(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *Reader) error
		want  []int64
	}{
		{"not missing", func(r *Reader) error { return r.AddFilter(gwas.FieldRef) }, []int64{100, 200}},
		{"value", func(r *Reader) error { return r.AddFilterValue(gwas.FieldChrom, "X") }, []int64{300}},
		{"numeric value", func(r *Reader) error { return r.AddFilterValue(gwas.FieldPos, 200) }, []int64{200}},
		{"function", func(r *Reader) error {
			return r.AddFilterFunc(func(row gwas.Row) bool {
				return row.(*gwas.Record).Marker() == "1:100_A/G"
			})
		}, []int64{100}},
		{"all must accept", func(r *Reader) error {
			if err := r.AddFilterValue(gwas.FieldChrom, "1"); err != nil {
				return err
			}
			return r.AddFilterFunc(func(row gwas.Row) bool { return row.(*gwas.Record).Pos > 150 })
		}, []int64{200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})
			require.NoError(t, tt.setup(r))
			var got []int64
			for _, rec := range collect(t, r) {
				got = append(got, rec.Pos)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	r := NewIterableReader(sampleLines, columnsParser(t), Options{SkipRows: 1})
	var ce *gwas.ConfigError
	assert.True(t, errors.As(r.AddFilter("dummy_field"), &ce))
	assert.True(t, errors.As(r.AddFilterFunc(nil), &ce))
	assert.NoError(t, r.AddFilter(gwas.FieldPvalue), "derived fields can be filtered")
}

func TestReader_File(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join(sampleLines, "\n") + "\n"

	plain := filepath.Join(dir, "plain.tsv")
	require.NoError(t, os.WriteFile(plain, []byte(content), 0o644))

	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	compressed := filepath.Join(dir, "compressed.tsv.gz")
	require.NoError(t, os.WriteFile(compressed, buf.Bytes(), 0o644))

	for _, path := range []string{plain, compressed} {
		r := NewFileReader(path, columnsParser(t), Options{SkipRows: 1})
		assert.Len(t, collect(t, r), 3, path)
	}

	r := NewFileReader(filepath.Join(dir, "missing.tsv"), columnsParser(t), Options{})
	for _, err := range r.Rows() {
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
}

func TestReader_Stream(t *testing.T) {
	content := strings.Join(sampleLines, "\r\n")
	r := NewStreamReader(strings.NewReader(content), columnsParser(t), Options{SkipRows: 1})
	recs := collect(t, r)
	require.Len(t, recs, 3)
	assert.InDelta(t, 10.0, *recs[2].NegLogPvalue, 1e-9)

	for _, err := range r.Rows() {
		assert.ErrorIs(t, err, ErrConsumed)
	}
}

func TestPeek(t *testing.T) {
	src := NewStreamSource(strings.NewReader(strings.Join(sampleLines, "\n")))
	head, rest, err := Peek(src, 2)
	require.NoError(t, err)
	assert.Equal(t, sampleLines[:2], head)

	var all []string
	for line, err := range rest.Lines() {
		require.NoError(t, err)
		all = append(all, line)
	}
	assert.Equal(t, sampleLines, all, "peeked lines are replayed")

	iterable := IterableSource{Items: sampleLines}
	head, same, err := Peek(iterable, 10)
	require.NoError(t, err)
	assert.Len(t, head, len(sampleLines))
	assert.Equal(t, iterable, same)
}
