package tabix

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	htstabix "github.com/biogo/hts/tabix"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "#chrom\tpos\trsid\tref\talt\tneg_log_pvalue\n" +
	"1\t100\trs1\tA\tG\t1.5\n" +
	"1\t200\trs2\tC\tT\t2.5\n" +
	"1\t300\t.\tG\tA\t0.3\n" +
	"2\t50\trs4\tT\tC\t9\n"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.tsv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func requireTabix(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(DefaultCommand); err != nil {
		t.Skip("tabix not found on PATH")
	}
}

func TestIndexer_Compress(t *testing.T) {
	src := writeSample(t)
	dst := src + ".gz"
	require.NoError(t, Indexer{}.Compress(src, dst))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	gz, err := pgzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, sample, string(data))
}

func TestIndexer_MissingCommand(t *testing.T) {
	src := writeSample(t)
	_, err := Indexer{Command: "no-such-tabix-binary"}.Index(src)
	assert.Error(t, err)
	_, statErr := os.Stat(src)
	assert.NoError(t, statErr, "input is left alone when the command is missing")
}

func TestLayout_Overlaps(t *testing.T) {
	tests := []struct {
		name       string
		l          layout
		line       string
		contig     string
		start, end int64
		want       bool
	}{
		{"position at window start", written, "1\t100\tx", "1", 99, 100, true},
		{"position past window", written, "1\t100\tx", "1", 100, 200, false},
		{"position before window", written, "1\t100\tx", "1", 0, 99, false},
		{"other contig", written, "2\t100\tx", "1", 0, 1000, false},
		{"unreadable position passes", written, "1\tbad\tx", "1", 0, 10, true},
		{"short line passes", written, "1", "1", 0, 10, true},

		// Sequence name in the third column, begin and end in the first two.
		{"name in later column", layout{name: 2, begin: 0, end: 1}, "100\t150\tchr7", "chr7", 120, 130, true},
		{"inclusive end reaches window", layout{name: 2, begin: 0, end: 1}, "100\t150\tchr7", "chr7", 149, 160, true},
		{"inclusive end short of window", layout{name: 2, begin: 0, end: 1}, "100\t150\tchr7", "chr7", 150, 160, false},
		{"name in later column mismatch", layout{name: 2, begin: 0, end: 1}, "100\t150\tchr1", "chr7", 0, 1000, false},

		{"zero-based begin", layout{name: 0, begin: 1, end: 2, zeroBased: true}, "1\t10\t20", "1", 19, 25, true},
		{"zero-based exclusive end", layout{name: 0, begin: 1, end: 2, zeroBased: true}, "1\t10\t20", "1", 20, 25, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.l.overlaps(tt.line, tt.contig, tt.start, tt.end))
		})
	}
}

func TestLayoutOf(t *testing.T) {
	got := layoutOf(&htstabix.Index{NameColumn: 3, BeginColumn: 1, EndColumn: 2, MetaChar: ';'})
	assert.Equal(t, layout{name: 2, begin: 0, end: 1, meta: ";"}, got)
	assert.True(t, got.isMeta(";comment"))
	assert.False(t, got.isMeta("#comment"))

	got = layoutOf(&htstabix.Index{NameColumn: 1, BeginColumn: 2, EndColumn: 0, ZeroBased: true})
	assert.Equal(t, layout{name: 0, begin: 1, end: 1, zeroBased: true}, got)
	assert.False(t, got.isMeta("#comment"), "no meta char configured")
}

func TestIndex_Fetch(t *testing.T) {
	requireTabix(t)

	out, err := Indexer{}.Index(writeSample(t))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, ".gz"))

	var x Index
	require.True(t, x.HasIndex(out))
	assert.False(t, x.HasIndex(out+".missing"))

	h, err := x.Open(out)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, []string{"1", "2"}, h.Names())

	fetch := func(contig string, start, end int64) []string {
		var lines []string
		for line, err := range h.Fetch(contig, start, end) {
			require.NoError(t, err)
			lines = append(lines, strings.SplitN(line, "\t", 3)[1])
		}
		return lines
	}

	assert.Equal(t, []string{"200"}, fetch("1", 150, 250))
	assert.Equal(t, []string{"100", "200", "300"}, fetch("1", 0, 1000))
	assert.Equal(t, []string{"50"}, fetch("2", 0, 1000))
	assert.Empty(t, fetch("1", 300, 1000), "half-open: pos 300 is 0-based 299")
	assert.Empty(t, fetch("X", 0, 1000))

	// The handle is reusable.
	assert.True(t, slices.Equal([]string{"100"}, fetch("1", 99, 100)))
}

func TestIndex_Fetch_NameInLaterColumn(t *testing.T) {
	requireTabix(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "regions.tsv")
	require.NoError(t, os.WriteFile(src, []byte(
		";begin\tend\tchrom\tid\n"+
			"100\t150\tchr7\ta\n"+
			"400\t420\tchr7\tb\n"+
			"100\t150\tchr9\tc\n"), 0o644))
	out := src + ".gz"
	require.NoError(t, Indexer{}.Compress(src, out))
	require.NoError(t, exec.Command(DefaultCommand, "-f", "-s", "3", "-b", "1", "-e", "2", "-c", ";", out).Run())

	h, err := Index{}.Open(out)
	require.NoError(t, err)
	defer h.Close()

	var ids []string
	for line, err := range h.Fetch("chr7", 140, 410) {
		require.NoError(t, err)
		ids = append(ids, strings.Split(line, "\t")[3])
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}
