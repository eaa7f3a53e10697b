package sniff

import (
	"slices"
	"strings"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/parser"
	"github.com/inodb/gwasnorm/internal/reader"
)

// maxHeaderRows bounds how many leading lines may be treated as headers.
const maxHeaderRows = 50

// GuessOptions configures Guess. Config and Overrides are mutually
// exclusive.
type GuessOptions struct {
	// Config skips inference; only header rows are counted.
	Config *parser.Config
	// Overrides pins some columns and lets the rest be inferred.
	Overrides *parser.Config
	// Delimiter is detected from the first line when empty.
	Delimiter string
	// Reader configures the returned reader. SkipRows is set from the
	// number of header rows found.
	Reader  reader.Options
	Sniffer *Sniffer
}

// Guess inspects the head of src and returns a reader configured to parse
// it, together with what was inferred.
func Guess(src reader.Source, opts GuessOptions) (*reader.Reader, *Inference, error) {
	if opts.Config != nil && opts.Overrides != nil {
		return nil, nil, &gwas.ConfigError{Message: "an explicit parser configuration cannot be combined with column overrides"}
	}
	s := opts.Sniffer
	if s == nil {
		s = New()
		if opts.Reader.Logger != nil {
			s.SetLogger(opts.Reader.Logger)
		}
	}
	sampleRows := s.SampleRows
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}

	head, src, err := reader.Peek(src, maxHeaderRows+sampleRows)
	if err != nil {
		return nil, nil, err
	}

	delimiter := opts.Delimiter
	if delimiter == "" && opts.Config != nil {
		delimiter = opts.Config.Delimiter
	}
	if delimiter == "" {
		delimiter = "\t"
		if first := firstDataLine(head); first != "" {
			delimiter = DetectDelimiter(first)
		}
	}

	headerRows := countHeaderRows(head, delimiter)
	var headers []string
	if headerRows > 0 {
		headers = parser.TupleParser{Delimiter: delimiter}.Split(head[headerRows-1])
	}
	rows, err := sample(head[headerRows:], delimiter, sampleRows)
	if err != nil {
		return nil, nil, err
	}

	var inf *Inference
	switch {
	case opts.Config != nil:
		inf = &Inference{Config: *opts.Config, Headers: normalizeHeaders(headers)}
		inf.Config.Delimiter = delimiter
	case opts.Overrides == nil && isStandardHeader(headers):
		inf = &Inference{Config: parser.StandardConfig(), Headers: normalizeHeaders(headers)}
		inf.Config.Delimiter = delimiter
	case len(headers) == 0:
		return nil, nil, &gwas.SnifferError{Field: "header row"}
	default:
		overrides := parser.NewConfig()
		if opts.Overrides != nil {
			overrides = *opts.Overrides
		}
		overrides.Delimiter = delimiter
		if inf, err = s.Infer(headers, rows, overrides); err != nil {
			return nil, nil, err
		}
	}
	inf.HeaderRows = headerRows

	p, err := parser.NewLineParser(inf.Config)
	if err != nil {
		return nil, nil, err
	}
	ropts := opts.Reader
	ropts.SkipRows = headerRows
	return reader.New(src, p, ropts), inf, nil
}

// firstDataLine returns the first line that is neither blank nor a comment,
// falling back to the first non-blank line.
func firstDataLine(lines []string) string {
	fallback := ""
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !strings.HasPrefix(l, "#") {
			return l
		}
		if fallback == "" {
			fallback = l
		}
	}
	return fallback
}

// countHeaderRows counts the leading lines that look like headers. Blank
// lines among them are counted too, since the reader skips by line.
func countHeaderRows(lines []string, delimiter string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" && !IsHeader(l, "#", delimiter) {
			break
		}
		n++
	}
	// A trailing run of blank lines belongs to the data.
	for n > 0 && strings.TrimSpace(lines[n-1]) == "" {
		n--
	}
	return n
}

// sample splits up to n data lines through a tolerant tuple reader.
func sample(lines []string, delimiter string, n int) ([][]string, error) {
	r := reader.NewIterableReader(lines, parser.TupleParser{Delimiter: delimiter}, reader.Options{SkipErrors: true})
	var rows [][]string
	for row, err := range r.Rows() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row.(gwas.Tuple))
		if len(rows) >= n {
			break
		}
	}
	return rows, nil
}

func isStandardHeader(headers []string) bool {
	h := normalizeHeaders(headers)
	return len(h) >= len(gwas.Fields) && slices.Equal(h[:len(gwas.Fields)], gwas.Fields)
}
