package parser

import (
	"fmt"
	"slices"
	"strings"

	"github.com/inodb/gwasnorm/internal/gwas"
)

// LineParser converts one delimited line into a *gwas.Record. It holds a
// private copy of its Config and no other state, so a single parser may be
// used from several goroutines.
type LineParser struct {
	cfg     Config
	minCols int
}

// NewLineParser validates cfg and returns a parser for it.
func NewLineParser(cfg Config) (*LineParser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	minCols := 0
	for _, i := range cfg.columns() {
		minCols = max(minCols, i+1)
	}
	return &LineParser{cfg: cfg, minCols: minCols}, nil
}

// NewStandardParser returns a parser for the canonical output format.
func NewStandardParser() *LineParser {
	p, err := NewLineParser(StandardConfig())
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns the parser's configuration.
func (p *LineParser) Config() Config {
	return p.cfg
}

// Fields lists the named fields of the rows this parser yields.
func (p *LineParser) Fields() []string {
	return slices.Clone(gwas.Fields)
}

// Parse implements the reader's parser contract.
func (p *LineParser) Parse(line string) (gwas.Row, error) {
	rec, err := p.ParseRecord(line)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ParseRecord parses line into a record. Every failure is returned as a
// *gwas.LineParseError holding the raw line.
func (p *LineParser) ParseRecord(line string) (*gwas.Record, error) {
	rec, err := p.parse(line)
	if err != nil {
		return nil, &gwas.LineParseError{Line: line, Err: err}
	}
	return rec, nil
}

func (p *LineParser) parse(line string) (*gwas.Record, error) {
	c := &p.cfg
	values := strings.Split(strings.TrimSpace(line), c.Delimiter)
	if len(values) == 1 && p.minCols > 1 {
		return nil, &gwas.ParseError{Message: "unable to split line into separate fields; this line may have a missing or incorrect delimiter"}
	}
	if len(values) < p.minCols {
		return nil, &gwas.ParseError{Message: fmt.Sprintf("line has %d fields, expected at least %d", len(values), p.minCols)}
	}

	rec := &gwas.Record{}
	var ref, alt string
	if IsSet(c.Marker) {
		m, err := ParseMarker(values[c.Marker])
		if err != nil {
			return nil, err
		}
		rec.Chrom, rec.Pos, ref, alt = m.Chrom, m.Pos, m.Ref, m.Alt
	} else {
		pos, err := ParsePosition(values[c.Pos])
		if err != nil {
			return nil, err
		}
		rec.Chrom, rec.Pos = values[c.Chrom], pos
	}
	if IsSet(c.Ref) {
		ref, alt = values[c.Ref], values[c.Alt]
	}
	rec.Chrom = normalizeChrom(rec.Chrom)
	rec.Ref = allele(ref)
	rec.Alt = allele(alt)

	nlp, err := ParseNegLogPvalue(values[c.Pvalue], c.IsNegLogPvalue)
	if err != nil {
		return nil, err
	}
	rec.NegLogPvalue = nlp

	if IsSet(c.Rsid) {
		rec.Rsid = normalizeRsid(values[c.Rsid])
	}
	if IsSet(c.Beta) {
		if rec.Beta, err = optionalFloat(values[c.Beta], "invalid beta"); err != nil {
			return nil, err
		}
	}
	if IsSet(c.StderrBeta) {
		if rec.StderrBeta, err = optionalFloat(values[c.StderrBeta], "invalid standard error"); err != nil {
			return nil, err
		}
	}
	if IsSet(c.AlleleFreq) || IsSet(c.AlleleCount) {
		in := AlleleInput{
			Freq:     column(values, c.AlleleFreq),
			Count:    column(values, c.AlleleCount),
			NSamples: column(values, c.NSamples),
		}
		if rec.AltAlleleFreq, err = ParseAlleleFrequency(in, c.IsAltEffect); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func normalizeChrom(chrom string) string {
	if len(chrom) >= 3 && strings.EqualFold(chrom[:3], "chr") {
		chrom = chrom[3:]
	}
	return strings.ToUpper(chrom)
}

func normalizeRsid(token string) *string {
	if gwas.IsMissing(token) {
		return nil
	}
	if !strings.HasPrefix(token, "rs") {
		token = "rs" + token
	}
	return &token
}

func allele(token string) *string {
	if gwas.IsMissing(token) {
		return nil
	}
	return gwas.String(strings.ToUpper(token))
}

func optionalFloat(token, msg string) (*float64, error) {
	if gwas.IsMissing(token) {
		return nil, nil
	}
	f, err := parseFloat(token)
	if err != nil {
		return nil, &gwas.ParseError{Value: token, Message: msg}
	}
	return &f, nil
}

func column(values []string, i int) *string {
	if !IsSet(i) {
		return nil
	}
	return &values[i]
}
