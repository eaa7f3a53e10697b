package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/gwasnorm/internal/parser"
	"github.com/inodb/gwasnorm/internal/reader"
	"github.com/inodb/gwasnorm/internal/sniff"
)

// columnOptions are the parser flags shared by convert, fetch and sniff.
type columnOptions struct {
	cols        parser.HumanColumns
	isNegLog    bool
	isRefEffect bool
	delimiter   string
	auto        bool
}

func (o *columnOptions) addFlags(f *pflag.FlagSet) {
	f.IntVar(&o.cols.Marker, "marker-col", 0, "Column of a chrom:pos_ref/alt marker (1-based)")
	f.IntVar(&o.cols.Chrom, "chrom-col", 0, "Chromosome column (1-based)")
	f.IntVar(&o.cols.Pos, "pos-col", 0, "Position column (1-based)")
	f.IntVar(&o.cols.Ref, "ref-col", 0, "Reference allele column (1-based)")
	f.IntVar(&o.cols.Alt, "alt-col", 0, "Alternate allele column (1-based)")
	f.IntVar(&o.cols.Pvalue, "pvalue-col", 0, "P-value column (1-based)")
	f.BoolVar(&o.isNegLog, "is-neg-log-pvalue", false, "The p-value column holds -log10(p)")
	f.IntVar(&o.cols.Rsid, "rsid-col", 0, "rsid column (1-based)")
	f.IntVar(&o.cols.Beta, "beta-col", 0, "Effect size column (1-based)")
	f.IntVar(&o.cols.StderrBeta, "stderr-beta-col", 0, "Effect size standard error column (1-based)")
	f.IntVar(&o.cols.AlleleFreq, "allele-freq-col", 0, "Allele frequency column (1-based)")
	f.IntVar(&o.cols.AlleleCount, "allele-count-col", 0, "Allele count column (1-based)")
	f.IntVar(&o.cols.NSamples, "n-samples-col", 0, "Sample size column, required with --allele-count-col (1-based)")
	f.BoolVar(&o.isRefEffect, "is-ref-effect", false, "Frequencies and effects refer to the reference allele")
	f.StringVar(&o.delimiter, "delimiter", "", "Field delimiter: tab, comma, space or a literal string (default: detect, or tab)")
	f.BoolVar(&o.auto, "auto", false, "Infer columns from the header; column flags pin individual columns")
}

func (o *columnOptions) hasColumns() bool {
	return o.cols != (parser.HumanColumns{})
}

// config builds the parser configuration described by the flags.
func (o *columnOptions) config() (parser.Config, error) {
	cfg := o.cols.Config()
	cfg.IsNegLogPvalue = o.isNegLog
	cfg.IsAltEffect = !o.isRefEffect
	d, err := parseDelimiter(o.delimiter)
	if err != nil {
		return cfg, err
	}
	cfg.Delimiter = d
	return cfg, nil
}

// parseDelimiter accepts names for the common delimiters. An empty value
// stays empty so that it can be detected.
func parseDelimiter(s string) (string, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "tab", `\t`, "\t":
		return "\t", nil
	case "comma", ",":
		return ",", nil
	case "space", " ":
		return " ", nil
	}
	if strings.TrimSpace(s) == "" {
		return "", &usageError{fmt.Errorf("invalid delimiter %q", s)}
	}
	return s, nil
}

// inputSource reads stdin when path is empty or "-".
func inputSource(path string, stdin io.Reader) reader.Source {
	if path == "" || path == "-" {
		return reader.NewStreamSource(stdin)
	}
	return reader.FileSource{Path: path}
}

// openReader builds a reader from explicit columns, or guesses the layout
// when --auto is given or no column was named.
func (a *app) openReader(src reader.Source, o columnOptions, ropts reader.Options) (*reader.Reader, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	if !o.auto && o.hasColumns() {
		if cfg.Delimiter == "" {
			cfg.Delimiter = "\t"
		}
		p, err := parser.NewLineParser(cfg)
		if err != nil {
			return nil, err
		}
		return reader.New(src, p, ropts), nil
	}

	inf, r, err := a.guess(src, o, cfg, ropts)
	if err != nil {
		return nil, err
	}
	a.logger.Info("detected file layout",
		zap.Int("header_rows", inf.HeaderRows),
		zap.String("delimiter", strconv.Quote(inf.Config.Delimiter)),
		zap.Strings("columns", describeColumns(inf.Config)))
	return r, nil
}

func (a *app) guess(src reader.Source, o columnOptions, cfg parser.Config, ropts reader.Options) (*sniff.Inference, *reader.Reader, error) {
	s := sniff.New()
	s.SampleRows = viper.GetInt("sniff.sample_rows")
	s.SetLogger(a.logger)

	gopts := sniff.GuessOptions{Delimiter: cfg.Delimiter, Reader: ropts, Sniffer: s}
	if o.hasColumns() {
		gopts.Overrides = &cfg
	}
	r, inf, err := sniff.Guess(src, gopts)
	if err != nil {
		return nil, nil, err
	}
	return inf, r, nil
}

type columnRole struct {
	name   string
	column int // 1-based
}

// columnRoles lists the configured roles with 1-based column numbers.
func columnRoles(c parser.Config) []columnRole {
	all := []columnRole{
		{"marker", c.Marker},
		{"chrom", c.Chrom},
		{"pos", c.Pos},
		{"ref", c.Ref},
		{"alt", c.Alt},
		{"rsid", c.Rsid},
		{"pvalue", c.Pvalue},
		{"beta", c.Beta},
		{"stderr_beta", c.StderrBeta},
		{"allele_freq", c.AlleleFreq},
		{"allele_count", c.AlleleCount},
		{"n_samples", c.NSamples},
	}
	var out []columnRole
	for _, r := range all {
		if parser.IsSet(r.column) {
			r.column++
			out = append(out, r)
		}
	}
	return out
}

func describeColumns(c parser.Config) []string {
	var out []string
	for _, r := range columnRoles(c) {
		out = append(out, fmt.Sprintf("%s=%d", r.name, r.column))
	}
	return out
}
