// Package sniff infers a parser configuration from the header and a sample
// of rows of a GWAS file.
package sniff

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/parser"
)

// Header synonyms for each field.
var (
	NegLogPvalueNames = []string{"neg_log_pvalue", "log_pvalue", "log_pval", "logpvalue"}
	PvalueNames       = []string{"pvalue", "p.value", "p-value", "pval", "p_score", "p", "p_value"}
	MarkerNames       = []string{"snpid", "marker", "markerid", "snpmarker", "chr:position"}
	ChromNames        = []string{"chrom", "chr"}
	PosNames          = []string{"position", "pos", "begin", "beg", "bp", "end", "ps"}
	RefNames          = []string{"a1", "ref", "reference", "allele0", "allele1"}
	AltNames          = []string{"a2", "alt", "alternate", "allele1", "allele2"}
	BetaNames         = []string{"beta", "effect_size", "alt_effsize", "effect"}
	StderrBetaNames   = []string{"stderr_beta", "stderr", "sebeta", "effect_size_sd", "se", "standard_error"}
	AlleleFreqNames   = []string{"alt_allele_freq", "allele_freq", "af", "alt_af", "freq", "eaf"}
)

// DefaultSampleRows is the number of data rows used to validate guesses.
const DefaultSampleRows = 100

// Thresholds bound the edit distance per field group: a header matches when
// its distance is strictly below the threshold. Zero means DefaultThreshold.
type Thresholds struct {
	Pvalue   int
	Marker   int
	Position int // chrom, pos, ref and alt
	Optional int // beta, stderr and allele frequency
}

// DefaultThresholds returns the thresholds used by New.
func DefaultThresholds() Thresholds {
	return Thresholds{Pvalue: 2, Marker: 4, Position: 2, Optional: 1}
}

// Sniffer infers column roles from header names and sample values.
type Sniffer struct {
	Thresholds Thresholds
	SampleRows int
	logger     *zap.Logger
}

// New creates a Sniffer with default thresholds.
func New() *Sniffer {
	return &Sniffer{
		Thresholds: DefaultThresholds(),
		SampleRows: DefaultSampleRows,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger used to report ambiguous matches.
func (s *Sniffer) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Inference is the result of sniffing a file.
type Inference struct {
	Config     parser.Config
	Headers    []string
	HeaderRows int
	// Warnings lists fuzzy or ambiguous column assignments worth checking.
	Warnings []string
}

type group struct {
	name      string
	synonyms  []string
	threshold int
}

func (s *Sniffer) groups() []group {
	th := s.Thresholds
	return []group{
		{"pvalue", slices.Concat(NegLogPvalueNames, PvalueNames), th.Pvalue},
		{"marker", MarkerNames, th.Marker},
		{gwas.FieldChrom, ChromNames, th.Position},
		{gwas.FieldPos, PosNames, th.Position},
		{gwas.FieldRef, RefNames, th.Position},
		{gwas.FieldAlt, AltNames, th.Position},
		{gwas.FieldBeta, BetaNames, th.Optional},
		{gwas.FieldStderrBeta, StderrBetaNames, th.Optional},
		{gwas.FieldAltAlleleFreq, AlleleFreqNames, th.Optional},
	}
}

type inference struct {
	*Inference
	s       *Sniffer
	headers []string // normalized; claimed entries replaced by Claimed
	rows    [][]string
	roles   map[int]string
}

// Infer resolves column roles. Columns set in overrides win over anything
// found by name; overrides should start from parser.NewConfig.
func (s *Sniffer) Infer(headers []string, rows [][]string, overrides parser.Config) (*Inference, error) {
	if s.SampleRows > 0 && len(rows) > s.SampleRows {
		rows = rows[:s.SampleRows]
	}
	in := &inference{
		Inference: &Inference{Config: parser.NewConfig(), Headers: normalizeHeaders(headers)},
		s:         s,
		rows:      rows,
		roles:     make(map[int]string),
	}
	in.headers = slices.Clone(in.Headers)

	cfg := &in.Config
	cfg.Delimiter = overrides.Delimiter
	if cfg.Delimiter == "" {
		cfg.Delimiter = "\t"
	}
	cfg.IsAltEffect = overrides.IsAltEffect
	cfg.Rsid = overrides.Rsid
	cfg.AlleleCount = overrides.AlleleCount
	cfg.NSamples = overrides.NSamples
	for _, i := range overrideColumns(overrides) {
		in.claim(i, "override")
	}

	if err := in.pvalue(overrides); err != nil {
		return nil, err
	}
	if err := in.position(overrides); err != nil {
		return nil, err
	}
	in.optional(overrides)
	in.checkAmbiguity()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, w := range in.Warnings {
		s.logger.Warn("column detection", zap.String("warning", w))
	}
	return in.Inference, nil
}

func overrideColumns(c parser.Config) []int {
	var out []int
	for _, i := range []int{
		c.Marker, c.Chrom, c.Pos, c.Ref, c.Alt, c.Rsid, c.Pvalue,
		c.Beta, c.StderrBeta, c.AlleleFreq, c.AlleleCount, c.NSamples,
	} {
		if parser.IsSet(i) {
			out = append(out, i)
		}
	}
	return out
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(strings.TrimLeft(h, "#"))
	}
	return out
}

func (in *inference) claim(i int, role string) {
	if i >= 0 && i < len(in.headers) {
		in.headers[i] = Claimed
		if _, ok := in.roles[i]; !ok {
			in.roles[i] = role
		}
	}
}

// find searches unclaimed headers and records a warning for inexact matches.
func (in *inference) find(field string, synonyms []string, threshold int) int {
	i := FindColumn(synonyms, in.headers, threshold)
	if i >= 0 {
		if d := distance(synonyms, in.Headers[i]); d > 0 {
			in.warn("column %q assigned to %s by fuzzy match (edit distance %d)", in.Headers[i], field, d)
		}
	}
	return i
}

func (in *inference) warn(format string, args ...any) {
	in.Warnings = append(in.Warnings, fmt.Sprintf(format, args...))
}

func (in *inference) pvalue(overrides parser.Config) error {
	cfg := &in.Config
	if parser.IsSet(overrides.Pvalue) {
		cfg.Pvalue = overrides.Pvalue
		cfg.IsNegLogPvalue = overrides.IsNegLogPvalue
		in.claim(cfg.Pvalue, "pvalue")
		return nil
	}

	th := in.s.Thresholds.Pvalue
	neg := FindColumn(NegLogPvalueNames, in.headers, th)
	if neg >= 0 && !in.validPvalues(neg, true) {
		neg = -1
	}
	lin := FindColumn(PvalueNames, in.headers, th)
	if lin >= 0 && !in.validPvalues(lin, false) {
		lin = -1
	}
	switch {
	case neg >= 0:
		cfg.Pvalue, cfg.IsNegLogPvalue = neg, true
	case lin >= 0:
		cfg.Pvalue, cfg.IsNegLogPvalue = lin, false
	default:
		return &gwas.SnifferError{Field: "pvalue"}
	}
	in.claim(cfg.Pvalue, "pvalue")
	return nil
}

func (in *inference) position(overrides parser.Config) error {
	cfg := &in.Config
	if parser.IsSet(overrides.Marker) {
		cfg.Marker = overrides.Marker
		in.claim(cfg.Marker, "marker")
		return nil
	}

	partial := parser.IsSet(overrides.Chrom) || parser.IsSet(overrides.Pos) ||
		parser.IsSet(overrides.Ref) || parser.IsSet(overrides.Alt)
	if !partial {
		if m := FindColumn(MarkerNames, in.headers, in.s.Thresholds.Marker); m >= 0 && in.validMarker(m) {
			if d := distance(MarkerNames, in.Headers[m]); d > 0 {
				in.warn("column %q assigned to marker by fuzzy match (edit distance %d)", in.Headers[m], d)
			}
			cfg.Marker = m
			in.claim(m, "marker")
			return nil
		}
	}

	fields := []struct {
		name     string
		synonyms []string
		override int
		dst      *int
	}{
		{gwas.FieldChrom, ChromNames, overrides.Chrom, &cfg.Chrom},
		{gwas.FieldPos, PosNames, overrides.Pos, &cfg.Pos},
		{gwas.FieldRef, RefNames, overrides.Ref, &cfg.Ref},
		{gwas.FieldAlt, AltNames, overrides.Alt, &cfg.Alt},
	}
	resolved := make([]int, len(fields))
	for k, f := range fields {
		i := f.override
		if !parser.IsSet(i) {
			i = in.find(f.name, f.synonyms, in.s.Thresholds.Position)
		}
		if i < 0 {
			return &gwas.SnifferError{Field: "SNP identifier columns"}
		}
		resolved[k] = i
		in.claim(i, f.name)
	}
	for k, f := range fields {
		*f.dst = resolved[k]
	}
	return nil
}

func (in *inference) optional(overrides parser.Config) {
	cfg := &in.Config
	th := in.s.Thresholds.Optional
	fields := []struct {
		name     string
		synonyms []string
		override int
		dst      *int
		lo, hi   float64
	}{
		{gwas.FieldBeta, BetaNames, overrides.Beta, &cfg.Beta, math.Inf(-1), math.Inf(1)},
		{gwas.FieldStderrBeta, StderrBetaNames, overrides.StderrBeta, &cfg.StderrBeta, math.Inf(-1), math.Inf(1)},
		{gwas.FieldAltAlleleFreq, AlleleFreqNames, overrides.AlleleFreq, &cfg.AlleleFreq, 0, 1},
	}
	for _, f := range fields {
		if parser.IsSet(f.override) {
			*f.dst = f.override
			in.claim(f.override, f.name)
			continue
		}
		if f.name == gwas.FieldAltAlleleFreq && parser.IsSet(cfg.AlleleCount) {
			continue
		}
		i := in.find(f.name, f.synonyms, th)
		if i < 0 || !in.validFloats(i, f.lo, f.hi) {
			continue
		}
		*f.dst = i
		in.claim(i, f.name)
	}
}

// checkAmbiguity flags assigned headers that also resemble another field.
func (in *inference) checkAmbiguity() {
	groups := in.s.groups()
	for i, role := range in.roles {
		if role == "override" {
			continue
		}
		var also []string
		for _, g := range groups {
			if g.name == role {
				continue
			}
			if FindColumn(g.synonyms, in.Headers[i:i+1], g.threshold) == 0 {
				also = append(also, g.name)
			}
		}
		if len(also) > 0 {
			slices.Sort(also)
			in.warn("column %q assigned to %s also resembles %s", in.Headers[i], role, strings.Join(also, ", "))
		}
	}
	slices.Sort(in.Warnings)
}

func (in *inference) validPvalues(col int, isNegLog bool) bool {
	for _, row := range in.rows {
		if col >= len(row) {
			return false
		}
		if _, err := parser.ParseNegLogPvalue(row[col], isNegLog); err != nil {
			return false
		}
	}
	return true
}

func (in *inference) validMarker(col int) bool {
	if len(in.rows) == 0 || col >= len(in.rows[0]) {
		return false
	}
	_, ok := parser.MatchMarker(in.rows[0][col])
	return ok
}

func (in *inference) validFloats(col int, lo, hi float64) bool {
	for _, row := range in.rows {
		if col >= len(row) {
			return false
		}
		if gwas.IsMissing(row[col]) {
			continue
		}
		f, err := parser.ParseFloat(row[col])
		if err != nil || f < lo || f > hi {
			return false
		}
	}
	return true
}
