package parser

import (
	"github.com/inodb/gwasnorm/internal/gwas"
)

// Unset marks a column that is not configured.
const Unset = -1

// Config maps each logical field to a 0-based column index. It is a plain
// value: a LineParser keeps its own copy, so one Config can be shared freely.
type Config struct {
	Marker      int
	Chrom       int
	Pos         int
	Ref         int
	Alt         int
	Rsid        int
	Pvalue      int
	Beta        int
	StderrBeta  int
	AlleleFreq  int
	AlleleCount int
	NSamples    int

	Delimiter      string
	IsNegLogPvalue bool
	IsAltEffect    bool
}

// NewConfig returns a Config with every column unset, tab delimited, with
// allele frequencies referring to the alt allele.
func NewConfig() Config {
	return Config{
		Marker:      Unset,
		Chrom:       Unset,
		Pos:         Unset,
		Ref:         Unset,
		Alt:         Unset,
		Rsid:        Unset,
		Pvalue:      Unset,
		Beta:        Unset,
		StderrBeta:  Unset,
		AlleleFreq:  Unset,
		AlleleCount: Unset,
		NSamples:    Unset,
		Delimiter:   "\t",
		IsAltEffect: true,
	}
}

// StandardConfig reads the canonical format written by the reader:
// chrom, pos, rsid, ref, alt, neg_log_pvalue, beta, stderr_beta, alt_allele_freq.
func StandardConfig() Config {
	c := NewConfig()
	c.Chrom = 0
	c.Pos = 1
	c.Rsid = 2
	c.Ref = 3
	c.Alt = 4
	c.Pvalue = 5
	c.IsNegLogPvalue = true
	c.Beta = 6
	c.StderrBeta = 7
	c.AlleleFreq = 8
	return c
}

// HumanColumns holds 1-based column numbers as entered by a user; zero means
// "not set".
type HumanColumns struct {
	Marker, Chrom, Pos, Ref, Alt, Rsid, Pvalue          int
	Beta, StderrBeta, AlleleFreq, AlleleCount, NSamples int
}

// Config converts the human column numbers into a Config.
func (h HumanColumns) Config() Config {
	c := NewConfig()
	c.Marker = HumanToZero(h.Marker)
	c.Chrom = HumanToZero(h.Chrom)
	c.Pos = HumanToZero(h.Pos)
	c.Ref = HumanToZero(h.Ref)
	c.Alt = HumanToZero(h.Alt)
	c.Rsid = HumanToZero(h.Rsid)
	c.Pvalue = HumanToZero(h.Pvalue)
	c.Beta = HumanToZero(h.Beta)
	c.StderrBeta = HumanToZero(h.StderrBeta)
	c.AlleleFreq = HumanToZero(h.AlleleFreq)
	c.AlleleCount = HumanToZero(h.AlleleCount)
	c.NSamples = HumanToZero(h.NSamples)
	return c
}

// IsSet reports whether column index i is configured.
func IsSet(i int) bool {
	return i >= 0
}

// Validate checks that the configuration can locate every required field.
func (c Config) Validate() error {
	hasMarker := IsSet(c.Marker)
	hasChromPos := IsSet(c.Chrom) && IsSet(c.Pos)
	if hasMarker == hasChromPos {
		return &gwas.ConfigError{Message: "must specify either a marker column or both chrom and pos columns, but not both"}
	}
	if !IsSet(c.Pvalue) {
		return &gwas.ConfigError{Message: "must specify a p-value column"}
	}
	if IsSet(c.Ref) != IsSet(c.Alt) {
		return &gwas.ConfigError{Message: "ref and alt columns must be specified together"}
	}
	if IsSet(c.AlleleFreq) && IsSet(c.AlleleCount) {
		return &gwas.ConfigError{Message: "allele frequency and allele count columns are mutually exclusive"}
	}
	if IsSet(c.AlleleCount) && !IsSet(c.NSamples) {
		return &gwas.ConfigError{Message: "an allele count column requires a sample size column"}
	}
	if c.Delimiter == "" {
		return &gwas.ConfigError{Message: "delimiter must not be empty"}
	}
	return nil
}

// columns returns every configured index.
func (c Config) columns() []int {
	var out []int
	for _, i := range []int{
		c.Marker, c.Chrom, c.Pos, c.Ref, c.Alt, c.Rsid, c.Pvalue,
		c.Beta, c.StderrBeta, c.AlleleFreq, c.AlleleCount, c.NSamples,
	} {
		if IsSet(i) {
			out = append(out, i)
		}
	}
	return out
}
