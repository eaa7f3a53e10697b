// Package parser turns delimited GWAS text lines into canonical records.
package parser

import (
	"math"
	"regexp"
	"strconv"

	"github.com/inodb/gwasnorm/internal/gwas"
)

// mantissa and exponent of a p-value written in scientific notation, used
// when the float parser underflows to zero.
var pvalueTextRe = regexp.MustCompile(`^\s*([+-]?[\d.]+)[\sxXeE*^]*(?:10\^)?([+-]?\d*)\s*$`)

// ParsePosition parses a genomic coordinate. Positions written in scientific
// notation by some tools (e.g. "1e+05") are accepted and truncated.
func ParsePosition(token string) (int64, error) {
	pos, err := parseInt(token)
	if err != nil {
		f, ferr := parseFloat(token)
		if ferr != nil || math.IsInf(f, 0) || math.IsNaN(f) || math.Abs(f) > math.MaxInt64 {
			return 0, &gwas.ParseError{Value: token, Message: "invalid position"}
		}
		pos = int64(f)
	}
	if pos < 0 {
		return 0, &gwas.RangeError{Field: gwas.FieldPos, Value: token, Message: "position must not be negative"}
	}
	return pos, nil
}

// ParseNegLogPvalue converts a p-value token to -log10(p). Missing tokens
// give nil. When isNegLog is set the token is taken as already transformed.
//
// A p-value of exactly "0" becomes +Inf. Other tokens that parse to zero have
// underflowed the float parser and are recomputed from their text, so
// "1.93e-780" gives 779.71... rather than +Inf.
func ParseNegLogPvalue(token string, isNegLog bool) (*float64, error) {
	if gwas.IsMissing(token) {
		return nil, nil
	}
	v, err := parseFloat(token)
	if err != nil {
		return nil, &gwas.ParseError{Value: token, Message: "invalid p-value"}
	}
	if isNegLog {
		return &v, nil
	}
	if v < 0 || v > 1 || math.IsNaN(v) {
		return nil, &gwas.RangeError{Field: "pvalue", Value: token, Message: "p-value must be in [0, 1]"}
	}
	if v == 0 {
		if token == "0" {
			return gwas.Float(math.Inf(1)), nil
		}
		return negLogFromText(token)
	}
	// Abs turns -0 from p == 1 into 0.
	return gwas.Float(math.Abs(math.Log10(v))), nil
}

func negLogFromText(token string) (*float64, error) {
	m := pvalueTextRe.FindStringSubmatch(token)
	if m == nil {
		return nil, &gwas.ParseError{Value: token, Message: "invalid p-value"}
	}
	base, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, &gwas.ParseError{Value: token, Message: "invalid p-value mantissa"}
	}
	if base < 0 {
		return nil, &gwas.RangeError{Field: "pvalue", Value: token, Message: "p-value must be in [0, 1]"}
	}
	var exponent int64
	if m[2] != "" {
		if exponent, err = parseInt(m[2]); err != nil {
			return nil, &gwas.ParseError{Value: token, Message: "invalid p-value exponent"}
		}
	}
	// log10(0) is -Inf, so a zero mantissa also lands on the +Inf placeholder.
	return gwas.Float(-(math.Log10(math.Abs(base)) + float64(exponent))), nil
}

// AlleleInput holds the raw allele frequency tokens of one line. Nil means
// the corresponding column is not configured.
type AlleleInput struct {
	Freq     *string
	Count    *string
	NSamples *string
}

// ParseAlleleFrequency derives the alt allele frequency from either a
// frequency column or an allele count and a sample size. The result is
// flipped to the alt allele unless isAltEffect is set.
func ParseAlleleFrequency(in AlleleInput, isAltEffect bool) (*float64, error) {
	if in.Freq != nil && in.Count != nil {
		return nil, &gwas.ConfigError{Message: "allele frequency and allele count are mutually exclusive"}
	}

	var raw float64
	switch {
	case in.Count != nil:
		if in.NSamples == nil {
			return nil, &gwas.ConfigError{Message: "allele count requires a sample size"}
		}
		if gwas.IsMissing(*in.Count) || gwas.IsMissing(*in.NSamples) {
			return nil, nil
		}
		count, err := parseFloat(*in.Count)
		if err != nil {
			return nil, &gwas.ParseError{Value: *in.Count, Message: "invalid allele count"}
		}
		n, err := parseFloat(*in.NSamples)
		if err != nil {
			return nil, &gwas.ParseError{Value: *in.NSamples, Message: "invalid sample size"}
		}
		raw = count / n / 2
	case in.Freq != nil:
		if gwas.IsMissing(*in.Freq) {
			return nil, nil
		}
		f, err := parseFloat(*in.Freq)
		if err != nil {
			return nil, &gwas.ParseError{Value: *in.Freq, Message: "invalid allele frequency"}
		}
		raw = f
	default:
		return nil, nil
	}

	if math.IsNaN(raw) || raw < 0 || raw > 1 {
		return nil, &gwas.RangeError{Field: gwas.FieldAltAlleleFreq, Value: strconv.FormatFloat(raw, 'g', -1, 64), Message: "allele frequency must be in [0, 1]"}
	}
	if !isAltEffect {
		raw = 1 - raw
	}
	return &raw, nil
}

// HumanToZero converts a 1-based column number to a 0-based index. Zero and
// negative numbers mean "not set" and map to -1.
func HumanToZero(n int) int {
	if n <= 0 {
		return Unset
	}
	return n - 1
}
