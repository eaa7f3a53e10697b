// Package gwas defines the canonical GWAS summary-statistics record and the
// errors shared by the parsing, sniffing and reading packages.
package gwas

import (
	"fmt"
	"math"
	"strconv"
)

// Canonical field names, in default output order.
const (
	FieldChrom         = "chrom"
	FieldPos           = "pos"
	FieldRsid          = "rsid"
	FieldRef           = "ref"
	FieldAlt           = "alt"
	FieldNegLogPvalue  = "neg_log_pvalue"
	FieldBeta          = "beta"
	FieldStderrBeta    = "stderr_beta"
	FieldAltAlleleFreq = "alt_allele_freq"

	// Derived, read-only.
	FieldPvalue = "pvalue"
	FieldMarker = "marker"
)

// Fields is the fixed, ordered list of settable record fields.
var Fields = []string{
	FieldChrom,
	FieldPos,
	FieldRsid,
	FieldRef,
	FieldAlt,
	FieldNegLogPvalue,
	FieldBeta,
	FieldStderrBeta,
	FieldAltAlleleFreq,
}

// Row is a parsed line that supports name-based field access.
// Get reports false for names the row does not know.
type Row interface {
	Get(field string) (any, bool)
	Set(field string, value any) error
}

// FieldLister is implemented by parsers whose rows expose named fields.
type FieldLister interface {
	Fields() []string
}

// Record is one normalized line of GWAS summary statistics.
// Nil pointers mean the value is missing in the source.
type Record struct {
	Chrom         string   // uppercase, "chr" prefix stripped
	Pos           int64    // 1-based
	Rsid          *string  // always "rs"-prefixed
	Ref           *string  // uppercase
	Alt           *string  // uppercase
	NegLogPvalue  *float64 // -log10(p); +Inf when p underflowed to zero
	Beta          *float64
	StderrBeta    *float64
	AltAlleleFreq *float64 // oriented to the alt allele
}

// PValue returns the linear p-value. It is 0 when the -log10 value is
// infinite and nil when the p-value is missing.
func (r *Record) PValue() *float64 {
	if r.NegLogPvalue == nil {
		return nil
	}
	if math.IsInf(*r.NegLogPvalue, 1) {
		return Float(0)
	}
	return Float(math.Pow(10, -*r.NegLogPvalue))
}

// Marker formats the variant as chrom:pos_ref/alt, omitting the allele
// part when either allele is missing.
func (r *Record) Marker() string {
	if r.Ref != nil && r.Alt != nil && *r.Ref != "" && *r.Alt != "" {
		return fmt.Sprintf("%s:%d_%s/%s", r.Chrom, r.Pos, *r.Ref, *r.Alt)
	}
	return fmt.Sprintf("%s:%d", r.Chrom, r.Pos)
}

// Get returns the value of a named field. Optional fields that are missing
// are returned as untyped nil; present ones are dereferenced.
func (r *Record) Get(field string) (any, bool) {
	switch field {
	case FieldChrom:
		return r.Chrom, true
	case FieldPos:
		return r.Pos, true
	case FieldRsid:
		return derefString(r.Rsid), true
	case FieldRef:
		return derefString(r.Ref), true
	case FieldAlt:
		return derefString(r.Alt), true
	case FieldNegLogPvalue:
		return derefFloat(r.NegLogPvalue), true
	case FieldBeta:
		return derefFloat(r.Beta), true
	case FieldStderrBeta:
		return derefFloat(r.StderrBeta), true
	case FieldAltAlleleFreq:
		return derefFloat(r.AltAlleleFreq), true
	case FieldPvalue:
		return derefFloat(r.PValue()), true
	case FieldMarker:
		return r.Marker(), true
	}
	return nil, false
}

// Set overwrites a named field. String fields accept string, *string or nil;
// numeric fields accept float64, *float64 or nil; pos accepts any integer.
func (r *Record) Set(field string, value any) error {
	switch field {
	case FieldChrom:
		s, ok := value.(string)
		if !ok {
			return fieldTypeError(field, value)
		}
		r.Chrom = s
	case FieldPos:
		switch v := value.(type) {
		case int64:
			r.Pos = v
		case int:
			r.Pos = int64(v)
		case int32:
			r.Pos = int64(v)
		default:
			return fieldTypeError(field, value)
		}
		if r.Pos < 0 {
			return &RangeError{Field: field, Value: strconv.FormatInt(r.Pos, 10), Message: "position must not be negative"}
		}
	case FieldRsid, FieldRef, FieldAlt:
		s, err := toStringPtr(field, value)
		if err != nil {
			return err
		}
		switch field {
		case FieldRsid:
			r.Rsid = s
		case FieldRef:
			r.Ref = s
		default:
			r.Alt = s
		}
	case FieldNegLogPvalue, FieldBeta, FieldStderrBeta, FieldAltAlleleFreq:
		f, err := toFloatPtr(field, value)
		if err != nil {
			return err
		}
		switch field {
		case FieldNegLogPvalue:
			r.NegLogPvalue = f
		case FieldBeta:
			r.Beta = f
		case FieldStderrBeta:
			r.StderrBeta = f
		default:
			r.AltAlleleFreq = f
		}
	case FieldPvalue, FieldMarker:
		return &ConfigError{Message: fmt.Sprintf("field %q is derived and cannot be set", field)}
	default:
		return &ConfigError{Message: fmt.Sprintf("record does not have a field named %q", field)}
	}
	return nil
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func toStringPtr(field string, value any) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case *string:
		return v, nil
	}
	return nil, fieldTypeError(field, value)
}

func toFloatPtr(field string, value any) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case *float64:
		return v, nil
	case float32:
		f := float64(v)
		return &f, nil
	}
	return nil, fieldTypeError(field, value)
}

func fieldTypeError(field string, value any) error {
	return &ConfigError{Message: fmt.Sprintf("cannot assign %T to field %q", value, field)}
}
