// Package lookup resolves variants against a reference store keyed by
// chromosome, position and alleles.
package lookup

import (
	"fmt"

	"github.com/inodb/gwasnorm/internal/gwas"
)

// Lookup finds the identifier of a variant. A variant that is not in the
// store reports false with a nil error.
type Lookup interface {
	Lookup(chrom string, pos int64, ref, alt string) (string, bool, error)
}

// Func adapts a plain function to Lookup.
type Func func(chrom string, pos int64, ref, alt string) (string, bool, error)

// Lookup calls f.
func (f Func) Lookup(chrom string, pos int64, ref, alt string) (string, bool, error) {
	return f(chrom, pos, ref, alt)
}

// RsidLookup returns a reader lookup for the rsid field. Rows without both
// alleles, and variants the store does not know, keep the rsid they were
// parsed with. Store errors are returned so the reader can count them
// against its error budget.
func RsidLookup(l Lookup) func(gwas.Row) (any, error) {
	return func(row gwas.Row) (any, error) {
		current, _ := row.Get(gwas.FieldRsid)
		chrom, ok := stringField(row, gwas.FieldChrom)
		if !ok {
			return current, nil
		}
		ref, ok := stringField(row, gwas.FieldRef)
		if !ok {
			return current, nil
		}
		alt, ok := stringField(row, gwas.FieldAlt)
		if !ok {
			return current, nil
		}
		v, _ := row.Get(gwas.FieldPos)
		pos, ok := v.(int64)
		if !ok {
			return current, nil
		}

		rsid, found, err := l.Lookup(chrom, pos, ref, alt)
		if err != nil {
			return nil, fmt.Errorf("rsid for %s:%d %s/%s: %w", chrom, pos, ref, alt, err)
		}
		if !found {
			return current, nil
		}
		return rsid, nil
	}
}

func stringField(row gwas.Row, field string) (string, bool) {
	v, ok := row.Get(field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
