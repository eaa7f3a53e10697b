package reader

import (
	"fmt"
	"slices"

	"github.com/inodb/gwasnorm/internal/gwas"
)

// fieldNames returns the parser's named fields, or false when rows have no
// name-based access.
func (r *Reader) fieldNames() ([]string, bool) {
	lister, ok := r.parser.(gwas.FieldLister)
	if !ok {
		return nil, false
	}
	return lister.Fields(), true
}

// checkReadable validates a field name used by a filter or as an output
// column. Derived fields are readable.
func (r *Reader) checkReadable(field string) error {
	fields, ok := r.fieldNames()
	if !ok {
		return nil
	}
	if slices.Contains(fields, field) || field == gwas.FieldPvalue || field == gwas.FieldMarker {
		return nil
	}
	return &gwas.ConfigError{Message: fmt.Sprintf("unknown field %q; must be one of %v", field, fields)}
}

// AddLookup registers fn to compute field for every row. Lookups run in
// registration order after parsing. An error from fn is a bad line: it is
// recorded in tolerant mode and ends iteration otherwise.
func (r *Reader) AddLookup(field string, fn func(gwas.Row) (any, error)) error {
	if fn == nil {
		return &gwas.ConfigError{Message: "lookup function must not be nil"}
	}
	fields, ok := r.fieldNames()
	if !ok {
		return &gwas.ConfigError{Message: "lookups require a parser that yields named fields"}
	}
	if !slices.Contains(fields, field) {
		return &gwas.ConfigError{Message: fmt.Sprintf("cannot look up unknown field %q", field)}
	}
	r.lookups = append(r.lookups, lookup{field: field, fn: fn})
	return nil
}

// AddTransform registers fn to replace each row after lookups. Returning nil
// drops the row.
func (r *Reader) AddTransform(fn func(gwas.Row) gwas.Row) error {
	if fn == nil {
		return &gwas.ConfigError{Message: "transform function must not be nil"}
	}
	r.transforms = append(r.transforms, fn)
	return nil
}

// AddFilter keeps only rows where field is present and not missing.
func (r *Reader) AddFilter(field string) error {
	if err := r.checkReadable(field); err != nil {
		return err
	}
	r.filters = append(r.filters, func(row gwas.Row) bool {
		v, ok := row.Get(field)
		return ok && v != nil
	})
	return nil
}

// AddFilterValue keeps only rows where field equals value. Values are
// compared in their canonical text form, so 100, int64(100) and "100" all
// match a position of 100.
func (r *Reader) AddFilterValue(field string, value any) error {
	if err := r.checkReadable(field); err != nil {
		return err
	}
	want := gwas.FormatValue(value)
	r.filters = append(r.filters, func(row gwas.Row) bool {
		v, ok := row.Get(field)
		return ok && gwas.FormatValue(v) == want
	})
	return nil
}

// AddFilterFunc keeps only rows accepted by fn.
func (r *Reader) AddFilterFunc(fn func(gwas.Row) bool) error {
	if fn == nil {
		return &gwas.ConfigError{Message: "filter function must not be nil"}
	}
	r.filters = append(r.filters, fn)
	return nil
}
