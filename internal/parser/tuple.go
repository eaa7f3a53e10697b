package parser

import (
	"strings"

	"github.com/inodb/gwasnorm/internal/gwas"
)

// TupleParser splits a line on Delimiter and performs no type coercion.
// The sniffer reads sample rows through it.
type TupleParser struct {
	Delimiter string
}

// Parse splits line into a gwas.Tuple.
func (p TupleParser) Parse(line string) (gwas.Row, error) {
	return p.Split(line), nil
}

// Split is Parse with the concrete return type.
func (p TupleParser) Split(line string) gwas.Tuple {
	delim := p.Delimiter
	if delim == "" {
		delim = "\t"
	}
	return gwas.Tuple(strings.Split(strings.TrimSpace(line), delim))
}
