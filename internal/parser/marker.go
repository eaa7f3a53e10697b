package parser

import (
	"regexp"

	"github.com/inodb/gwasnorm/internal/gwas"
)

// markerRe accepts chr1:100, 1:100_A/C, 1:100:A:C, chr1:100_A|C_annotation
// and similar variants.
var markerRe = regexp.MustCompile(`^(?:chr)?(.+):(\d+)[_:]?(\w+)?[/:|]?([^_]+)?_?(.*)?$`)

// Marker holds the parts of a composite variant identifier. Ref and Alt are
// empty when the marker does not carry alleles.
type Marker struct {
	Chrom  string
	Pos    int64
	Ref    string
	Alt    string
	Suffix string
}

// ParseMarker decomposes a chrom:pos[_ref/alt] token.
func ParseMarker(token string) (Marker, error) {
	m, ok := MatchMarker(token)
	if !ok {
		return Marker{}, &gwas.ParseError{
			Value:   token,
			Message: "could not understand marker format, must be of format chr:pos or chr:pos_ref/alt",
		}
	}
	return m, nil
}

// MatchMarker is the tolerant form of ParseMarker: it reports false instead
// of returning an error.
func MatchMarker(token string) (Marker, bool) {
	groups := markerRe.FindStringSubmatch(token)
	if groups == nil {
		return Marker{}, false
	}
	pos, err := ParsePosition(groups[2])
	if err != nil {
		return Marker{}, false
	}
	return Marker{
		Chrom:  groups[1],
		Pos:    pos,
		Ref:    groups[3],
		Alt:    groups[4],
		Suffix: groups[5],
	}, true
}
