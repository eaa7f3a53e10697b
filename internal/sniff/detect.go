package sniff

import (
	"strings"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/parser"
)

// IsNumeric reports whether token is a number or a missing value.
func IsNumeric(token string) bool {
	if gwas.IsMissing(token) {
		return true
	}
	_, err := parser.ParseFloat(token)
	return err == nil
}

// IsHeader reports whether row looks like a header: it starts with
// commentChar, or none of its fields is numeric.
func IsHeader(row, commentChar, delimiter string) bool {
	if commentChar != "" && strings.HasPrefix(row, commentChar) {
		return true
	}
	for _, field := range strings.Split(row, delimiter) {
		if IsNumeric(field) {
			return false
		}
	}
	return true
}

// DetectDelimiter picks the delimiter of a line: tab, then comma, then
// space. Lines with none of them are assumed to be tab delimited.
func DetectDelimiter(line string) string {
	for _, d := range []string{"\t", ",", " "} {
		if strings.Contains(strings.TrimSpace(line), d) {
			return d
		}
	}
	return "\t"
}
