package gwas

import (
	"fmt"
	"math"
	"strconv"
)

// MissingValue is how the canonical text format renders a missing value.
const MissingValue = "."

var missingTokens = map[string]struct{}{
	"":     {},
	".":    {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"nan":  {},
	"-nan": {},
	"NaN":  {},
	"-NaN": {},
	"null": {},
	"NULL": {},
	"None": {},
}

// IsMissing reports whether a raw token denotes a missing value.
// Matching is exact and case-sensitive.
func IsMissing(token string) bool {
	_, ok := missingTokens[token]
	return ok
}

// FormatValue renders a field value in the canonical text format: nil as
// ".", floats in shortest round-trip form with infinity as "inf".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return MissingValue
	case string:
		return x
	case *string:
		if x == nil {
			return MissingValue
		}
		return *x
	case float64:
		return formatFloat(x)
	case *float64:
		if x == nil {
			return MissingValue
		}
		return formatFloat(*x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return MissingValue
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
