package parser

import (
	"errors"
	"strconv"
	"strings"
)

// All numeric conversions go through these two functions so a faster
// implementation can be swapped in without touching the coercion rules.

// parseFloat parses a decimal or scientific-notation float. Values too small
// to represent come back as zero without error; values too large are an error.
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && f == 0 {
			return 0, nil
		}
		return 0, err
	}
	return f, nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// ParseFloat is the exported form of the package's float conversion, for
// callers that must accept exactly what the parser accepts.
func ParseFloat(s string) (float64, error) {
	return parseFloat(s)
}
