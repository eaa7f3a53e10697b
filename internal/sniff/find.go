package sniff

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Claimed marks a header that another field already uses. FindColumn skips
// it.
const Claimed = "\x00"

// DefaultThreshold is used when FindColumn is given a threshold of zero or
// less.
const DefaultThreshold = 2

// FindColumn returns the index of the header closest to any of synonyms by
// case-insensitive edit distance, or -1 if no header is strictly closer than
// threshold. A threshold of 1 accepts exact matches only. Ties go to the
// earliest header.
func FindColumn(synonyms, headers []string, threshold int) int {
	if len(synonyms) == 0 {
		return -1
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	best, dist := closest(synonyms, headers)
	if best < 0 || dist >= threshold {
		return -1
	}
	return best
}

// closest returns the best header index and its distance.
func closest(synonyms, headers []string) (int, int) {
	best, bestDist := -1, 0
	for i, h := range headers {
		if h == Claimed {
			continue
		}
		d := distance(synonyms, h)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// distance is the smallest edit distance between header and any synonym.
func distance(synonyms []string, header string) int {
	header = strings.ToLower(header)
	lowest := -1
	for _, s := range synonyms {
		d := levenshtein.ComputeDistance(header, strings.ToLower(s))
		if lowest < 0 || d < lowest {
			lowest = d
		}
	}
	return lowest
}
