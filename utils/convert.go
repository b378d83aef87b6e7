package utils

import (
	"strconv"
	"strings"
)

// AtoiOrNil parses s as a base-10 int, returning nil for empty or malformed input.
func AtoiOrNil(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// LeadingFloat parses the longest prefix of s that is a valid float, the way
// loosely typed version strings are usually read ("1.10.4" -> 1.1). Input
// with no numeric prefix yields 0.
func LeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if first := strings.IndexByte(s, '.'); first >= 0 {
		if second := strings.IndexByte(s[first+1:], '.'); second >= 0 {
			s = s[:first+1+second]
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
