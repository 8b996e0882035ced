package util

import (
	"fmt"
	"strconv"
	"strings"
)

// Suffixes are binary multiples; "MB" and "MiB" both mean 1<<20. Longest
// suffixes come first so "KIB" is not mistaken for "B".
var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"TIB", 1 << 40}, {"GIB", 1 << 30}, {"MIB", 1 << 20}, {"KIB", 1 << 10},
	{"TB", 1 << 40}, {"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10},
	{"T", 1 << 40}, {"G", 1 << 30}, {"M", 1 << 20}, {"K", 1 << 10},
	{"B", 1},
}

// ParseBytes parses a human-readable size string (e.g. "10MB", "1MiB",
// "512k", "42") into bytes.
func ParseBytes(s string) (int64, error) {
	raw := s
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	var multiplier int64 = 1
	for _, sf := range sizeSuffixes {
		if strings.HasSuffix(s, sf.suffix) {
			multiplier = sf.multiplier
			s = strings.TrimSpace(s[:len(s)-len(sf.suffix)])
			break
		}
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", raw)
	}
	return val * multiplier, nil
}

// ParseSize parses a human-readable size string into bytes. Returns
// defaultBytes if the string cannot be parsed.
func ParseSize(s string, defaultBytes int64) int64 {
	n, err := ParseBytes(s)
	if err != nil {
		return defaultBytes
	}
	return n
}

// MaskSecret hides sensitive parts of a string for safe display in logs.
// If the string is shorter than visiblePrefix, it is fully masked.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}
