// Package utils holds small helpers shared by the HTTP and service layers.
package utils

import "strconv"

// DefaultPageSize applies when a caller passes no usable page size.
const DefaultPageSize = 20

// ParseBounded parses s as a decimal int. Empty or malformed input yields
// def. The result is clamped to [lo, hi]; hi <= 0 leaves it unbounded above.
func ParseBounded(s string, def, lo, hi int) int {
	n := def
	if s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			n = v
		}
	}
	if n < lo {
		n = lo
	}
	if hi > 0 && n > hi {
		n = hi
	}
	return n
}

// Page normalizes a 1-based page and its size and returns the row offset.
func Page(page, size int) (p, s, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return page, size, (page - 1) * size
}
