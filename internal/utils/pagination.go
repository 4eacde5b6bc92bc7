// Package utils provides small helpers with no domain knowledge, shared by
// the HTTP layer: query-string integer parsing and pagination clamping.
package utils

import "strconv"

// Bounds applied to response listing before the query hits the database.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault converts s to an int, returning def when s is empty or not a
// plain base-10 integer. Leading/trailing whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// NormalizePage parses a page query value, treating anything below 1 or
// unparseable as the first page.
func NormalizePage(s string) int {
	page := AtoiDefault(s, 1)
	if page < 1 {
		return 1
	}
	return page
}

// NormalizePageSize parses a page_size query value and clamps it to
// [1, MaxPageSize]. Zero, negative, and unparseable values get the default.
func NormalizePageSize(s string) int {
	size := AtoiDefault(s, DefaultPageSize)
	if size < 1 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
