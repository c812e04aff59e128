package shared

import (
	"strings"
)

// Normalize is the single normalization applied to creator names and tags,
// used identically at index time and at filter-match time. Un-normalized
// strings are never compared.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeSet normalizes a comma-separated list into a deduplicated set.
// Empty elements are dropped.
func NormalizeSet(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]bool, len(parts))
	var out []string
	for _, p := range parts {
		n := Normalize(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// NormalizeAll normalizes every element of a slice, dropping empties and
// duplicates while preserving order.
func NormalizeAll(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	var out []string
	for _, v := range vals {
		n := Normalize(v)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
