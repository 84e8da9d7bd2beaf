// Package strings holds small helpers for normalizing user and env input.
package strings

import (
	"strings"
)

// SplitList splits raw on commas, trims every element, and drops empty and
// duplicate entries. Order is preserved.
//
// Example:
//
//	SplitList(" http://a, http://b,,http://a ")
//	// Returns: []string{"http://a", "http://b"}
func SplitList(raw string) []string {
	return DedupeAndTrim(strings.Split(raw, ","))
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

// EqualFoldTrim compares two values case-insensitively after trimming.
func EqualFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
