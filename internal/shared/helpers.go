// Package shared provides common utility functions used across multiple
// packages in the lal codebase.
package shared

import (
	"fmt"
	"sort"
	"strings"
)

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// HTTPStatusErrorWithBody creates a formatted error that includes the
// response body for non-2xx HTTP responses.
func HTTPStatusErrorWithBody(status int, url string, body string) error {
	return fmt.Errorf("status=%d url=%s response=%s", status, url, body)
}

// SortedKeys returns the keys of a string-keyed map in ascending order.
func SortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsHiddenName reports whether a directory entry is bookkeeping that
// listings should skip.
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// IsPathSegment reports whether value can be used verbatim as one directory
// level under a store or cache root.
func IsPathSegment(value string) bool {
	return strings.TrimSpace(value) != "" && !IsHiddenName(value) && !strings.ContainsAny(value, `/\`)
}
