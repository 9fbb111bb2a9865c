// Package models holds the shared domain types for drugs, interactions, and queries.
package models

import "strings"

// NormalizeName canonicalizes a raw drug name into its lookup key:
// surrounding whitespace is trimmed and the result is case-folded.
// Display names keep their original casing; all index lookups go through this.
func NormalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// DisplayName trims a raw drug name but preserves its casing, for use as the
// canonical display form when a name is first seen.
func DisplayName(raw string) string {
	return strings.TrimSpace(raw)
}
