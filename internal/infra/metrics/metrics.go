package metrics

import "strings"

// norm keeps label cardinality sane: lowercase, trimmed.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
