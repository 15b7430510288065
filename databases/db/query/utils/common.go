package utils

import (
	"strings"
)

// IsValidIdentifier checks if a string is a plain SQL identifier: a letter or
// underscore followed by letters, digits or underscores.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if i == 0 {
			if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_') {
				return false
			}
		} else {
			if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
				return false
			}
		}
	}
	return true
}

// IsValidTableName accepts "table" and "schema.table" where every dotted part
// is a valid identifier. Table names are written into statements unquoted.
func IsValidTableName(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if !IsValidIdentifier(part) {
			return false
		}
	}
	return true
}

// QuoteIdentifier wraps a column name in double quotes, escaping " as "".
// All supported databases accept ANSI quoted identifiers.
func QuoteIdentifier(identifier string) string {
	return "\"" + strings.ReplaceAll(identifier, "\"", "\"\"") + "\""
}

// SplitProjection turns "NAME,ID" into "NAME, ID". An empty projection selects everything.
func SplitProjection(projection string) string {
	if strings.TrimSpace(projection) == "" {
		return "*"
	}
	parts := strings.Split(projection, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// Placeholders returns n comma separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
