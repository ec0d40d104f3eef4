package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SafeID rewrites an identifier so it only contains letters, digits, '_',
// '-' and '/'. Every other character, including '.', becomes '_'.
func SafeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '/':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// IsSafeID reports whether SafeID would leave id unchanged.
func IsSafeID(id string) bool {
	return SafeID(id) == id
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	out := strings.Trim(strings.ToLower(SafeID(strings.ReplaceAll(value, "/", "_"))), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// Title renders an identifier such as "torres_strait" as "Torres Strait".
func Title(value string) string {
	value = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(value))
	if value == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.Join(strings.Fields(value), " "))
}
