package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var identifierPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// SanitizeIdentifier lowercases value and collapses every run of characters
// outside [a-z0-9_] into a single underscore. Leading and trailing
// underscores are trimmed. Returns fallback when nothing usable remains.
func SanitizeIdentifier(value, fallback string) string {
	cleaned := identifierPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// DisplayName turns an identifier such as "head_barista" into "Head Barista".
func DisplayName(identifier string) string {
	words := strings.FieldsFunc(identifier, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// RenpyString quotes value for use inside a double-quoted Ren'Py string.
func RenpyString(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ")
	return `"` + replacer.Replace(value) + `"`
}
