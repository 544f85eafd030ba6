package card

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// idCharsRegex matches the allowed card id charset (e.g. "rt-0001").
var idCharsRegex = regexp.MustCompile(`^[a-z0-9\-\._]+$`)

// Normalize normalizes a string for comparisons:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// NormalizeCategory normalizes a category name: lowercased, trimmed, with
// internal whitespace converted to hyphens ("Privilege Escalation" →
// "privilege-escalation").
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRegex.ReplaceAllString(s, "-")
}

// ValidID reports whether id uses only the allowed charset.
func ValidID(id string) bool {
	return idCharsRegex.MatchString(id)
}

// SanitizeID rewrites id into the allowed charset, replacing disallowed
// characters with hyphens. Used to suggest corrected ids during lint.
func SanitizeID(id string) string {
	s := strings.ToLower(strings.TrimSpace(id))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
