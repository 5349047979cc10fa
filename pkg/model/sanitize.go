package model

import (
	"regexp"
	"strings"
)

var (
	disallowedCharsPattern = regexp.MustCompile(`[^a-z0-9_]+`)
	repeatedUnderscores    = regexp.MustCompile(`_+`)
)

// defaultSanitizedKey is what sanitization yields when the input reduces to empty,
// per spec.md §3.
const defaultSanitizedKey = "item"

// SanitizeKey lowercases s, replaces runs of disallowed characters with a single
// underscore, and trims leading/trailing/consecutive underscores. Applying it twice
// is a no-op (spec.md §8 sanitization idempotence).
func SanitizeKey(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	replaced := disallowedCharsPattern.ReplaceAllString(lowered, "_")
	collapsed := repeatedUnderscores.ReplaceAllString(replaced, "_")
	trimmed := strings.Trim(collapsed, "_")
	if trimmed == "" {
		return defaultSanitizedKey
	}
	return trimmed
}

// IsSanitizedKey reports whether key already equals its sanitized form, the
// precondition spec.md §3 requires of every StreakConfiguration/XPConfiguration/
// ProgressConfiguration key.
func IsSanitizedKey(key string) bool {
	return key != "" && SanitizeKey(key) == key
}
