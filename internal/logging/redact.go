package logging

import (
	"regexp"
	"strings"
)

// Patterns for credentials that must never reach logs: the API token travels
// in request bodies and stream URLs, so raw payload logging has to scrub it.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"i"\s*:\s*"([a-zA-Z0-9]{16,})"`),
	regexp.MustCompile(`(?i)[?&]i=([a-zA-Z0-9]{16,})`),
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),
	regexp.MustCompile(`(?i)(token|secret|password)[=:]["']?([a-zA-Z0-9+/=_-]{20,})["']?`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces credential material in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveField checks whether a field name should never be logged verbatim.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range []string{"token", "secret", "password", "credential", "authorization"} {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}
