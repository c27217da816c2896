// Package util provides small string helpers shared by the adapters and the
// control loop.
package util

import "strings"

// Truncate shortens s to at most maxLen runes, ending in "..." when
// anything was cut. A string that fits is returned unchanged; otherwise a
// maxLen of 3 or less yields "...".
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}

// SingleLine joins the non-blank lines of s with "; " so that multi-line
// errors (errors.Join, validation lists) fit in one log field or document
// value.
func SingleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	parts := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "; ")
}

// ErrorSummary renders err as a single line of at most maxLen runes.
// It returns "" for a nil error.
func ErrorSummary(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	return Truncate(SingleLine(err.Error()), maxLen)
}
