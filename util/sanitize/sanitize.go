package sanitize

import (
	"regexp"
	"strings"
)

var (
	// pathSeparatorRegex matches runs of path separators
	pathSeparatorRegex = regexp.MustCompile(`[\\/]+`)

	// unsafeFileCharRegex matches characters not allowed in log file names
	unsafeFileCharRegex = regexp.MustCompile(`[^a-z0-9._-]`)

	// multiDashRegex matches multiple consecutive dashes
	multiDashRegex = regexp.MustCompile(`-+`)
)

// ForLogFileName turns an agent name such as "core/review" into a string safe
// to embed in a log file name. It never returns an empty string.
func ForLogFileName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Nested agent paths keep their structure as dashes
	s = pathSeparatorRegex.ReplaceAllString(s, "-")

	s = unsafeFileCharRegex.ReplaceAllString(s, "-")

	// Collapse multiple dashes
	s = multiDashRegex.ReplaceAllString(s, "-")

	s = strings.Trim(s, "-.")
	if s == "" {
		return "agent"
	}
	return s
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
