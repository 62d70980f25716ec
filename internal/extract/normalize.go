package extract

import (
	"regexp"
	"strings"
)

var allWhitespaceRE = regexp.MustCompile(`\s+`)

// Normalize canonicalizes an identifier string for hashing and blacklist
// comparison: all whitespace removed, uppercased, trimmed. The sentinel
// "N/A" (any case) and empty input normalize to "". Idempotent.
func Normalize(value string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(allWhitespaceRE.ReplaceAllString(value, "")))
	if cleaned == "N/A" {
		return ""
	}
	return cleaned
}
