package domain

import (
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

// Truncate bounds msg to max runes, marking the cut with an ellipsis.
func Truncate(msg string, max int) string {
	msg = strings.TrimSpace(msg)
	if max <= 0 || utf8.RuneCountInString(msg) <= max {
		return msg
	}
	runes := []rune(msg)
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return strings.TrimSpace(string(runes[:max-len(ellipsis)])) + ellipsis
}
