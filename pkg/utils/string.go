// Package utils provides common utility functions.
package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// Preview returns the first n characters of str. Multi-byte runes are never split.
func (s *StringHelper) Preview(str string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(str)
	if len(runes) <= n {
		return str
	}

	return string(runes[:n])
}

// TruncateString truncates string to max length, appending "..." when cut.
func (s *StringHelper) TruncateString(str string, maxLength int) string {
	if len([]rune(str)) <= maxLength {
		return str
	}

	return s.Preview(str, maxLength) + "..."
}

// TruncateWidth truncates str to the given terminal display width.
func (s *StringHelper) TruncateWidth(str string, width int) string {
	return runewidth.Truncate(s.SingleLine(str), width, "…")
}

// SingleLine replaces line breaks so text fits in a table cell or log attribute.
func (s *StringHelper) SingleLine(str string) string {
	return strings.NewReplacer("\r\n", "⏎", "\n", "⏎", "\r", "⏎").Replace(str)
}
