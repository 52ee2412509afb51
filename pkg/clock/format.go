package clock

import (
	"fmt"
	"strings"
)

// formatTokens maps moment-style pattern tokens to Go reference-time
// fragments. Longest token wins during translation.
var formatTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
	{"dddd", "Monday"},
	{"ddd", "Mon"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSS", "000"},
	{"A", "PM"},
	{"a", "pm"},
	{"ZZ", "-0700"},
	{"Z", "-07:00"},
}

// translateFormat converts a moment-style pattern such as
// "YYYY-MM-DD HH:mm:ss" into a Go time layout. Text wrapped in square
// brackets passes through literally. An alphabetic run that is not a known
// token makes the whole pattern invalid.
func translateFormat(pattern string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]

		if c == '[' {
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated literal in %q", ErrInvalidFormat, pattern)
			}
			b.WriteString(pattern[i+1 : i+end])
			i += end + 1
			continue
		}

		if !isFormatLetter(c) {
			b.WriteByte(c)
			i++
			continue
		}

		matched := false
		for _, ft := range formatTokens {
			if strings.HasPrefix(pattern[i:], ft.token) {
				b.WriteString(ft.layout)
				i += len(ft.token)
				matched = true
				break
			}
		}
		if !matched {
			return "", fmt.Errorf("%w: unrecognized token %q in %q", ErrInvalidFormat, string(c), pattern)
		}
	}
	return b.String(), nil
}

func isFormatLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
