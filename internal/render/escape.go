package render

import (
	"strings"
	"unicode"
)

// sanitize replaces control characters in backend text so that it cannot
// break table layout or drive the terminal.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}
