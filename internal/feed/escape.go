package feed

import (
	"strings"
	"unicode"
)

// escapeXML replaces the five predefined XML entities. It is applied to
// every user-controlled string before embedding, because the documents are
// assembled by hand and nothing else escapes for us.
// https://www.w3.org/TR/REC-xml/#syntax
func escapeXML(from string) string {
	var escaped strings.Builder
	escaped.Grow(len(from))

	for _, c := range from {
		switch c {
		case '&':
			escaped.WriteString("&amp;")
		case '<':
			escaped.WriteString("&lt;")
		case '>':
			escaped.WriteString("&gt;")
		case '\'':
			escaped.WriteString("&apos;")
		case '"':
			escaped.WriteString("&quot;")
		default:
			escaped.WriteRune(c)
		}
	}

	return escaped.String()
}

// escapePath makes a label name usable as a directory name by replacing
// '/' and whitespace with '_'
func escapePath(from string) string {
	return strings.Map(func(c rune) rune {
		if c == '/' || unicode.IsSpace(c) {
			return '_'
		}
		return c
	}, from)
}
