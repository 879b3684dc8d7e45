package render

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// PlainText strips markup from rendered HTML and collapses whitespace.
// If limit > 0 the result is cut to at most limit runes on a word boundary
// and suffixed with "...".
func PlainText(fragment string, limit int) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var words []string
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a malformed fragment; keep what was read so far.
			break
		}
		if tt == html.TextToken {
			words = append(words, strings.Fields(string(z.Text()))...)
		}
	}
	text := strings.Join(words, " ")

	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
