package markdown

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// blockTags separate words even when the source has no whitespace between them.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true, "td": true, "th": true,
}

// Excerpt returns up to n runes of visible text from an HTML fragment, cut at a
// word boundary. Script and style contents are ignored.
func Excerpt(fragment string, n int) string {
	if n <= 0 {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var text strings.Builder
	skip := 0

loop:
	for text.Len() <= 4*n+4 {
		switch z.Next() {
		case html.ErrorToken:
			break loop
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
			}
			if blockTags[tag] {
				text.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				text.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				text.Write(z.Text())
			}
		}
	}

	var words []string
	length := 0
	for _, w := range strings.Fields(text.String()) {
		wl := utf8.RuneCountInString(w)
		if length > 0 {
			wl++
		}
		if length+wl > n {
			if len(words) == 0 {
				return string([]rune(w)[:n])
			}
			return strings.Join(words, " ") + "…"
		}
		words = append(words, w)
		length += wl
	}
	return strings.Join(words, " ")
}
