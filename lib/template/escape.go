package template

import "strings"

const unescapedHTML = "&<>\"'`"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"`", "&#x60;",
)

// Escape replaces the characters & < > " ' and ` with HTML entities.
// Strings without any of them are returned unchanged.
func Escape(s string) string {
	if !strings.ContainsAny(s, unescapedHTML) {
		return s
	}
	return htmlEscaper.Replace(s)
}
