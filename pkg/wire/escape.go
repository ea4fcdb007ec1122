package wire

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	"\"", "&quot;",
)

// Escape makes s safe for use in an attribute value or element text.
func Escape(s string) string {
	if !strings.ContainsAny(s, "&<>'\"") {
		return s
	}
	return escaper.Replace(s)
}
