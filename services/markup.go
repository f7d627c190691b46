package services

import (
	"regexp"

	"github.com/menfessboard/menfess/utils"
)

// Markup commands, applied in this order after all HTML has been stripped.
var markupRules = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`#bold#(.*?)#bold#`), `<strong>$1</strong>`},
	{regexp.MustCompile(`#italic#(.*?)#italic#`), `<em>$1</em>`},
	{regexp.MustCompile(`#color:([A-Za-z]+)#(.*?)#color#`), `<span style="color:$1">$2</span>`},
	{regexp.MustCompile(`#quote#(.*?)#quote#`), `<blockquote>$1</blockquote>`},
}

// MarkupCommand documents one formatting command for clients.
type MarkupCommand struct {
	Name    string `json:"name"`
	Example string `json:"example"`
}

// MarkupCommands lists the supported formatting commands.
var MarkupCommands = []MarkupCommand{
	{Name: "bold", Example: "#bold#text#bold#"},
	{Name: "italic", Example: "#italic#text#italic#"},
	{Name: "color", Example: "#color:red#text#color#"},
	{Name: "quote", Example: "#quote#text#quote#"},
}

// RenderMarkup turns a stored body into display HTML. Any HTML the author
// typed is removed first, so the only tags in the output are the ones the
// commands produce. Unterminated commands stay as literal text.
func RenderMarkup(body string) string {
	out := utils.StripTags(body)
	for _, r := range markupRules {
		out = r.pattern.ReplaceAllString(out, r.repl)
	}
	return out
}
