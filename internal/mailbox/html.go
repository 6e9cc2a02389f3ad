package mailbox

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// htmlToText strips an HTML body down to plain text. Good enough for
// ticket descriptions; anything fancier belongs in the UI layer.
func htmlToText(html string) string {
	text := html

	replacements := []struct {
		from string
		to   string
	}{
		{"<br>", "\n"},
		{"<br/>", "\n"},
		{"<br />", "\n"},
		{"<p>", "\n"},
		{"</p>", "\n"},
		{"<div>", "\n"},
		{"</div>", "\n"},
		{"&nbsp;", " "},
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", "\""},
	}
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.from, r.to)
	}

	text = tagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
