package mime

import (
	"html"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// StripHTML converts an HTML body to plain text. Block elements become line
// breaks, entities are decoded and runs of spaces collapse, so preformatted
// layout is not kept.
func StripHTML(s string) string {
	text, err := html2text.FromString(s, html2text.Options{TextOnly: true})
	if err != nil {
		text = html.UnescapeString(tagRe.ReplaceAllString(s, ""))
	}

	text = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\u00a0", " ").Replace(text)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
