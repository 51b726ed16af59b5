// Package speech prepares assistant text for synthesis.
package speech

import (
	"regexp"
	"strings"
)

var (
	emojiRegex    = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{Z}]`)
	multiSpace    = regexp.MustCompile(`\s+`)
	markdownMarks = strings.NewReplacer(
		"**", "", // bold
		"*", "", // italic
		"__", "", // underline
		"~~", "", // strikethrough
		"`", "", // inline code
		"#", "", // headings
	)
)

// Normalize strips markup the voice should not read aloud: markdown
// formatting marks, emojis, and runs of whitespace.
func Normalize(text string) string {
	text = markdownMarks.Replace(text)
	text = emojiRegex.ReplaceAllString(text, "")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
