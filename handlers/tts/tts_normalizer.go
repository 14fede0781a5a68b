package tts

import (
	"regexp"
	"strings"
)

// normalizeTextForTTS strips formatting the synthesizer would read aloud.
func normalizeTextForTTS(text string) string {
	// [label](url) -> label
	text = markdownLinkRegex.ReplaceAllString(text, "$1")

	// headings and list bullets at line start
	text = lineMarkerRegex.ReplaceAllString(text, "")

	text = markdownReplacer.Replace(text)

	text = removeEmojiRegex.ReplaceAllString(text, "")

	text = multipleSpacesRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

var markdownReplacer = strings.NewReplacer(
	"**", "", // bold
	"__", "", // underline
	"~~", "", // strikethrough
	"*", "", // italic
	"`", "", // inline code
)

var (
	markdownLinkRegex   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	lineMarkerRegex     = regexp.MustCompile(`(?m)^[ \t]*(#{1,6}|[-+]|\d+\.)[ \t]+`)
	removeEmojiRegex    = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{Z}\s$+<=>^|~]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)
