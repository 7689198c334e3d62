package folio

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultExcerptLength is the excerpt cap used when no length is given.
const DefaultExcerptLength = 150

var (
	reFencedCode = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`([^`]*)`")
	reImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)(\{[^}]*\})?`)
	reMDLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	reHeading    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	reEmphasis   = regexp.MustCompile(`(\*\*|__|\*|_)`)
	reBlockquote = regexp.MustCompile(`(?m)^>\s?`)
	reHorizRule  = regexp.MustCompile(`(?m)^(-{3,}|\*{3,})\s*$`)
	reListMarker = regexp.MustCompile(`(?m)^(\s*[-*+]|\s*\d+\.)\s+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Excerpt strips Markdown markup from content and truncates the plain text
// to at most max characters, preferring a word boundary once the cut lands
// past 70% of max. "..." is appended whenever truncation occurred, so the
// result is at most max+3 characters. max <= 0 selects the default.
func Excerpt(content string, max int) string {
	if max <= 0 {
		max = DefaultExcerptLength
	}

	text := content
	text = reFencedCode.ReplaceAllString(text, " ")
	text = reInlineCode.ReplaceAllString(text, "$1")
	text = reImage.ReplaceAllString(text, " ")
	text = reMDLink.ReplaceAllString(text, "$1")
	text = reHeading.ReplaceAllString(text, "")
	text = reEmphasis.ReplaceAllString(text, "")
	text = reBlockquote.ReplaceAllString(text, "")
	text = reHorizRule.ReplaceAllString(text, " ")
	text = reListMarker.ReplaceAllString(text, "")
	text = strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))

	if len(text) <= max {
		return text
	}

	// Back the hard cut up to a rune boundary so multibyte text is never
	// split mid-rune. A space is always a rune boundary, so the word cut
	// needs no adjustment.
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if idx := strings.LastIndex(text[:max+1], " "); idx > max*7/10 {
		cut = idx
	}
	return strings.TrimRight(text[:cut], " ") + "..."
}
