package htmlnorm

import (
	"regexp"
	"strings"
)

var (
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	emSpanRe   = regexp.MustCompile(`(?is)<(?:em|i)\b[^>]*>(.*?)</(?:em|i)\s*>`)
	spaceRunRe = regexp.MustCompile(`\s+`)
)

// Sentinel pair substituted for emphasis spans so they survive the
// indiscriminate tag strip. NUL bytes cannot appear in sane HTML.
const (
	emOpenToken  = "\x00em\x00"
	emCloseToken = "\x00/em\x00"
)

// PlainText strips all tags and collapses whitespace runs to single spaces.
// Used for excerpt generation.
func PlainText(html string) string {
	s := tagRe.ReplaceAllString(html, " ")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}

// EmphasisOnly strips all markup except semantic emphasis, re-expressing both
// <em> and <i> spans as canonical <em> output. Whitespace is collapsed as in
// PlainText.
func EmphasisOnly(html string) string {
	s := emSpanRe.ReplaceAllString(html, emOpenToken+"$1"+emCloseToken)
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
	s = strings.ReplaceAll(s, emOpenToken, "<em>")
	return strings.ReplaceAll(s, emCloseToken, "</em>")
}

// stripControl drops control characters outside tab/newline/carriage return.
// Upstream editors occasionally leak them into post bodies.
func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
