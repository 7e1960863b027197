// Package htmlnorm normalizes upstream WordPress HTML into the canonical
// story markup served by the API. It is pure string processing: no I/O, no
// retained state, safe for concurrent use.
package htmlnorm

import (
	"regexp"
	"strings"
)

// CanonicalClass is the CSS class applied to every story paragraph so the
// reader styles them uniformly.
const CanonicalClass = "story-paragraph"

const paraOpen = `<p class="` + CanonicalClass + `">`

// Rendered is the WordPress REST content envelope ({"rendered": "<p>..."}).
type Rendered struct {
	Rendered string `json:"rendered"`
}

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	scriptTagRe   = regexp.MustCompile(`(?i)</?script\b[^>]*>`)
	eventAttrRe   = regexp.MustCompile(`(?i)\son[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)

	brRunRe       = regexp.MustCompile(`(?i)(?:<br\s*/?>\s*){2,}`)
	emptyParaRe   = regexp.MustCompile(`(?i)<p(?:\s[^>]*)?>(?:\s|&nbsp;)*</p>`)
	paraOpenRe    = regexp.MustCompile(`(?i)<p(\s[^>]*)?>`)
	paraJoinRe    = regexp.MustCompile(`(?i)</p>[ \t]*<p`)
	nestedOpenRe  = regexp.MustCompile(`(?i)<p(?:\s[^>]*)?>\s*<p(?:\s[^>]*)?>`)
	doubleCloseRe = regexp.MustCompile(`(?i)</p>\s*</p>`)
	strayLineRe   = regexp.MustCompile(`(?m)^[^<\s][^\n]*`)
	classAttrRe   = regexp.MustCompile(`(?i)\bclass\s*=\s*["']`)
	classListRe   = regexp.MustCompile(`(?i)\bclass\s*=\s*("[^"]*"|'[^']*')`)
)

// Normalize converts raw upstream content into sanitized, paragraph-normalized
// HTML. The input may be a plain string, a Rendered envelope (value, pointer,
// or the decoded map shape), or anything else, in which case the result is "".
// Normalize is total: it never panics and always returns a string.
func Normalize(content any) string {
	raw, ok := extract(content)
	if !ok {
		return ""
	}
	s := stripControl(raw)
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = repairEmphasis(s)
	s = stripScripts(s)
	s = eventAttrRe.ReplaceAllString(s, "")
	return normalizeParagraphs(s)
}

// extract pulls the HTML string out of the supported input shapes.
func extract(content any) (string, bool) {
	switch v := content.(type) {
	case string:
		return v, true
	case Rendered:
		return v.Rendered, true
	case *Rendered:
		if v == nil {
			return "", false
		}
		return v.Rendered, true
	case map[string]any:
		s, ok := v["rendered"].(string)
		return s, ok
	case map[string]string:
		s, ok := v["rendered"]
		return s, ok
	default:
		return "", false
	}
}

// stripScripts removes whole <script> blocks, then any dangling script tags
// left by unterminated blocks.
func stripScripts(s string) string {
	s = scriptBlockRe.ReplaceAllString(s, "")
	return scriptTagRe.ReplaceAllString(s, "")
}

// repairEmphasis closes unterminated <em> spans. The content is scanned as a
// flat token stream while tracking the open-em depth; pending closers are
// emitted immediately before the next block boundary (or at the end of the
// content when no boundary follows). Content with at least as many closers as
// openers is returned unchanged: dropping surplus closers safely would need a
// full parser.
func repairEmphasis(s string) string {
	opens, closes := 0, 0
	forEachTag(s, func(name string, closing bool) {
		if name == "em" {
			if closing {
				closes++
			} else {
				opens++
			}
		}
	})
	if opens <= closes {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + (opens-closes)*len("</em>"))
	depth := 0
	i := 0
	for i < len(s) {
		if s[i] != '<' {
			j := strings.IndexByte(s[i:], '<')
			if j < 0 {
				b.WriteString(s[i:])
				break
			}
			b.WriteString(s[i : i+j])
			i += j
			continue
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		tag := s[i : i+end+1]
		name, closing := tagName(tag)
		switch {
		case name == "em" && !closing:
			depth++
		case name == "em" && closing:
			if depth > 0 {
				depth--
			}
		case depth > 0 && isBlockBoundary(name, closing):
			for ; depth > 0; depth-- {
				b.WriteString("</em>")
			}
		}
		b.WriteString(tag)
		i += end + 1
	}
	for ; depth > 0; depth-- {
		b.WriteString("</em>")
	}
	return b.String()
}

// forEachTag invokes fn for every well-formed tag in s.
func forEachTag(s string, fn func(name string, closing bool)) {
	for i := 0; i < len(s); {
		if s[i] != '<' {
			j := strings.IndexByte(s[i:], '<')
			if j < 0 {
				return
			}
			i += j
			continue
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			return
		}
		name, closing := tagName(s[i : i+end+1])
		if name != "" {
			fn(name, closing)
		}
		i += end + 1
	}
}

// tagName returns the lowercased element name of a raw "<...>" token and
// whether it is a closing tag. Non-element tokens (comments, doctypes) yield
// an empty name.
func tagName(tag string) (string, bool) {
	inner := tag[1 : len(tag)-1]
	closing := strings.HasPrefix(inner, "/")
	inner = strings.TrimPrefix(inner, "/")
	end := 0
	for end < len(inner) {
		c := inner[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	return strings.ToLower(inner[:end]), closing
}

// isBlockBoundary reports whether the tag marks an insertion point for
// repairing unclosed inline tags: a closing paragraph or the start of a
// div, heading, list, or blockquote.
func isBlockBoundary(name string, closing bool) bool {
	if closing {
		return name == "p"
	}
	switch name {
	case "div", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "blockquote":
		return true
	}
	return false
}

// normalizeParagraphs applies the fixed-order paragraph repair pipeline:
// break collapsing, empty-paragraph removal, canonical class tagging,
// wrapping, and nested-tag collapse.
func normalizeParagraphs(s string) string {
	// 1. Runs of two or more <br> become a paragraph break.
	s = brRunRe.ReplaceAllString(s, "</p><p>")
	// 2. Drop paragraphs that hold only whitespace.
	s = emptyParaRe.ReplaceAllString(s, "")
	// 3. Every opening <p> carries the canonical class exactly once.
	s = tagParagraphs(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// 4, 5. The document starts and ends on a paragraph.
	if !strings.HasPrefix(strings.ToLower(s), "<p") {
		s = paraOpen + s
	}
	if !strings.HasSuffix(strings.ToLower(s), "</p>") {
		s += "</p>"
	}
	// 6. Separate adjacent paragraphs for readable stored HTML.
	s = paraJoinRe.ReplaceAllString(s, "</p>\n<p")
	// 7. Collapse nested opens and doubled closes.
	s = collapseNested(s)
	// 8. Wrap stray top-level text lines.
	s = strayLineRe.ReplaceAllStringFunc(s, func(line string) string {
		return paraOpen + line + "</p>"
	})
	// 9. Step 8 can nest wrapping inside an open paragraph; collapse again.
	return collapseNested(s)
}

func collapseNested(s string) string {
	s = nestedOpenRe.ReplaceAllString(s, paraOpen)
	return doubleCloseRe.ReplaceAllString(s, "</p>")
}

// tagParagraphs adds the canonical class to paragraph tags that lack it,
// joining an existing class list rather than duplicating the attribute.
func tagParagraphs(s string) string {
	return paraOpenRe.ReplaceAllStringFunc(s, func(tag string) string {
		if hasCanonicalClass(tag) {
			return tag
		}
		if loc := classAttrRe.FindStringIndex(tag); loc != nil {
			return tag[:loc[1]] + CanonicalClass + " " + tag[loc[1]:]
		}
		return `<p class="` + CanonicalClass + `"` + tag[2:]
	})
}

// hasCanonicalClass matches the marker as a whole class-list token, so classes
// that merely contain it as a substring still get tagged.
func hasCanonicalClass(tag string) bool {
	m := classListRe.FindStringSubmatch(tag)
	if m == nil {
		return false
	}
	list := m[1][1 : len(m[1])-1]
	for _, c := range strings.Fields(list) {
		if c == CanonicalClass {
			return true
		}
	}
	return false
}
