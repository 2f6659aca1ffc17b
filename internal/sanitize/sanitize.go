// Package sanitize cleans user supplied text before it is sent to an AI
// provider and strips markup from model output before it reaches a client.
package sanitize

import (
	"strings"

	"golang.org/x/net/html"
)

// Input removes control characters and script elements (including their
// content) from s. Newlines and tabs are kept so that résumé layout survives.
func Input(s string) string {
	return strings.TrimSpace(dropElements(stripControl(s), "script"))
}

// StripTags returns only the text content of s. Script and style bodies are
// dropped along with every tag. The tokenizer hands back the body of raw text
// elements such as textarea or title untouched, so passes repeat until the
// output stops changing.
func StripTags(s string) string {
	for strings.ContainsAny(s, "<>") {
		next := stripOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

func stripOnce(s string) string {
	var b strings.Builder
	skip := 0
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if isHidden(z) {
				skip++
			}
		case html.EndTagToken:
			if isHidden(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Raw())
			}
		}
	}
}

// Text applies Input and StripTags.
func Text(s string) string {
	return StripTags(Input(s))
}

// StripAll strips tags from every entry and drops entries left empty.
func StripAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if cleaned := StripTags(s); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20, r >= 0x7f && r <= 0x9f:
			return -1
		default:
			return r
		}
	}, s)
}

// dropElements re-emits s verbatim except for the named elements, which are
// removed together with everything they enclose. The body of a raw text
// element is scanned again since the tokenizer does not look for tags in it.
func dropElements(s string, names ...string) string {
	if !strings.Contains(s, "<") {
		return s
	}

	var b strings.Builder
	depth := 0
	rawBody := false
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}

		inRaw := rawBody
		rawBody = false

		switch tt {
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if matches(string(name), names) {
				switch tt {
				case html.StartTagToken:
					depth++
				case html.EndTagToken:
					if depth > 0 {
						depth--
					}
				}
				continue
			}
			rawBody = tt == html.StartTagToken && rawTextElements[strings.ToLower(string(name))]
		case html.TextToken:
			if inRaw && depth == 0 {
				b.WriteString(dropElements(string(z.Raw()), names...))
				continue
			}
		}

		if depth == 0 {
			b.Write(z.Raw())
		}
	}
}

// rawTextElements are read by the tokenizer as plain text up to their end tag.
var rawTextElements = map[string]bool{
	"iframe":    true,
	"noembed":   true,
	"noframes":  true,
	"noscript":  true,
	"plaintext": true,
	"style":     true,
	"textarea":  true,
	"title":     true,
	"xmp":       true,
}

func isHidden(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	return matches(string(name), []string{"script", "style"})
}

func matches(name string, names []string) bool {
	for _, n := range names {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}
