package render

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	headingTagRe = regexp.MustCompile(`(?s)<h([1-6])([^>]*)>(.*?)</h[1-6]>`)
	anchorTagRe  = regexp.MustCompile(`<a\s[^>]*>`)
	hrefAttrRe   = regexp.MustCompile(`href="([^"]*)"`)
	idAttrRe     = regexp.MustCompile(`\bid="([^"]*)"`)
)

// headingEntry is one TOC row.
type headingEntry struct {
	level  int
	anchor string
	text   string
}

// postProcess runs the dialect-independent passes over the parsed body, in
// a fixed order: heading anchors first (the TOC links to them), then TOC
// injection at the macro sentinel, then external-link hardening.
func postProcess(body string, pc *pageContext) string {
	body, headings := injectAnchors(body)
	body = injectTOC(body, headings)
	body = hardenExternalLinks(body, pc)
	return body
}

// injectAnchors gives every heading a slug id derived from its text.
// Duplicate slugs get -1, -2, ... suffixes in document order, so anchors
// are unique and stable for a given body.
func injectAnchors(body string) (string, []headingEntry) {
	var headings []headingEntry
	seen := make(map[string]int)

	out := headingTagRe.ReplaceAllStringFunc(body, func(tag string) string {
		m := headingTagRe.FindStringSubmatch(tag)
		level := int(m[1][0] - '0')
		attrs, inner := m[2], m[3]
		text := stripTags(inner)

		// An already-anchored heading keeps its id untouched; this is what
		// makes the pass idempotent.
		if idm := idAttrRe.FindStringSubmatch(attrs); idm != nil {
			if _, ok := seen[idm[1]]; !ok {
				seen[idm[1]] = 1
			}
			headings = append(headings, headingEntry{level: level, anchor: idm[1], text: text})
			return tag
		}

		anchor := Slugify(text)
		if anchor == "" {
			anchor = "section"
		}
		if n, ok := seen[anchor]; ok {
			seen[anchor] = n + 1
			anchor = fmt.Sprintf("%s-%d", anchor, n)
		} else {
			seen[anchor] = 1
		}

		headings = append(headings, headingEntry{level: level, anchor: anchor, text: text})
		return fmt.Sprintf(`<h%d id="%s"%s>%s</h%d>`, level, anchor, attrs, inner, level)
	})
	return out, headings
}

// injectTOC replaces the first macro sentinel with the rendered table of
// contents and removes any further sentinels. Without a sentinel the body
// is returned untouched: the TOC is strictly opt-in.
func injectTOC(body string, headings []headingEntry) string {
	if !strings.Contains(body, tocSentinel) {
		return body
	}
	body = strings.Replace(body, tocSentinel, buildTOC(headings), 1)
	return strings.ReplaceAll(body, tocSentinel, "")
}

// buildTOC renders the nested contents list. Levels are relative to the
// shallowest heading on the page, so a page using only h2/h3 still starts
// at the first indent level. An empty list is valid output: the author
// asked for a TOC on a heading-less page.
func buildTOC(headings []headingEntry) string {
	var b strings.Builder
	b.WriteString(`<div class="toc"><div class="toc-title">Contents</div>`)
	if len(headings) > 0 {
		min := headings[0].level
		for _, h := range headings {
			if h.level < min {
				min = h.level
			}
		}
		// Deeper levels open their <ul> inside the previous entry's <li>,
		// which therefore stays open until a sibling or a dedent closes it.
		depth := 0
		for _, h := range headings {
			rel := h.level - min + 1
			if rel > depth+1 {
				rel = depth + 1
			}
			switch {
			case rel > depth:
				b.WriteString("<ul>")
				depth = rel
			case rel == depth:
				b.WriteString("</li>")
			default:
				for depth > rel {
					b.WriteString("</li></ul>")
					depth--
				}
				b.WriteString("</li>")
			}
			b.WriteString(`<li><a href="#` + h.anchor + `">` + h.text + `</a>`)
		}
		for depth > 0 {
			b.WriteString("</li></ul>")
			depth--
		}
	}
	b.WriteString("</div>")
	return b.String()
}

// hardenExternalLinks adds target="_blank" rel="noopener noreferrer" to
// anchors leaving the site. Anchors that already carry a target, and
// internal links (fragments, relative paths, the wiki itself), are left
// alone; running the pass twice changes nothing.
func hardenExternalLinks(body string, pc *pageContext) string {
	return anchorTagRe.ReplaceAllStringFunc(body, func(tag string) string {
		if strings.Contains(tag, "target=") {
			return tag
		}
		m := hrefAttrRe.FindStringSubmatch(tag)
		if m == nil || !isExternalHref(m[1], pc) {
			return tag
		}
		return tag[:len(tag)-1] + ` target="_blank" rel="noopener noreferrer">`
	})
}

func isExternalHref(href string, pc *pageContext) bool {
	lower := strings.ToLower(href)
	external := strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "ftp://") ||
		strings.HasPrefix(lower, "//")
	if !external {
		return false
	}
	// An absolute base URL makes same-site links look external; keep them
	// internal.
	if pc.baseURL != "" && strings.HasPrefix(href, pc.baseURL+"/") {
		return false
	}
	return true
}
