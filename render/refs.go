package render

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	refTagRe = regexp.MustCompile(`(?is)<ref\s+name\s*=\s*"?([^">/]+?)"?\s*/>|<ref(?:\s+name\s*=\s*"?([^">/]+?)"?\s*)?>(.*?)</ref>`)
	refsPosRe = regexp.MustCompile(`(?i)<references\s*/>`)
)

// footnote is one note in the reference list. Named notes can be cited more
// than once; every citation gets its own superscript id so the back-links
// in the list stay one-to-one.
type footnote struct {
	num      int
	body     string
	backrefs []string // superscript ids, in citation order
}

// resolveRefs numbers <ref> citations in document order, replaces them with
// superscript markers and expands <references /> into the note list. A
// self-closing <ref name=x /> reuses the body of the <ref name=x>...</ref>
// it refers to, wherever that definition appears. When the page has
// citations but no <references /> placeholder, the markers still render and
// no list is injected.
func resolveRefs(body string) string {
	if !strings.Contains(strings.ToLower(body), "<ref") {
		return refsPosRe.ReplaceAllString(body, "")
	}

	var notes []*footnote
	byName := make(map[string]*footnote)

	// Self-closing refs can precede their definition, so bodies are filled
	// in a first pass before the markers are written.
	for _, m := range refTagRe.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if m[3] != "" {
			if n, ok := byName[name]; ok {
				if n.body == "" {
					n.body = m[3]
				}
				continue
			}
			byName[name] = &footnote{body: m[3]}
		} else if _, ok := byName[name]; !ok {
			byName[name] = &footnote{}
		}
	}

	out := refTagRe.ReplaceAllStringFunc(body, func(tag string) string {
		m := refTagRe.FindStringSubmatch(tag)
		name := strings.TrimSpace(m[1])
		if name == "" {
			name = strings.TrimSpace(m[2])
		}

		var n *footnote
		if name != "" {
			n = byName[name]
		} else {
			n = &footnote{body: m[3]}
		}
		if n.num == 0 {
			n.num = len(notes) + 1
			notes = append(notes, n)
		}

		supID := fmt.Sprintf("cite-ref-%d", n.num)
		if k := len(n.backrefs); k > 0 {
			supID = fmt.Sprintf("cite-ref-%d-%d", n.num, k)
		}
		n.backrefs = append(n.backrefs, supID)
		return fmt.Sprintf(`<sup class="reference" id="%s"><a href="#cite-note-%d">[%d]</a></sup>`, supID, n.num, n.num)
	})

	if len(notes) == 0 {
		return refsPosRe.ReplaceAllString(out, "")
	}
	if !refsPosRe.MatchString(out) {
		return out
	}

	var list strings.Builder
	list.WriteString(`<div class="references"><ol>`)
	for _, n := range notes {
		list.WriteString(fmt.Sprintf(`<li id="cite-note-%d">`, n.num))
		for _, id := range n.backrefs {
			list.WriteString(`<a href="#` + id + `">↑</a> `)
		}
		list.WriteString(n.body)
		list.WriteString("</li>")
	}
	list.WriteString("</ol></div>")

	replaced := false
	return refsPosRe.ReplaceAllStringFunc(out, func(string) string {
		if replaced {
			return ""
		}
		replaced = true
		return list.String()
	})
}
