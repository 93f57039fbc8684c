package render

import (
	"html"
	"regexp"
	"strings"
)

var (
	fileRefRe      = regexp.MustCompile(`(?i)\[\[file:([^\]|]+)((?:\|[^\]]*)?)\]\]`)
	wikilinkRe     = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	extLabelRe     = regexp.MustCompile(`\[([a-zA-Z][a-zA-Z0-9+.-]*://[^\s\]]+)\s+([^\]]+)\]`)
	extBareRe      = regexp.MustCompile(`\[([a-zA-Z][a-zA-Z0-9+.-]*://[^\s\]]+)\]`)
	bareURLRe      = regexp.MustCompile(`https?://[^\s<>"']+`)
	boldItalicRe   = regexp.MustCompile(`'''''(.+?)'''''`)
	boldRe         = regexp.MustCompile(`'''(.+?)'''`)
	italicRe       = regexp.MustCompile(`''(.+?)''`)
	imgWidthHtRe   = regexp.MustCompile(`^(\d+)x(\d+)px$`)
	imgHeightRe    = regexp.MustCompile(`^x(\d+)px$`)
	imgWidthRe     = regexp.MustCompile(`^(\d+)px$`)
)

// The wikitext inline engine. Raw text is not HTML-escaped; wikitext pages
// traditionally mix markup with literal HTML, and the <ref> tags the
// footnote resolver consumes must survive this stage verbatim. Order
// matters: bracketed constructs go first so the bare-URL pass never sees a
// URL that is already part of a link.
func (d *wikitextDialect) Inline(text string, pc *pageContext) string {
	s := stripCategoryTags(text)

	s = fileRefRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := fileRefRe.FindStringSubmatch(m)
		return renderFileRef(strings.TrimSpace(sub[1]), sub[2], pc)
	})

	s = wikilinkRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := wikilinkRe.FindStringSubmatch(m)
		title := strings.TrimSpace(sub[1])
		label := title
		if sub[2] != "" {
			label = strings.TrimSpace(sub[2])
		}
		return `<a href="` + pc.wikiHref(title) + `" class="wikilink">` + label + `</a>`
	})

	s = extLabelRe.ReplaceAllString(s, `<a href="$1" class="external">$2</a>`)
	s = extBareRe.ReplaceAllString(s, `<a href="$1" class="external">$1</a>`)
	s = autolink(s)

	s = boldItalicRe.ReplaceAllString(s, "<b><i>$1</i></b>")
	s = boldRe.ReplaceAllString(s, "<b>$1</b>")
	s = italicRe.ReplaceAllString(s, "<i>$1</i>")
	return s
}

// autolink wraps bare URLs in anchors. Go regexp has no lookbehind, so the
// byte before each match is checked by hand: a quote, '=', '[' or '>' means
// the URL is already inside an attribute, a bracket link or a link label,
// and wrapping it again would nest anchors.
func autolink(s string) string {
	locs := bareURLRe.FindAllStringIndex(s, -1)
	if locs == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start > 0 {
			switch s[start-1] {
			case '"', '\'', '=', '[', '>':
				b.WriteString(s[last:end])
				last = end
				continue
			}
		}
		b.WriteString(s[last:start])
		url := s[start:end]
		b.WriteString(`<a href="` + url + `" class="external">` + url + `</a>`)
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// renderFileRef turns [[File:name|...]] into an image embed. A missing
// attachment becomes a visible placeholder, never a broken <img>.
// Recognized options: thumb/frame (figure with caption), left/right
// (alignment class), NNpx / xNNpx / WxHpx (dimensions). The last
// unrecognized parameter is the caption.
func renderFileRef(name, rawParams string, pc *pageContext) string {
	url, ok := pc.attachmentURL(name)
	if !ok {
		return `<span class="missing-file">[missing file: ` + html.EscapeString(name) + `]</span>`
	}

	var (
		thumb   bool
		align   string
		size    string
		caption string
	)
	for _, p := range strings.Split(rawParams, "|") {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case p == "thumb" || p == "frame":
			thumb = true
		case p == "left" || p == "right":
			align = p
		case imgWidthHtRe.MatchString(p):
			m := imgWidthHtRe.FindStringSubmatch(p)
			size = ` width="` + m[1] + `" height="` + m[2] + `"`
		case imgHeightRe.MatchString(p):
			size = ` height="` + imgHeightRe.FindStringSubmatch(p)[1] + `"`
		case imgWidthRe.MatchString(p):
			size = ` width="` + imgWidthRe.FindStringSubmatch(p)[1] + `"`
		default:
			caption = p
		}
	}

	alt := caption
	if alt == "" {
		alt = name
	}
	img := `<img src="` + url + `" alt="` + html.EscapeString(alt) + `"` + size + `>`

	if !thumb {
		return img
	}
	class := "wiki-figure"
	if align != "" {
		class += " img-" + align
	}
	var b strings.Builder
	b.WriteString(`<figure class="` + class + `">`)
	b.WriteString(img)
	if caption != "" {
		b.WriteString(`<figcaption>` + html.EscapeString(caption) + `</figcaption>`)
	}
	b.WriteString(`</figure>`)
	return b.String()
}
