package render

import (
	"bytes"
	"regexp"
	"strings"

	highlighting "github.com/yuin/goldmark-highlighting/v2"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// markdownDialect wraps goldmark. Wiki-specific syntax (wikilinks and
// attachment images) is rewritten on the source before conversion; the raw
// HTML this produces, and the macro sentinels, survive because the renderer
// runs with unsafe HTML enabled. Sanitization is a caller policy, applied
// after the whole pipeline.
type markdownDialect struct {
	md goldmark.Markdown
}

var (
	attachmentImgRe = regexp.MustCompile(`!\[([^\]]*)\]\(attachment:([^)|]+)(?:\|([^)]+))?\)`)
	sizeBothRe      = regexp.MustCompile(`^(\d+)x(\d+)$`)
	sizeHeightRe    = regexp.MustCompile(`^x(\d+)$`)
	sizeWidthRe     = regexp.MustCompile(`^(\d+)$`)
)

func newMarkdownDialect(style string) *markdownDialect {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
				highlighting.WithWrapperRenderer(codeWrapper),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &markdownDialect{md: md}
}

// codeWrapper wraps highlighted fences in the same <div class="highlight">
// the other dialects use. With a wrapper installed the highlighting
// extension delegates the un-highlighted fallback too, so that branch
// reproduces the default <pre><code> shape.
func codeWrapper(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
	if ctx.Highlighted() {
		if entering {
			_, _ = w.WriteString(`<div class="highlight">`)
		} else {
			_, _ = w.WriteString("</div>\n")
		}
		return
	}
	if entering {
		_, _ = w.WriteString("<pre><code")
		if lang, ok := ctx.Language(); ok && len(bytes.TrimSpace(lang)) > 0 {
			_, _ = w.WriteString(` class="language-`)
			_, _ = w.Write(util.EscapeHTML(lang))
			_, _ = w.WriteString(`"`)
		}
		_, _ = w.WriteString(">")
		return
	}
	_, _ = w.WriteString("</code></pre>\n")
}

func (d *markdownDialect) ParseBlocks(source string, pc *pageContext) string {
	src := d.Inline(source, pc)
	var buf bytes.Buffer
	if err := d.md.Convert([]byte(src), &buf); err != nil {
		return RenderPlain(source)
	}
	return buf.String()
}

// Inline is the markdown pre-conversion hook: it rewrites wiki syntax into
// plain HTML or markdown on the raw source. Category tags are stripped
// (extraction reads the original source), wikilinks become anchors with the
// wikilink class, and attachment image references are resolved against the
// request's attachment map.
func (d *markdownDialect) Inline(text string, pc *pageContext) string {
	s := stripCategoryTags(text)

	s = attachmentImgRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := attachmentImgRe.FindStringSubmatch(m)
		alt, name, size := sub[1], strings.TrimSpace(sub[2]), strings.TrimSpace(sub[3])
		url, ok := pc.attachmentURL(name)
		if !ok {
			// Unresolved attachment references stay as written; the page
			// keeps rendering and the author sees the literal reference.
			return m
		}
		if size == "" {
			return "![" + alt + "](" + url + ")"
		}
		return `<img src="` + url + `" alt="` + alt + `"` + sizeAttrs(size) + `>`
	})

	s = wikilinkRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := wikilinkRe.FindStringSubmatch(m)
		title := strings.TrimSpace(sub[1])
		lower := strings.ToLower(title)
		if strings.HasPrefix(lower, "file:") || strings.HasPrefix(lower, "category:") {
			return m
		}
		label := title
		if sub[2] != "" {
			label = strings.TrimSpace(sub[2])
		}
		return `<a href="` + pc.wikiHref(title) + `" class="wikilink">` + label + `</a>`
	})
	return s
}

// sizeAttrs parses the attachment size suffix: "W", "xH" or "WxH".
func sizeAttrs(size string) string {
	if m := sizeBothRe.FindStringSubmatch(size); m != nil {
		return ` width="` + m[1] + `" height="` + m[2] + `"`
	}
	if m := sizeHeightRe.FindStringSubmatch(size); m != nil {
		return ` height="` + m[1] + `"`
	}
	if m := sizeWidthRe.FindStringSubmatch(size); m != nil {
		return ` width="` + m[1] + `"`
	}
	return ""
}

// Goldmark HTML-escapes nothing we need back: with unsafe HTML on, comment
// sentinels pass through conversion verbatim.
func (d *markdownDialect) unwrapSentinels(body string) string { return body }
