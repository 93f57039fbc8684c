package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	hlhtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter is the single chroma adapter behind every highlighting surface:
// markdown fences, wikitext fences and <syntaxhighlight> tags, and the rst
// code directive.
type Highlighter struct {
	style string
}

func NewHighlighter(style string) *Highlighter {
	if style == "" {
		style = "github"
	}
	return &Highlighter{style: style}
}

// Highlight returns the highlighted HTML for code in the given language.
// The second return value is false when the language is empty or unknown,
// or when tokenising fails; the caller then falls back to an escaped <pre>.
// Lexer selection is by declared language only, never content sniffing, so
// the same source always renders the same way.
func (h *Highlighter) Highlight(code, lang string) (string, bool) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "", false
	}
	l := lexers.Get(lang)
	if l == nil {
		return "", false
	}
	l = chroma.Coalesce(l)

	s := styles.Get(h.style)
	if s == nil {
		s = styles.Fallback
	}

	it, err := l.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	var b strings.Builder
	b.WriteString(`<div class="highlight">`)
	f := hlhtml.New(hlhtml.Standalone(false), hlhtml.WithClasses(true))
	if err := f.Format(&b, s, it); err != nil {
		return "", false
	}
	b.WriteString("</div>\n")
	return b.String(), true
}
