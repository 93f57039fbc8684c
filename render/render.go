// Package render turns wiki page sources written in one of three markup
// dialects (markdown, rst, wikitext) into a single HTML shape: sanitizable
// fragments with stable heading anchors, an optional table of contents,
// resolved footnotes, hardened external links and a version stamp that lets
// callers cache the output safely.
package render

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Version identifies the output shape of the pipeline. It is baked into the
// cache stamp of every rendered document, so bumping it invalidates all
// previously cached HTML at once.
const Version = 9

// Supported source formats.
const (
	FormatMarkdown = "markdown"
	FormatRST      = "rst"
	FormatWikitext = "wikitext"
)

// ErrUnknownFormat is returned by Render when the request names a format the
// pipeline does not speak. Callers that want to show something anyway can
// fall back to RenderPlain.
var ErrUnknownFormat = errors.New("unknown source format")

// Request carries one page source through the pipeline.
type Request struct {
	Source      string
	Format      string
	Namespace   string
	BaseURL     string
	Attachments map[string]string // attachment name -> URL
	Version     int               // overrides the renderer version when > 0
}

// Document is the rendered result. HTML starts with the cache stamp for
// Version; strip nothing before storing it.
type Document struct {
	HTML    string
	Version int
}

// dialect is what each markup language implements. ParseBlocks produces the
// body HTML, Inline renders span-level markup (some dialects also use it as a
// source pre-processing hook), and unwrapSentinels undoes any escaping the
// dialect applied to macro sentinels so the post-processing pass can find
// them again.
type dialect interface {
	ParseBlocks(source string, pc *pageContext) string
	Inline(text string, pc *pageContext) string
	unwrapSentinels(body string) string
}

// pageContext is the per-request state shared by the dialects.
type pageContext struct {
	namespace   string
	baseURL     string
	attachments map[string]string
	hl          *Highlighter
}

// wikiHref builds the canonical page URL for an internal link target.
func (pc *pageContext) wikiHref(title string) string {
	return pc.baseURL + "/wiki/" + pc.namespace + "/" + Slugify(title)
}

// categoryHref builds the URL of a category listing page. Categories are
// addressed by name, not by slug: /category/Robotics, first-seen casing.
func (pc *pageContext) categoryHref(name string) string {
	return pc.baseURL + "/category/" + url.PathEscape(name)
}

func (pc *pageContext) attachmentURL(name string) (string, bool) {
	url, ok := pc.attachments[name]
	return url, ok
}

// codeBlock highlights code when the language is known and falls back to an
// escaped <pre> otherwise. It never fails.
func (pc *pageContext) codeBlock(code, lang string) string {
	if out, ok := pc.hl.Highlight(code, lang); ok {
		return out
	}
	return "<pre>" + html.EscapeString(code) + "</pre>\n"
}

// Renderer is the rendering pipeline. It is safe for concurrent use: all
// per-request state lives in the pageContext.
type Renderer struct {
	version  int
	style    string
	log      *zap.SugaredLogger
	dialects map[string]dialect
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithVersion overrides the default cache-stamp version.
func WithVersion(v int) Option {
	return func(r *Renderer) {
		if v > 0 {
			r.version = v
		}
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithCodeStyle selects the chroma style used by all highlighting surfaces.
func WithCodeStyle(name string) Option {
	return func(r *Renderer) {
		if name != "" {
			r.style = name
		}
	}
}

// New builds a Renderer with the three standard dialects registered.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		version: Version,
		style:   "github",
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.dialects = map[string]dialect{
		FormatMarkdown: newMarkdownDialect(r.style),
		FormatRST:      &rstDialect{},
		FormatWikitext: &wikitextDialect{},
	}
	return r
}

// Render runs the full pipeline: macro expansion, block parsing, sentinel
// unwrapping, post-processing and stamping. Parse problems never surface as
// errors; the only failure is an unknown format.
func (r *Renderer) Render(req Request) (*Document, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	d, ok := r.dialects[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}

	pc := &pageContext{
		namespace:   req.Namespace,
		baseURL:     strings.TrimRight(req.BaseURL, "/"),
		attachments: req.Attachments,
		hl:          NewHighlighter(r.style),
	}
	if pc.namespace == "" {
		pc.namespace = "main"
	}

	body := ExpandMacros(req.Source)
	body = d.ParseBlocks(body, pc)
	body = d.unwrapSentinels(body)
	body = postProcess(body, pc)

	version := r.version
	if req.Version > 0 {
		version = req.Version
	}
	r.log.Debugw("rendered page", "format", format, "namespace", pc.namespace, "bytes", len(body))
	return &Document{HTML: Stamp(body, version), Version: version}, nil
}

// RenderPlain is the escape hatch for sources in no renderable format: the
// text is shown verbatim inside an escaped <pre>.
func RenderPlain(source string) string {
	return "<pre>" + html.EscapeString(source) + "</pre>\n"
}
