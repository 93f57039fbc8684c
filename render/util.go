package render

import (
	"regexp"
	"strings"
)

var (
	slugDropRe     = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugSpaceRe    = regexp.MustCompile(`[\s_]+`)
	slugCollapseRe = regexp.MustCompile(`-+`)
	tagRe          = regexp.MustCompile(`<[^>]*>`)
)

// Slugify converts a page title or heading into its canonical slug: lowered,
// non-word runes dropped, whitespace and underscores turned into single
// dashes. The rules are deliberately frozen; slugs are the identity of wiki
// URLs and heading anchors, so they must never drift between releases.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugDropRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// stripTags removes HTML tags, leaving the text content. Good enough for
// heading innards produced by this pipeline; not a general HTML parser.
func stripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}
