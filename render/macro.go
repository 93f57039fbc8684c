package render

import (
	"regexp"

	"github.com/loamwiki/loam/sliceedit"
)

// tocSentinel is what the table-of-contents macro becomes before block
// parsing. An HTML comment passes through every dialect untouched (rst
// escapes it and unwraps it again), and the random-looking token keeps page
// authors from forging one by accident.
const tocSentinel = "<!--loam:toc:c41b9f-->"

// tocMacroRe matches the {{toc}} macro (any case, inner whitespace allowed)
// and the __TOC__ magic word.
var tocMacroRe = regexp.MustCompile(`(?i)\{\{\s*toc\s*\}\}|__TOC__`)

// ExpandMacros replaces every recognized macro in source with its sentinel,
// editing at exact byte offsets so the rest of the source is byte-identical.
// Unrecognized {{...}} constructs are left for the dialects to deal with.
// Running it over its own output is a no-op: sentinels match no macro.
func ExpandMacros(source string) string {
	locs := tocMacroRe.FindAllStringIndex(source, -1)
	if locs == nil {
		return source
	}
	buf := sliceedit.NewBufferString(source)
	for _, loc := range locs {
		buf.ReplaceRange(loc[0], loc[1], tocSentinel)
	}
	return buf.String()
}
