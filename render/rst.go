package render

import (
	"html"
	"regexp"
	"strings"
)

// rstDialect is a pragmatic structured-text parser covering the subset wiki
// pages actually use: underlined headings, lists, literal blocks, a handful
// of directives and simple inline markup. It is line-oriented like the
// wikitext parser; full docutils fidelity is out of scope.
type rstDialect struct {
	// promoteDocTitle would lift a lone top-level heading out of the body
	// and treat it as the document title, the way docutils does for
	// standalone documents. It stays false on purpose: page titles live in
	// the wiki chrome and the body must keep every heading it declares.
	promoteDocTitle bool
}

const rstUnderlineRunes = "=-~^\"'`*+#"

var (
	rstDirectiveRe = regexp.MustCompile(`^\.\.\s+([\w-]+)::\s*(.*)$`)
	rstBulletRe    = regexp.MustCompile(`^(\s*)[-*+]\s+(\S.*)$`)
	rstEnumRe      = regexp.MustCompile(`^(\s*)(?:\d+\.|#\.)\s+(\S.*)$`)
	rstFieldRe     = regexp.MustCompile(`^:([\w-]+):\s*(.*)$`)
	rstLinkRe      = regexp.MustCompile("`([^`<]+?)\\s+&lt;([^&`]+?)&gt;`_")
	rstLiteralRe   = regexp.MustCompile("``([^`]+)``")
	rstStrongRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	rstEmRe        = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
)

func (d *rstDialect) ParseBlocks(source string, pc *pageContext) string {
	st := &rstState{pc: pc, d: d, levels: make(map[byte]int)}
	lines := strings.Split(source, "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimRight(line, " \t")
		stripped := strings.TrimSpace(trimmed)
		indented := strings.HasPrefix(line, " ") && stripped != ""

		switch {
		case stripped == "":
			st.flushPara()
			st.closeLists()

		case stripped == tocSentinel:
			st.flushPara()
			st.closeLists()
			st.out.WriteString(tocSentinel + "\n")

		case !indented && len(st.para) == 0 && i+1 < len(lines) && isRstUnderline(lines[i+1], len(trimmed)):
			st.closeLists()
			level := st.levelFor(strings.TrimRight(lines[i+1], " \t")[0])
			if d.promoteDocTitle && !st.promoted && level == 1 && st.out.Len() == 0 {
				// Docutils-style promotion: the leading top-level heading
				// becomes the document title and leaves the body.
				st.promoted = true
				i++
				continue
			}
			st.out.WriteString(levelTag(level, d.Inline(stripped, pc)))
			i++

		case !indented && rstDirectiveRe.MatchString(trimmed):
			st.flushPara()
			st.closeLists()
			m := rstDirectiveRe.FindStringSubmatch(trimmed)
			i = st.directive(m[1], strings.TrimSpace(m[2]), lines, i)

		case rstBulletRe.MatchString(trimmed):
			st.flushPara()
			m := rstBulletRe.FindStringSubmatch(trimmed)
			st.setUL(len(m[1])/2 + 1)
			st.out.WriteString("<li>" + d.Inline(m[2], pc) + "</li>\n")

		case rstEnumRe.MatchString(trimmed):
			st.flushPara()
			m := rstEnumRe.FindStringSubmatch(trimmed)
			st.setOL(len(m[1])/2 + 1)
			st.out.WriteString("<li>" + d.Inline(m[2], pc) + "</li>\n")

		case !indented && strings.HasSuffix(stripped, "::"):
			// A paragraph ending in :: introduces a literal block. The
			// marker collapses to a single colon; a bare :: vanishes.
			st.closeLists()
			text := strings.TrimSuffix(stripped, "::")
			if strings.TrimSpace(text) != "" {
				st.para = append(st.para, strings.TrimSpace(text)+":")
			}
			st.flushPara()
			block, next := gatherIndented(lines, i+1)
			i = next
			st.out.WriteString("<pre>" + html.EscapeString(strings.Join(block, "\n")) + "</pre>\n")

		case !indented && len(st.para) == 0 && nextIsIndented(lines, i):
			// Term line directly over an indented block: definition list.
			st.closeULOL()
			block, next := gatherIndented(lines, i+1)
			i = next
			st.openDL()
			st.out.WriteString("<dt>" + d.Inline(stripped, pc) + "</dt>\n")
			st.out.WriteString("<dd>" + d.Inline(strings.Join(block, " "), pc) + "</dd>\n")

		case indented && len(st.para) == 0 && st.ul == 0 && st.ol == 0:
			st.closeLists()
			block, next := gatherIndented(lines, i)
			i = next
			st.out.WriteString("<blockquote><p>" + d.Inline(strings.Join(block, " "), pc) + "</p></blockquote>\n")

		default:
			st.closeLists()
			st.para = append(st.para, stripped)
		}
	}
	st.flushPara()
	st.closeLists()
	return st.out.String()
}

// directive handles one explicit-markup block and returns the index of its
// last line. Unknown directives, categories and redirects are consumed
// silently; extraction reads them from the raw source.
func (st *rstState) directive(name, arg string, lines []string, i int) int {
	block, next := gatherIndented(lines, i+1)
	switch name {
	case "code", "code-block", "sourcecode":
		st.out.WriteString(st.pc.codeBlock(strings.Join(block, "\n"), arg))
	case "image":
		st.image(arg, block)
	}
	return next
}

// image renders the image directive. An attachment: target is resolved
// against the request's attachment map; anything else is used as the URL
// verbatim. Recognized option fields: alt, width, height.
func (st *rstState) image(target string, options []string) {
	alt, size := target, ""
	for _, opt := range options {
		m := rstFieldRe.FindStringSubmatch(strings.TrimSpace(opt))
		if m == nil {
			continue
		}
		val := strings.TrimSpace(m[2])
		switch m[1] {
		case "alt":
			alt = val
		case "width":
			size += ` width="` + val + `"`
		case "height":
			size += ` height="` + val + `"`
		}
	}

	url := target
	if name, ok := strings.CutPrefix(target, "attachment:"); ok {
		resolved, found := st.pc.attachmentURL(strings.TrimSpace(name))
		if !found {
			st.out.WriteString(`<span class="missing-file">[missing file: ` + html.EscapeString(strings.TrimSpace(name)) + `]</span>` + "\n")
			return
		}
		url = resolved
	}
	st.out.WriteString(`<img src="` + url + `" alt="` + html.EscapeString(alt) + `"` + size + ">\n")
}

// Inline renders rst span markup. Raw text is HTML-escaped first, so the
// link pattern matches the escaped form of `label <url>`_.
func (d *rstDialect) Inline(text string, pc *pageContext) string {
	s := html.EscapeString(text)
	s = rstLiteralRe.ReplaceAllString(s, "<code>$1</code>")
	s = rstLinkRe.ReplaceAllString(s, `<a href="$2" class="external">$1</a>`)
	s = rstStrongRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = rstEmRe.ReplaceAllString(s, "<em>$1</em>")
	s = wikilinkRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := wikilinkRe.FindStringSubmatch(m)
		title := strings.TrimSpace(sub[1])
		label := title
		if sub[2] != "" {
			label = strings.TrimSpace(sub[2])
		}
		return `<a href="` + pc.wikiHref(title) + `" class="wikilink">` + label + `</a>`
	})
	return autolink(s)
}

// This dialect escapes all raw text, macro sentinels included; restore them
// so the post-processing pass can find its markers.
func (d *rstDialect) unwrapSentinels(body string) string {
	return strings.ReplaceAll(body, html.EscapeString(tocSentinel), tocSentinel)
}

type rstState struct {
	pc       *pageContext
	d        *rstDialect
	out      strings.Builder
	para     []string
	levels   map[byte]int
	ul       int
	ol       int
	dl       bool
	promoted bool
}

// levelFor maps an underline rune to a heading level in first-use order,
// the way docutils assigns section levels.
func (st *rstState) levelFor(c byte) int {
	if l, ok := st.levels[c]; ok {
		return l
	}
	l := len(st.levels) + 1
	if l > 6 {
		l = 6
	}
	st.levels[c] = l
	return l
}

func (st *rstState) flushPara() {
	if len(st.para) == 0 {
		return
	}
	st.out.WriteString("<p>" + st.d.Inline(strings.Join(st.para, " "), st.pc) + "</p>\n")
	st.para = nil
}

func (st *rstState) setUL(n int) {
	st.closeDL()
	for st.ol > 0 {
		st.out.WriteString("</ol>\n")
		st.ol--
	}
	for st.ul < n {
		st.out.WriteString("<ul>\n")
		st.ul++
	}
	for st.ul > n {
		st.out.WriteString("</ul>\n")
		st.ul--
	}
}

func (st *rstState) setOL(n int) {
	st.closeDL()
	for st.ul > 0 {
		st.out.WriteString("</ul>\n")
		st.ul--
	}
	for st.ol < n {
		st.out.WriteString("<ol>\n")
		st.ol++
	}
	for st.ol > n {
		st.out.WriteString("</ol>\n")
		st.ol--
	}
}

func (st *rstState) openDL() {
	if !st.dl {
		st.out.WriteString("<dl>\n")
		st.dl = true
	}
}

func (st *rstState) closeDL() {
	if st.dl {
		st.out.WriteString("</dl>\n")
		st.dl = false
	}
}

func (st *rstState) closeULOL() {
	st.setUL(0)
}

func (st *rstState) closeLists() {
	st.setUL(0)
	st.closeDL()
}

func isRstUnderline(line string, minLen int) bool {
	t := strings.TrimRight(line, " \t")
	if len(t) < 2 || len(t) < minLen {
		return false
	}
	c := t[0]
	if !strings.ContainsRune(rstUnderlineRunes, rune(c)) {
		return false
	}
	for j := 1; j < len(t); j++ {
		if t[j] != c {
			return false
		}
	}
	return true
}

func nextIsIndented(lines []string, i int) bool {
	return i+1 < len(lines) &&
		strings.HasPrefix(lines[i+1], " ") &&
		strings.TrimSpace(lines[i+1]) != ""
}

// gatherIndented collects the indented block starting at lines[i] (leading
// blank lines skipped), dedents it by its common indentation and returns it
// with the index of the last consumed line.
func gatherIndented(lines []string, i int) ([]string, int) {
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	var block []string
	last := i - 1
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			block = append(block, "")
			continue
		}
		if !strings.HasPrefix(lines[i], " ") {
			break
		}
		block = append(block, lines[i])
		last = i
	}
	// Drop trailing blanks kept while looking ahead.
	block = block[:lastNonBlank(block)]

	indent := -1
	for _, l := range block {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for j, l := range block {
			if len(l) >= indent {
				block[j] = l[indent:]
			}
		}
	}
	return block, last
}

func lastNonBlank(block []string) int {
	for n := len(block); n > 0; n-- {
		if strings.TrimSpace(block[n-1]) != "" {
			return n
		}
	}
	return 0
}
