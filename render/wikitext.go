package render

import (
	"html"
	"regexp"
	"strings"
)

// wikitextDialect is the line-oriented wiki-markup parser. Each source line
// is classified by its prefix and either emitted as a block, folded into an
// open construct (list, table, code block) or accumulated into the current
// paragraph.
type wikitextDialect struct{}

var (
	wtHeadingRe = regexp.MustCompile(`^(={1,6})\s*([^=\s].*?)\s*=+\s*$`)
	wtHRRe      = regexp.MustCompile(`^-{4,}\s*$`)
	wtListRe    = regexp.MustCompile(`^([*#]+)\s*(.*)$`)
	wtTmplRe    = regexp.MustCompile(`^\{\{([^{}]+)\}\}$`)
	shOpenRe    = regexp.MustCompile(`(?i)^<syntaxhighlight(?:\s+lang="([^"]*)")?\s*>$`)
	shCloseRe   = regexp.MustCompile(`(?i)^</syntaxhighlight>$`)
)

// Raw wikitext is never HTML-escaped, so sentinels arrive in the output
// unharmed and there is nothing to unwrap.
func (d *wikitextDialect) unwrapSentinels(body string) string { return body }

func (d *wikitextDialect) ParseBlocks(source string, pc *pageContext) string {
	st := &wtState{pc: pc, d: d}
	lines := strings.Split(source, "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimRight(line, " \t")
		stripped := strings.TrimSpace(trimmed)

		switch {
		case stripped == "":
			st.flushPara()
			st.closeLists()

		case strings.HasPrefix(trimmed, "```"):
			st.flushPara()
			st.closeLists()
			lang := strings.TrimSpace(trimmed[3:])
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```"); i++ {
				code = append(code, lines[i])
			}
			st.out.WriteString(pc.codeBlock(strings.Join(code, "\n"), lang))

		case shOpenRe.MatchString(stripped):
			st.flushPara()
			st.closeLists()
			lang := shOpenRe.FindStringSubmatch(stripped)[1]
			var code []string
			for i++; i < len(lines) && !shCloseRe.MatchString(strings.TrimSpace(lines[i])); i++ {
				code = append(code, lines[i])
			}
			st.out.WriteString(pc.codeBlock(strings.Join(code, "\n"), lang))

		case stripped == "<pre>":
			st.flushPara()
			st.closeLists()
			var block []string
			for i++; i < len(lines) && strings.TrimSpace(lines[i]) != "</pre>"; i++ {
				block = append(block, lines[i])
			}
			st.out.WriteString("<pre>" + html.EscapeString(strings.Join(block, "\n")) + "</pre>\n")

		case strings.HasPrefix(trimmed, "{|"):
			st.flushPara()
			st.closeLists()
			i = st.table(lines, i)

		case wtHeadingRe.MatchString(trimmed):
			st.flushPara()
			st.closeLists()
			m := wtHeadingRe.FindStringSubmatch(trimmed)
			level := len(m[1])
			st.out.WriteString(levelTag(level, d.Inline(m[2], pc)))

		case wtHRRe.MatchString(trimmed):
			st.flushPara()
			st.closeLists()
			st.out.WriteString("<hr>\n")

		case stripped == tocSentinel:
			st.flushPara()
			st.closeLists()
			st.out.WriteString(tocSentinel + "\n")

		case refsPosRe.FindString(stripped) == stripped:
			// The note-list placeholder is block-level, like the TOC
			// sentinel; inside a paragraph the notes would render in a <p>.
			st.flushPara()
			st.closeLists()
			st.out.WriteString(stripped + "\n")

		case wtTmplRe.MatchString(stripped):
			st.flushPara()
			st.closeLists()
			inner := strings.TrimSpace(wtTmplRe.FindStringSubmatch(stripped)[1])
			st.out.WriteString(`<div class="wiki-template">` + html.EscapeString(inner) + "</div>\n")

		case wtListRe.MatchString(trimmed) && (trimmed[0] == '*' || trimmed[0] == '#'):
			st.flushPara()
			m := wtListRe.FindStringSubmatch(trimmed)
			if m[1][0] == '*' {
				st.setUL(len(m[1]))
			} else {
				st.setOL(len(m[1]))
			}
			st.out.WriteString("<li>" + d.Inline(m[2], pc) + "</li>\n")

		case strings.HasPrefix(trimmed, ";"):
			st.flushPara()
			st.closeULOL()
			st.openDL()
			body := strings.TrimSpace(trimmed[1:])
			term, def := body, ""
			if idx := strings.Index(body, ":"); idx >= 0 {
				term = strings.TrimSpace(body[:idx])
				def = strings.TrimSpace(body[idx+1:])
			}
			st.out.WriteString("<dt>" + d.Inline(term, pc) + "</dt>\n")
			if def != "" {
				st.out.WriteString("<dd>" + d.Inline(def, pc) + "</dd>\n")
			}

		case strings.HasPrefix(trimmed, ":"):
			st.flushPara()
			st.closeULOL()
			st.openDL()
			st.out.WriteString("<dd>" + d.Inline(strings.TrimSpace(trimmed[1:]), pc) + "</dd>\n")

		case strings.HasPrefix(line, " "):
			// Leading-space convention: consecutive indented lines form a
			// preformatted block.
			st.flushPara()
			st.closeLists()
			var block []string
			for ; i < len(lines) && strings.HasPrefix(lines[i], " ") && strings.TrimSpace(lines[i]) != ""; i++ {
				block = append(block, strings.TrimPrefix(lines[i], " "))
			}
			i--
			st.out.WriteString("<pre>" + html.EscapeString(strings.Join(block, "\n")) + "</pre>\n")

		case strings.Contains(strings.ToLower(stripped), "[[file:"):
			st.flushPara()
			st.closeLists()
			st.out.WriteString(d.Inline(stripped, pc) + "\n")

		default:
			clean := stripCategoryTags(trimmed)
			if strings.TrimSpace(clean) == "" {
				continue // the line held only category tags
			}
			st.closeLists()
			st.para = append(st.para, strings.TrimSpace(clean))
		}
	}
	st.flushPara()
	st.closeLists()

	body := resolveRefs(st.out.String())
	return body + categoryFooter(source, pc)
}

func levelTag(level int, inner string) string {
	tag := "h" + string(rune('0'+level))
	return "<" + tag + ">" + inner + "</" + tag + ">\n"
}

// categoryFooter renders the category membership box appended to wikitext
// pages. The tags themselves are stripped from the body during inline
// rendering.
func categoryFooter(source string, pc *pageContext) string {
	cats := ExtractCategories(source, FormatWikitext)
	if len(cats) == 0 {
		return ""
	}
	links := make([]string, 0, len(cats))
	for _, c := range cats {
		links = append(links, `<a href="`+pc.categoryHref(c)+`" class="category-link">`+html.EscapeString(c)+`</a>`)
	}
	return `<div class="wiki-categories"><strong>Categories:</strong> ` + strings.Join(links, " · ") + "</div>\n"
}

// wtState carries the open-construct bookkeeping of one parse.
type wtState struct {
	pc   *pageContext
	d    *wikitextDialect
	out  strings.Builder
	para []string
	ul   int
	ol   int
	dl   bool
}

// flushPara emits the accumulated paragraph, joining its lines with <br> so
// soft wraps in the source stay visible.
func (st *wtState) flushPara() {
	if len(st.para) == 0 {
		return
	}
	rendered := make([]string, 0, len(st.para))
	for _, l := range st.para {
		rendered = append(rendered, st.d.Inline(l, st.pc))
	}
	st.out.WriteString("<p>" + strings.Join(rendered, "<br>") + "</p>\n")
	st.para = nil
}

func (st *wtState) setUL(n int) {
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

func (st *wtState) setOL(n int) {
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

func (st *wtState) openDL() {
	if !st.dl {
		st.out.WriteString("<dl>\n")
		st.dl = true
	}
}

func (st *wtState) closeDL() {
	if st.dl {
		st.out.WriteString("</dl>\n")
		st.dl = false
	}
}

func (st *wtState) closeULOL() {
	st.setUL(0)
}

func (st *wtState) closeLists() {
	st.setUL(0)
	st.closeDL()
}

// table consumes a {| ... |} block starting at lines[i] and returns the
// index of its last line. Cells accumulated before the first |- form an
// implicit first row.
func (st *wtState) table(lines []string, i int) int {
	attrs := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), "{|"))
	switch {
	case attrs == "":
		st.out.WriteString(`<table class="wikitable">`)
	case strings.Contains(attrs, "class="):
		st.out.WriteString("<table " + attrs + ">")
	default:
		st.out.WriteString(`<table class="wikitable" ` + attrs + ">")
	}
	st.out.WriteString("\n")

	var row []string
	flushRow := func() {
		if len(row) == 0 {
			return
		}
		st.out.WriteString("<tr>")
		for _, c := range row {
			st.out.WriteString(c)
		}
		st.out.WriteString("</tr>\n")
		row = nil
	}

	for i++; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "|}") {
			break
		}
		switch {
		case strings.HasPrefix(line, "|+"):
			st.out.WriteString("<caption>" + st.d.Inline(strings.TrimSpace(line[2:]), st.pc) + "</caption>\n")
		case strings.HasPrefix(line, "|-"):
			flushRow()
		case strings.HasPrefix(line, "!"):
			for _, cell := range strings.Split(line[1:], "!!") {
				row = append(row, st.tableCell("th", cell))
			}
		case strings.HasPrefix(line, "|"):
			for _, cell := range strings.Split(line[1:], "||") {
				row = append(row, st.tableCell("td", cell))
			}
		}
	}
	flushRow()
	st.out.WriteString("</table>\n")
	return i
}

// tableCell renders one cell, honoring the attrs-before-pipe convention:
// "style=... | content". The attribute part must contain '=' and no '[' so
// wikilink pipes are not mistaken for it.
func (st *wtState) tableCell(tag, raw string) string {
	raw = strings.TrimSpace(raw)
	attrs := ""
	if idx := strings.Index(raw, "|"); idx >= 0 {
		head := raw[:idx]
		if strings.Contains(head, "=") && !strings.Contains(head, "[") {
			attrs = " " + strings.TrimSpace(head)
			raw = strings.TrimSpace(raw[idx+1:])
		}
	}
	return "<" + tag + attrs + ">" + st.d.Inline(raw, st.pc) + "</" + tag + ">"
}
