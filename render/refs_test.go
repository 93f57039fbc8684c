package render

import (
	"strings"
	"testing"
)

func TestRefsNumbering(t *testing.T) {
	src := "First.<ref>Note one</ref> Second.<ref>Note two</ref>\n\n<references />"
	got := renderWikitext(t, src)

	for _, want := range []string{
		`<sup class="reference" id="cite-ref-1"><a href="#cite-note-1">[1]</a></sup>`,
		`<sup class="reference" id="cite-ref-2"><a href="#cite-note-2">[2]</a></sup>`,
		`<li id="cite-note-1">`,
		`<li id="cite-note-2">`,
		"Note one",
		"Note two",
		"↑",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestRefsNamedReuse(t *testing.T) {
	src := `Fact.<ref name="a">Note A</ref> Again.<ref name="a" />` + "\n\n<references />"
	got := renderWikitext(t, src)

	// Both citations point at the same note.
	if n := strings.Count(got, `href="#cite-note-1"`); n != 2 {
		t.Errorf("want 2 citations of note 1, got %d in:\n%s", n, got)
	}
	if !strings.Contains(got, `id="cite-ref-1"`) || !strings.Contains(got, `id="cite-ref-1-1"`) {
		t.Errorf("missing occurrence-suffixed superscript ids in:\n%s", got)
	}
	// One note with one back-link per citation.
	if n := strings.Count(got, `<li id="cite-note-1">`); n != 1 {
		t.Errorf("want 1 note item, got %d in:\n%s", n, got)
	}
	if n := strings.Count(got, "↑"); n != 2 {
		t.Errorf("want 2 back-links, got %d in:\n%s", n, got)
	}
	if strings.Contains(got, "cite-note-2") {
		t.Errorf("named reuse created a second note:\n%s", got)
	}
}

func TestRefsSelfClosingBeforeDefinition(t *testing.T) {
	src := `Early.<ref name="x" /> Later.<ref name="x">The body</ref>` + "\n\n<references />"
	got := renderWikitext(t, src)

	if n := strings.Count(got, "The body"); n != 1 {
		t.Errorf("want note body once, got %d in:\n%s", n, got)
	}
	if !strings.Contains(got, `<li id="cite-note-1">`) {
		t.Errorf("missing note item in:\n%s", got)
	}
}

func TestRefsPlaceholderCaseInsensitive(t *testing.T) {
	src := "Fact.<ref>Note</ref>\n\n<REFERENCES />"
	got := renderWikitext(t, src)
	if !strings.Contains(got, `<div class="references">`) {
		t.Errorf("uppercase placeholder not expanded in:\n%s", got)
	}
}

func TestRefsWithoutPlaceholder(t *testing.T) {
	got := renderWikitext(t, "Fact.<ref>Dangling note</ref>")
	if !strings.Contains(got, `id="cite-ref-1"`) {
		t.Errorf("citation marker missing in:\n%s", got)
	}
	if strings.Contains(got, `<div class="references">`) {
		t.Errorf("note list injected without placeholder:\n%s", got)
	}
}

func TestRefsListIsBlockLevel(t *testing.T) {
	src := "Fact.<ref>Note</ref>\n\nSee below.\n<references />\nAfter."
	got := renderWikitext(t, src)

	if !strings.Contains(got, `<div class="references">`) {
		t.Fatalf("missing note list in:\n%s", got)
	}
	// The placeholder line ends the paragraph around it; the note list must
	// not render inside a <p>.
	if strings.Contains(got, `<p><div class="references">`) {
		t.Errorf("note list rendered inside a paragraph:\n%s", got)
	}
	if !strings.Contains(got, "<p>See below.</p>") || !strings.Contains(got, "<p>After.</p>") {
		t.Errorf("surrounding paragraphs lost in:\n%s", got)
	}
}

func TestRefsPlaceholderWithoutRefs(t *testing.T) {
	got := renderWikitext(t, "No notes here.\n\n<references />")
	if strings.Contains(got, "references") {
		t.Errorf("placeholder left or list injected in:\n%s", got)
	}
}
