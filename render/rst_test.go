package render

import (
	"strings"
	"testing"
)

func renderRST(t *testing.T, src string) string {
	t.Helper()
	r := New()
	doc, err := r.Render(Request{
		Source:    src,
		Format:    FormatRST,
		Namespace: "main",
		Attachments: map[string]string{
			"photo.png": "/files/photo.png",
		},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return doc.HTML
}

func TestRSTHeadings(t *testing.T) {
	src := "Title\n=====\n\nIntro.\n\nSection\n-------\n\nSub\n~~~\n\nAnother\n-------"
	got := renderRST(t, src)

	for _, want := range []string{
		`<h1 id="title">Title</h1>`,
		`<h2 id="section">Section</h2>`,
		`<h3 id="sub">Sub</h3>`,
		`<h2 id="another">Another</h2>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestRSTTitleStaysInBody(t *testing.T) {
	// A lone leading heading must not be promoted out of the body: the
	// pipeline always leaves promoteDocTitle off.
	got := renderRST(t, "Only Title\n==========\n\ntext")
	if !strings.Contains(got, `<h1 id="only-title">Only Title</h1>`) {
		t.Errorf("leading heading missing from body:\n%s", got)
	}
}

func TestRSTDocTitlePromotion(t *testing.T) {
	src := "Title\n=====\n\ntext\n\nSection\n-------"
	pc := &pageContext{namespace: "main", hl: NewHighlighter("github")}

	promoting := &rstDialect{promoteDocTitle: true}
	got := promoting.ParseBlocks(src, pc)
	if strings.Contains(got, "<h1>") {
		t.Errorf("leading heading not promoted out of body:\n%s", got)
	}
	if !strings.Contains(got, "<h2>Section</h2>") {
		t.Errorf("later heading missing from body:\n%s", got)
	}

	plain := &rstDialect{}
	got = plain.ParseBlocks(src, pc)
	if !strings.Contains(got, "<h1>Title</h1>") {
		t.Errorf("leading heading missing without promotion:\n%s", got)
	}
}

func TestRSTBlocks(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    []string
		notWant []string
	}{
		{
			name:   "paragraph",
			source: "one\ntwo\n\nthree",
			want:   []string{"<p>one two</p>", "<p>three</p>"},
		},
		{
			name:   "bullet list",
			source: "- item one\n- item two",
			want:   []string{"<ul>", "<li>item one</li>", "<li>item two</li>", "</ul>"},
		},
		{
			name:   "enumerated list",
			source: "1. first\n2. second",
			want:   []string{"<ol>", "<li>first</li>", "<li>second</li>", "</ol>"},
		},
		{
			name:   "literal block",
			source: "Example::\n\n    a < b\n    c > d",
			want:   []string{"<p>Example:</p>", "<pre>a &lt; b\nc &gt; d</pre>"},
		},
		{
			name:   "definition list",
			source: "term\n    its definition",
			want:   []string{"<dt>term</dt>", "<dd>its definition</dd>"},
		},
		{
			name:    "category directive consumed",
			source:  "text\n\n.. category:: Science",
			want:    []string{"<p>text</p>"},
			notWant: []string{"category::", "Science"},
		},
		{
			name:    "unknown directive consumed",
			source:  "text\n\n.. note::\n\n    hidden body",
			notWant: []string{"hidden body", "note::"},
			want:    []string{"<p>text</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderRST(t, tt.source)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("missing %q in:\n%s", want, got)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(got, notWant) {
					t.Errorf("unexpected %q in:\n%s", notWant, got)
				}
			}
		})
	}
}

func TestRSTCodeDirective(t *testing.T) {
	got := renderRST(t, ".. code:: python\n\n    print(\"hi\")")
	if !strings.Contains(got, `<div class="highlight">`) {
		t.Errorf("missing highlight wrapper in:\n%s", got)
	}
	if !strings.Contains(got, "print") {
		t.Errorf("missing code text in:\n%s", got)
	}
}

func TestRSTImageDirective(t *testing.T) {
	t.Run("attachment resolved", func(t *testing.T) {
		got := renderRST(t, ".. image:: attachment:photo.png\n    :alt: a photo\n    :width: 200")
		for _, want := range []string{`src="/files/photo.png"`, `alt="a photo"`, `width="200"`} {
			if !strings.Contains(got, want) {
				t.Errorf("missing %q in:\n%s", want, got)
			}
		}
	})

	t.Run("attachment missing", func(t *testing.T) {
		got := renderRST(t, ".. image:: attachment:nope.png")
		if !strings.Contains(got, `<span class="missing-file">[missing file: nope.png]</span>`) {
			t.Errorf("missing placeholder in:\n%s", got)
		}
	})

	t.Run("plain url", func(t *testing.T) {
		got := renderRST(t, ".. image:: /static/logo.png")
		if !strings.Contains(got, `src="/static/logo.png"`) {
			t.Errorf("missing img in:\n%s", got)
		}
	})
}

func TestRSTInline(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "strong and em",
			source: "**bold** and *soft*",
			want:   []string{"<strong>bold</strong>", "<em>soft</em>"},
		},
		{
			name:   "inline literal",
			source: "run ``make all`` now",
			want:   []string{"<code>make all</code>"},
		},
		{
			name:   "external link",
			source: "See `Example <https://example.com>`_ now.",
			want:   []string{`href="https://example.com"`, ">Example</a>", `target="_blank"`},
		},
		{
			name:   "wikilink",
			source: "See [[Other Page]].",
			want:   []string{`<a href="/wiki/main/other-page" class="wikilink">Other Page</a>`},
		},
		{
			name:   "text is escaped",
			source: "a < b & c",
			want:   []string{"a &lt; b &amp; c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderRST(t, tt.source)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("missing %q in:\n%s", want, got)
				}
			}
		})
	}
}

func TestRSTTOCSurvivesEscaping(t *testing.T) {
	t.Run("own line", func(t *testing.T) {
		got := renderRST(t, "{{toc}}\n\nTitle\n=====")
		if !strings.Contains(got, `<div class="toc">`) {
			t.Fatalf("missing toc in:\n%s", got)
		}
		if !strings.Contains(got, `href="#title"`) {
			t.Errorf("missing toc entry in:\n%s", got)
		}
	})

	t.Run("inside paragraph", func(t *testing.T) {
		got := renderRST(t, "before {{toc}} after\n\nTitle\n=====")
		if !strings.Contains(got, `<div class="toc">`) {
			t.Fatalf("escaped sentinel not unwrapped in:\n%s", got)
		}
	})
}
