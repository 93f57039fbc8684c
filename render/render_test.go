package render

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderUnknownFormat(t *testing.T) {
	r := New()
	_, err := r.Render(Request{Source: "text", Format: "org-mode"})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("want ErrUnknownFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), "org-mode") {
		t.Errorf("error should name the format: %v", err)
	}
}

func TestRenderFormatCaseInsensitive(t *testing.T) {
	r := New()
	doc, err := r.Render(Request{Source: "# Hi", Format: " Markdown "})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(doc.HTML, "<h1") {
		t.Errorf("markdown not rendered: %s", doc.HTML)
	}
}

func TestRenderStampsOutput(t *testing.T) {
	r := New()
	doc, err := r.Render(Request{Source: "hello", Format: FormatWikitext})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.Version != Version {
		t.Errorf("version = %d, want %d", doc.Version, Version)
	}
	if !IsValid(doc.HTML, Version) {
		t.Errorf("output not stamped: %s", doc.HTML)
	}
}

func TestRenderVersionOverrides(t *testing.T) {
	r := New(WithVersion(3))
	doc, err := r.Render(Request{Source: "hello", Format: FormatWikitext})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.Version != 3 || !IsValid(doc.HTML, 3) {
		t.Errorf("renderer version not honored: %d %s", doc.Version, doc.HTML)
	}

	doc, err = r.Render(Request{Source: "hello", Format: FormatWikitext, Version: 12})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.Version != 12 || !IsValid(doc.HTML, 12) {
		t.Errorf("request version not honored: %d %s", doc.Version, doc.HTML)
	}
}

func TestRenderDefaultNamespace(t *testing.T) {
	r := New()
	doc, err := r.Render(Request{Source: "[[Other Page]]", Format: FormatWikitext})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(doc.HTML, `href="/wiki/main/other-page"`) {
		t.Errorf("default namespace not applied: %s", doc.HTML)
	}
}

func TestRenderNamespaceAndBaseURL(t *testing.T) {
	r := New()
	doc, err := r.Render(Request{
		Source:    "[[Other Page]]",
		Format:    FormatWikitext,
		Namespace: "docs",
		BaseURL:   "https://wiki.example.org/",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(doc.HTML, `href="https://wiki.example.org/wiki/docs/other-page"`) {
		t.Errorf("base url or namespace wrong: %s", doc.HTML)
	}
	// Internal links stay internal even when absolute.
	if strings.Contains(doc.HTML, `other-page" class="wikilink" target=`) {
		t.Errorf("internal link hardened: %s", doc.HTML)
	}
}

func TestRenderPlain(t *testing.T) {
	got := RenderPlain("<script>alert(1)</script>")
	if !strings.HasPrefix(got, "<pre>") {
		t.Errorf("missing pre: %s", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("markup not escaped: %s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("escaped text missing: %s", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Spaces  ", "spaces"},
		{"Under_scores and-dashes", "under-scores-and-dashes"},
		{"C'est l'été!", "cest-lété"},
		{"a  --  b", "a-b"},
		{"--trim--", "trim"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
