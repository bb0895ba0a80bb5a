package tr_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"r2epub/tr"
)

const styledDoc = `<html><head>
<title>Test Specification</title>
<link rel="stylesheet" href="https://www.w3.org/StyleSheets/TR/2021/W3C-REC"/>
</head><body></body></html>`

func findRef(refs []tr.ResourceRef, relPath string) (tr.ResourceRef, bool) {
	for _, r := range refs {
		if r.RelPath == relPath {
			return r, true
		}
	}
	return tr.ResourceRef{}, false
}

func TestResolveStyles_REC(t *testing.T) {
	doc := docFromString(t, styledDoc)
	meta := &tr.Meta{SpecStatus: "REC"}

	refs := tr.ResolveStyles(doc, meta, zap.NewNop())

	if len(refs) == 0 {
		t.Fatal("expected styling resources for a REC document")
	}
	for _, r := range refs {
		if err := r.Valid(); err != nil {
			t.Errorf("invalid resource %q: %v", r.RelPath, err)
		}
	}

	base := refs[0]
	if base.RelPath != "StyleSheets/TR/2021/base.css" {
		t.Errorf("expected the base stylesheet first, got %q", base.RelPath)
	}
	if base.URL != "https://www.w3.org/StyleSheets/TR/2021/base.css" {
		t.Errorf("unexpected base stylesheet URL: %q", base.URL)
	}

	logo, ok := findRef(refs, "StyleSheets/TR/2021/logos/REC.svg")
	if !ok {
		t.Fatalf("expected the REC.svg logo, got %+v", refs)
	}
	if logo.MediaType != "image/svg+xml" {
		t.Errorf("expected svg media type for the logo, got %q", logo.MediaType)
	}

	generated, ok := findRef(refs, "StyleSheets/TR/2021/epub.css")
	if !ok {
		t.Fatal("expected a generated epub.css resource")
	}
	if generated.Data == nil {
		t.Error("expected the generated stylesheet to carry materialized content")
	}
	if !strings.Contains(string(generated.Data), "logos/REC.svg") {
		t.Errorf("generated stylesheet does not reference the logo:\n%s", generated.Data)
	}

	if _, ok := findRef(refs, "StyleSheets/TR/2021/logos/UD-watermark.png"); ok {
		t.Error("a REC document must not carry the draft watermark")
	}

	href, _ := doc.Find("link[rel='stylesheet']").First().Attr("href")
	if href != "StyleSheets/TR/2021/base.css" {
		t.Errorf("expected the document link rewritten to the base stylesheet, got %q", href)
	}
	links := doc.Find("link[rel='stylesheet']")
	last, _ := links.Eq(links.Length() - 1).Attr("href")
	if last != "StyleSheets/TR/2021/epub.css" {
		t.Errorf("expected an appended link to the generated stylesheet, got %q", last)
	}
}

func TestResolveStyles_CGDraft(t *testing.T) {
	doc := docFromString(t, styledDoc)
	meta := &tr.Meta{SpecStatus: "CG-DRAFT"}

	refs := tr.ResolveStyles(doc, meta, zap.NewNop())

	logo, ok := findRef(refs, "StyleSheets/TR/2021/logos/cg-draft.png")
	if !ok {
		t.Fatalf("expected the cg-draft.png logo, got %+v", refs)
	}
	if logo.MediaType != "image/png" {
		t.Errorf("expected png media type for the logo, got %q", logo.MediaType)
	}

	watermark, ok := findRef(refs, "StyleSheets/TR/2021/logos/UD-watermark.png")
	if !ok {
		t.Fatal("expected the draft watermark resource")
	}
	if watermark.MediaType != "image/png" {
		t.Errorf("expected png media type for the watermark, got %q", watermark.MediaType)
	}

	generated, ok := findRef(refs, "StyleSheets/TR/2021/epub.css")
	if !ok {
		t.Fatal("expected a generated epub.css resource")
	}
	css := string(generated.Data)
	if !strings.Contains(css, "padding-top: 6em") || !strings.Contains(css, "div.head") {
		t.Errorf("generated stylesheet misses the group padding rules:\n%s", css)
	}
}

func TestResolveStyles_UnknownStatus(t *testing.T) {
	doc := docFromString(t, styledDoc)
	meta := &tr.Meta{SpecStatus: "NOT-A-STATUS"}

	refs := tr.ResolveStyles(doc, meta, zap.NewNop())

	if len(refs) != 1 {
		t.Fatalf("expected base styling only for an unknown status, got %+v", refs)
	}
	if refs[0].RelPath != "StyleSheets/TR/2021/base.css" {
		t.Errorf("expected the base stylesheet, got %q", refs[0].RelPath)
	}
}

func TestResolveStyles_BaseStatus(t *testing.T) {
	doc := docFromString(t, styledDoc)
	meta := &tr.Meta{SpecStatus: "base"}

	refs := tr.ResolveStyles(doc, meta, zap.NewNop())

	if len(refs) != 1 {
		t.Fatalf("expected no status styling for 'base', got %+v", refs)
	}
}

func TestResolveStyles_CaseInsensitive(t *testing.T) {
	doc := docFromString(t, styledDoc)
	meta := &tr.Meta{SpecStatus: "rec"}

	refs := tr.ResolveStyles(doc, meta, zap.NewNop())

	if _, ok := findRef(refs, "StyleSheets/TR/2021/logos/REC.svg"); !ok {
		t.Errorf("expected lowercase status to resolve, got %+v", refs)
	}
}

func TestResolveStyles_NoPublisherLink(t *testing.T) {
	doc := docFromString(t, `<html><head>
<link rel="stylesheet" href="local.css"/>
</head><body></body></html>`)
	meta := &tr.Meta{SpecStatus: "REC"}

	refs := tr.ResolveStyles(doc, meta, zap.NewNop())

	if refs != nil {
		t.Errorf("expected a no-op without a publisher stylesheet, got %+v", refs)
	}
	href, _ := doc.Find("link[rel='stylesheet']").First().Attr("href")
	if href != "local.css" {
		t.Errorf("expected the document untouched, got href %q", href)
	}
}
