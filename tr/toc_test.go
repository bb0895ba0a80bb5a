package tr_test

import (
	"testing"

	"go.uber.org/zap"

	"r2epub/tr"
)

const navDoc = `<html><body>
<nav id="toc">
<h2>Table of Contents</h2>
<ol class="toc">
<li class="tocline"><a class="tocxref" href="#intro"><span class="secno">1. </span>Introduction</a>
  <ol class="toc">
  <li class="tocline"><a class="tocxref" href="#scope"><span class="secno">1.1 </span>Scope</a></li>
  <li class="tocline"><a class="tocxref" href="#conformance"><span class="secno">1.2 </span>Conformance</a></li>
  </ol>
</li>
<li class="tocline"><a class="tocxref" href="#model"><span class="secno">2. </span>Data Model</a></li>
<li class="tocline"><a class="tocxref" href="references.html#norm">References</a></li>
</ol>
</nav>
</body></html>`

func TestExtractTOC_NavToc(t *testing.T) {
	doc := docFromString(t, navDoc)

	entries := tr.ExtractTOC(doc, "Overview.xhtml", 0, zap.NewNop())

	if len(entries) != 3 {
		t.Fatalf("expected 3 top-level entries, got %d: %+v", len(entries), entries)
	}

	first := entries[0]
	if first.Title != "1. Introduction" {
		t.Errorf("unexpected first title: %q", first.Title)
	}
	if first.Href != "Overview.xhtml#intro" {
		t.Errorf("expected anchor rewritten into the content file, got %q", first.Href)
	}
	if len(first.Children) != 2 {
		t.Fatalf("expected 2 children under the first entry, got %d", len(first.Children))
	}
	if first.Children[0].Href != "Overview.xhtml#scope" {
		t.Errorf("unexpected child anchor: %q", first.Children[0].Href)
	}
	if first.Children[1].Title != "1.2 Conformance" {
		t.Errorf("unexpected child title: %q", first.Children[1].Title)
	}

	if entries[2].Href != "references.html#norm" {
		t.Errorf("expected cross-page reference kept as is, got %q", entries[2].Href)
	}
}

func TestExtractTOC_MaxDepth(t *testing.T) {
	doc := docFromString(t, navDoc)

	entries := tr.ExtractTOC(doc, "Overview.xhtml", 1, zap.NewNop())

	if len(entries) != 3 {
		t.Fatalf("expected 3 top-level entries, got %d", len(entries))
	}
	for _, e := range entries {
		if len(e.Children) != 0 {
			t.Errorf("expected depth 1 to cut children, entry %q has %d", e.Title, len(e.Children))
		}
	}
}

func TestExtractTOC_HeadingFallback(t *testing.T) {
	doc := docFromString(t, `<html><body>
<section id="one"><h2>First Section</h2>
  <section><h3 id="one-one">Nested</h3></section>
</section>
<section><h2 id="two">Second Section</h2></section>
</body></html>`)

	entries := tr.ExtractTOC(doc, "chapter_0/Overview.xhtml", 0, zap.NewNop())

	if len(entries) != 2 {
		t.Fatalf("expected 2 top-level entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Title != "First Section" {
		t.Errorf("unexpected title: %q", entries[0].Title)
	}
	if entries[0].Href != "chapter_0/Overview.xhtml#one" {
		t.Errorf("expected the enclosing section id used, got %q", entries[0].Href)
	}
	if len(entries[0].Children) != 1 || entries[0].Children[0].Href != "chapter_0/Overview.xhtml#one-one" {
		t.Errorf("unexpected children: %+v", entries[0].Children)
	}
	if entries[1].Href != "chapter_0/Overview.xhtml#two" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestExtractTOC_HeadingFallbackDepth(t *testing.T) {
	doc := docFromString(t, `<html><body>
<h2 id="a">A</h2>
<h3 id="a1">A1</h3>
</body></html>`)

	entries := tr.ExtractTOC(doc, "Overview.xhtml", 1, zap.NewNop())

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", entries)
	}
	if len(entries[0].Children) != 0 {
		t.Errorf("expected depth 1 to drop h3 headings, got %+v", entries[0].Children)
	}
}

func TestExtractTOC_Empty(t *testing.T) {
	doc := docFromString(t, `<html><body><p>prose only</p></body></html>`)

	entries := tr.ExtractTOC(doc, "Overview.xhtml", 0, zap.NewNop())
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}
