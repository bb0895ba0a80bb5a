package epub

import (
	"testing"

	"github.com/beevik/etree"

	"r2epub/tr"
)

func TestBuildNav(t *testing.T) {
	entries := []tr.TOCEntry{
		{Title: "1. Introduction", Href: "Overview.xhtml#intro", Children: []tr.TOCEntry{
			{Title: "1.1 Scope", Href: "Overview.xhtml#scope"},
		}},
		{Title: "2. Model", Href: "Overview.xhtml#model"},
	}

	data, err := BuildNav("Test Specification", entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("nav document is not well formed: %v", err)
	}

	nav := doc.FindElement("//nav")
	if nav == nil {
		t.Fatal("missing nav element")
	}
	if v := nav.SelectAttrValue("epub:type", ""); v != "toc" {
		t.Errorf("expected epub:type toc, got %q", v)
	}

	ol := nav.SelectElement("ol")
	if ol == nil {
		t.Fatal("missing toc list")
	}
	items := ol.SelectElements("li")
	if len(items) != 2 {
		t.Fatalf("expected 2 top-level items, got %d", len(items))
	}

	a := items[0].SelectElement("a")
	if a == nil || a.SelectAttrValue("href", "") != "Overview.xhtml#intro" {
		t.Errorf("unexpected first anchor: %+v", a)
	}
	if a.Text() != "1. Introduction" {
		t.Errorf("unexpected first title: %q", a.Text())
	}

	nested := items[0].SelectElement("ol")
	if nested == nil {
		t.Fatal("expected a nested list under the first item")
	}
	sub := nested.SelectElements("li")
	if len(sub) != 1 || sub[0].SelectElement("a").SelectAttrValue("href", "") != "Overview.xhtml#scope" {
		t.Errorf("unexpected nested entries: %+v", sub)
	}

	if items[1].SelectElement("ol") != nil {
		t.Error("expected no nested list under a leaf entry")
	}
}

func TestBuildNav_NoEntries(t *testing.T) {
	data, err := BuildNav("Bare Document", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("nav document is not well formed: %v", err)
	}

	a := doc.FindElement("//nav/ol/li/a")
	if a == nil {
		t.Fatal("expected a fallback toc entry")
	}
	if a.SelectAttrValue("href", "") != ContentPath {
		t.Errorf("expected the fallback to link the content file, got %q", a.SelectAttrValue("href", ""))
	}
	if a.Text() != "Bare Document" {
		t.Errorf("expected the document title as entry text, got %q", a.Text())
	}
}
