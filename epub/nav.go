package epub

import (
	"github.com/beevik/etree"

	"r2epub/tr"
)

// BuildNav produces the navigation document from the extracted table of
// contents. Reading systems reject an empty toc list, so a document without
// any entries gets a single link to the content file.
func BuildNav(title string, entries []tr.TOCEntry) ([]byte, error) {
	if len(entries) == 0 {
		entries = []tr.TOCEntry{{Title: title, Href: ContentPath}}
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	html.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")

	head := html.CreateElement("head")
	headTitle := head.CreateElement("title")
	headTitle.SetText(title)

	body := html.CreateElement("body")

	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")

	h1 := nav.CreateElement("h1")
	h1.SetText("Table of Contents")

	buildNavList(nav, entries)

	return doc.WriteToBytes()
}

func buildNavList(parent *etree.Element, entries []tr.TOCEntry) {
	ol := parent.CreateElement("ol")
	for _, entry := range entries {
		li := ol.CreateElement("li")
		a := li.CreateElement("a")
		a.CreateAttr("href", entry.Href)
		a.SetText(entry.Title)
		if len(entry.Children) > 0 {
			buildNavList(li, entry.Children)
		}
	}
}
