package epub

import (
	"strings"

	"github.com/beevik/etree"
)

const coverStyle = "body { text-align: center; font-family: sans-serif; } " +
	"h1 { margin-top: 3em; } .editors, .date { font-size: 110%; } " +
	".copyright { margin-top: 4em; font-size: 85%; }"

// BuildCoverPage produces the cover content document carrying the title,
// the editor list and the publisher mark.
func BuildCoverPage(title string, editors []string, date string) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")

	head := html.CreateElement("head")

	meta := head.CreateElement("meta")
	meta.CreateAttr("http-equiv", "Content-Type")
	meta.CreateAttr("content", "text/html; charset=utf-8")

	style := head.CreateElement("style")
	style.CreateAttr("type", "text/css")
	style.SetText(coverStyle)

	headTitle := head.CreateElement("title")
	headTitle.SetText(title)

	body := html.CreateElement("body")

	h1 := body.CreateElement("h1")
	h1.SetText(title)

	if len(editors) > 0 {
		p := body.CreateElement("p")
		p.CreateAttr("class", "editors")
		p.SetText("Editors: " + strings.Join(editors, ", "))
	}
	if len(date) > 0 {
		p := body.CreateElement("p")
		p.CreateAttr("class", "date")
		p.SetText(date)
	}

	copyright := body.CreateElement("p")
	copyright.CreateAttr("class", "copyright")
	copyright.SetText("Copyright © " + publicationPublisher + ". ")
	license := copyright.CreateElement("a")
	license.CreateAttr("href", publicationRights)
	license.SetText("W3C Document License")

	return doc.WriteToBytes()
}
