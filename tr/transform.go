package tr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>` + "\n"
	htmlDoctype    = "<!DOCTYPE html>\n"
)

// voidElements may not carry content and are rendered self closed.
var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
	"img": {}, "input": {}, "link": {}, "meta": {}, "param": {},
	"source": {}, "track": {}, "wbr": {},
}

// booleanAttrs must be given an explicit value for the markup to stay well
// formed as XML.
var booleanAttrs = map[string]struct{}{
	"async": {}, "autofocus": {}, "autoplay": {}, "checked": {}, "controls": {},
	"default": {}, "defer": {}, "disabled": {}, "hidden": {}, "ismap": {},
	"loop": {}, "multiple": {}, "muted": {}, "novalidate": {}, "open": {},
	"readonly": {}, "required": {}, "reversed": {}, "selected": {},
}

// elementNamespaces lists elements that need an xmlns declaration in
// XML-compatible markup.
var elementNamespaces = map[string]string{
	"html": "http://www.w3.org/1999/xhtml",
	"svg":  "http://www.w3.org/2000/svg",
	"math": "http://www.w3.org/1998/Math/MathML",
}

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", " ", "&#160;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", " ", "&#160;")
)

// Serialize renders the mutated document tree as polyglot markup that parses
// identically as HTML5 and as XML: xmlns declarations on html/svg/math,
// explicit values for boolean attributes, a type on script and style, void
// elements closed with a slash, non-void elements never self closed, numeric
// escape for non-breaking spaces. Pure with respect to the tree, so repeated
// calls yield identical bytes.
func Serialize(doc *goquery.Document) ([]byte, error) {
	root := doc.Get(0)
	if root == nil {
		return nil, fmt.Errorf("document has no root node")
	}

	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	buf.WriteString(htmlDoctype)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			continue
		}
		if err := renderNode(&buf, c); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func renderNode(buf *bytes.Buffer, n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		if isRawTextElement(n.Parent) {
			writeRawText(buf, n.Data)
		} else {
			buf.WriteString(textEscaper.Replace(n.Data))
		}
	case html.CommentNode:
		buf.WriteString("<!--")
		// a double hyphen inside a comment breaks both grammars
		buf.WriteString(strings.ReplaceAll(n.Data, "--", "- -"))
		buf.WriteString("-->")
	case html.ElementNode:
		return renderElement(buf, n)
	case html.RawNode:
		buf.WriteString(n.Data)
	case html.DocumentNode, html.DoctypeNode:
		// handled by Serialize
	default:
		return fmt.Errorf("cannot render node of type %d", n.Type)
	}
	return nil
}

func renderElement(buf *bytes.Buffer, n *html.Node) error {
	buf.WriteByte('<')
	buf.WriteString(n.Data)

	if err := renderAttributes(buf, n); err != nil {
		return err
	}

	if _, void := voidElements[n.Data]; void && n.Namespace == "" {
		buf.WriteString("/>")
		return nil
	}

	buf.WriteByte('>')
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := renderNode(buf, c); err != nil {
			return err
		}
	}
	buf.WriteString("</")
	buf.WriteString(n.Data)
	buf.WriteByte('>')
	return nil
}

func renderAttributes(buf *bytes.Buffer, n *html.Node) error {
	hasXMLNS := false
	hasType := false
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "xmlns" {
			hasXMLNS = true
		}
		if a.Namespace == "" && a.Key == "type" {
			hasType = true
		}
	}

	if ns, ok := elementNamespaces[n.Data]; ok && !hasXMLNS {
		fmt.Fprintf(buf, ` xmlns="%s"`, ns)
	}
	if !hasType && n.Namespace == "" {
		switch n.Data {
		case "script":
			buf.WriteString(` type="text/javascript"`)
		case "style":
			buf.WriteString(` type="text/css"`)
		}
	}

	for _, a := range n.Attr {
		buf.WriteByte(' ')
		if a.Namespace != "" {
			buf.WriteString(a.Namespace)
			buf.WriteByte(':')
		}
		buf.WriteString(a.Key)
		val := a.Val
		if len(val) == 0 {
			if _, boolean := booleanAttrs[a.Key]; boolean {
				val = a.Key
			}
		}
		buf.WriteString(`="`)
		buf.WriteString(attrEscaper.Replace(val))
		buf.WriteByte('"')
	}
	return nil
}

func isRawTextElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Namespace == "" &&
		(n.Data == "script" || n.Data == "style")
}

// writeRawText emits script or style content. HTML never escapes such
// content, so anything XML-significant has to be fenced with CDATA.
func writeRawText(buf *bytes.Buffer, data string) {
	if !strings.ContainsAny(data, "<&") {
		buf.WriteString(data)
		return
	}
	buf.WriteString("\n//<![CDATA[\n")
	buf.WriteString(strings.ReplaceAll(data, "]]>", "]]]]><![CDATA[>"))
	buf.WriteString("\n//]]>\n")
}
