package epub

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
)

func TestBuildCoverPage(t *testing.T) {
	data, err := BuildCoverPage("Test Specification", []string{"Alice Example", "Bob Sample"}, "2020-08-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("cover document is not well formed: %v", err)
	}

	h1 := doc.FindElement("//body/h1")
	if h1 == nil || h1.Text() != "Test Specification" {
		t.Errorf("unexpected title element: %+v", h1)
	}

	var editors, date, copyright *etree.Element
	for _, p := range doc.FindElements("//body/p") {
		switch p.SelectAttrValue("class", "") {
		case "editors":
			editors = p
		case "date":
			date = p
		case "copyright":
			copyright = p
		}
	}

	if editors == nil || !strings.Contains(editors.Text(), "Alice Example, Bob Sample") {
		t.Errorf("unexpected editors paragraph: %+v", editors)
	}
	if date == nil || date.Text() != "2020-08-04" {
		t.Errorf("unexpected date paragraph: %+v", date)
	}
	if copyright == nil {
		t.Fatal("missing publisher mark")
	}
	if !strings.Contains(copyright.Text(), "World Wide Web Consortium") {
		t.Errorf("unexpected publisher mark: %q", copyright.Text())
	}
	license := copyright.SelectElement("a")
	if license == nil || license.SelectAttrValue("href", "") != publicationRights {
		t.Errorf("unexpected license link: %+v", license)
	}
}

func TestBuildCoverPage_NoEditors(t *testing.T) {
	data, err := BuildCoverPage("Solo", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("cover document is not well formed: %v", err)
	}
	for _, p := range doc.FindElements("//body/p") {
		if c := p.SelectAttrValue("class", ""); c == "editors" || c == "date" {
			t.Errorf("expected no %s paragraph", c)
		}
	}
}
