package epub

import (
	"fmt"

	"github.com/beevik/etree"

	"r2epub/tr"
)

// Fixed publication metadata for W3C technical reports.
const (
	defaultLanguage      = "en"
	publicationPublisher = "World Wide Web Consortium"
	publicationRights    = "https://www.w3.org/Consortium/Legal/2015/doc-license"
)

type manifestItem struct {
	id         string
	href       string
	mediaType  string
	properties string
}

// Package is the publication package model: metadata, manifest and spine.
// One instance is populated over a pipeline run and serialized exactly once
// when the container is finalized.
type Package struct {
	identifier string
	title      string
	language   string
	date       string
	creators   []string
	items      []manifestItem
	ids        map[string]struct{}
	hrefs      map[string]struct{}
	spine      []string
	resCount   int
}

// NewPackage creates the package model with the required metadata skeleton.
func NewPackage(identifier, title string) *Package {
	return &Package{
		identifier: identifier,
		title:      title,
		language:   defaultLanguage,
		ids:        make(map[string]struct{}),
		hrefs:      make(map[string]struct{}),
	}
}

// SetLanguage overrides the default publication language.
func (p *Package) SetLanguage(lang string) {
	if len(lang) > 0 {
		p.language = lang
	}
}

// AddCreators appends each name as a creator entry. Creator ids are
// sequential and carry an editor role refinement in the serialized document.
func (p *Package) AddCreators(names []string) {
	p.creators = append(p.creators, names...)
}

// AddDates stamps the creation and modification terms with the same value.
// The date is expected as yyyy-mm-dd.
func (p *Package) AddDates(date string) {
	p.date = date
}

// AddManifestItem appends one manifest entry for the resource and returns
// its manifest id, generated unless the resource carries one. Reusing an
// href or an explicit id is a caller error.
func (p *Package) AddManifestItem(ref tr.ResourceRef) (string, error) {
	if _, dup := p.hrefs[ref.RelPath]; dup {
		return "", fmt.Errorf("duplicate manifest href %q", ref.RelPath)
	}
	id := ref.ID
	if len(id) == 0 {
		p.resCount++
		id = fmt.Sprintf("res_id%d", p.resCount)
	}
	if _, dup := p.ids[id]; dup {
		return "", fmt.Errorf("duplicate manifest id %q", id)
	}
	p.ids[id] = struct{}{}
	p.hrefs[ref.RelPath] = struct{}{}
	p.items = append(p.items, manifestItem{
		id:         id,
		href:       ref.RelPath,
		mediaType:  ref.MediaType,
		properties: ref.Properties,
	})
	return id, nil
}

// AddSpineItem appends a reading order reference. The id must belong to an
// already registered manifest item.
func (p *Package) AddSpineItem(idref string) error {
	if _, ok := p.ids[idref]; !ok {
		return fmt.Errorf("spine reference to unknown manifest id %q", idref)
	}
	p.spine = append(p.spine, idref)
	return nil
}

// HasHref reports whether a manifest entry with this href already exists.
func (p *Package) HasHref(href string) bool {
	_, ok := p.hrefs[href]
	return ok
}

// SpineLength returns the number of reading order references.
func (p *Package) SpineLength() int {
	return len(p.spine)
}

// Serialize emits the package document. The model is not mutated and
// repeated calls produce identical bytes.
func (p *Package) Serialize() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("version", "3.0")
	pkg.CreateAttr("unique-identifier", "pub-id")

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")

	dcIdentifier := metadata.CreateElement("dc:identifier")
	dcIdentifier.CreateAttr("id", "pub-id")
	dcIdentifier.SetText(p.identifier)

	dcTitle := metadata.CreateElement("dc:title")
	dcTitle.SetText(p.title)

	dcLang := metadata.CreateElement("dc:language")
	dcLang.SetText(p.language)

	dcPublisher := metadata.CreateElement("dc:publisher")
	dcPublisher.SetText(publicationPublisher)

	dcRights := metadata.CreateElement("dc:rights")
	dcRights.SetText(publicationRights)

	for i, name := range p.creators {
		id := fmt.Sprintf("creator_id_%d", i+1)
		dcCreator := metadata.CreateElement("dc:creator")
		dcCreator.CreateAttr("id", id)
		dcCreator.SetText(name)

		role := metadata.CreateElement("meta")
		role.CreateAttr("refines", "#"+id)
		role.CreateAttr("property", "role")
		role.CreateAttr("scheme", "marc:relators")
		role.SetText("edt")
	}

	if len(p.date) > 0 {
		stamp := p.date + "T00:00:00Z"

		dcDate := metadata.CreateElement("dc:date")
		dcDate.SetText(stamp)

		modified := metadata.CreateElement("meta")
		modified.CreateAttr("property", "dcterms:modified")
		modified.SetText(stamp)
	}

	manifest := pkg.CreateElement("manifest")
	for _, item := range p.items {
		el := manifest.CreateElement("item")
		el.CreateAttr("id", item.id)
		el.CreateAttr("href", item.href)
		el.CreateAttr("media-type", item.mediaType)
		if len(item.properties) > 0 {
			el.CreateAttr("properties", item.properties)
		}
	}

	spine := pkg.CreateElement("spine")
	for _, idref := range p.spine {
		itemref := spine.CreateElement("itemref")
		itemref.CreateAttr("idref", idref)
	}

	return doc.WriteToBytes()
}
