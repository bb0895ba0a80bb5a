package tr

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"r2epub/css"
)

// Canonical locations of the W3C technical report styling.
const (
	trHost       = "www.w3.org"
	styleDir     = "StyleSheets/TR/2021"
	StyleBaseRel = styleDir + "/base.css"
	StyleEpubRel = styleDir + "/epub.css"
	styleRootURL = "https://www.w3.org/"
)

// backgroundTemplate is the generated stylesheet for ordinary maturity
// levels, parameterized by logo file name.
const backgroundTemplate = `
body {
	background-image: url(logos/%s);
	background-repeat: no-repeat;
	background-position: left top;
}
`

// cgTemplate is used for Community and Business Group documents - their
// banner runs across the page top, content needs extra room.
const cgTemplate = `
body {
	background-image: url(logos/%s);
	background-repeat: repeat-x;
	background-position: left top;
	padding-top: 6em;
}

div.head {
	padding-top: 2em;
}
`

// watermarkCSS is appended when the status calls for a draft watermark.
const watermarkCSS = `
html {
	background: white url(logos/UD-watermark.png);
}
`

type statusStyle struct {
	watermark bool
	logoName  string
	logoMedia string
	template  string
}

// statusStyles lists statuses with irregular styling. Everything in
// regularStatuses gets a synthesized entry with an svg logo named after the
// status itself.
var statusStyles = map[string]statusStyle{
	"UNOFFICIAL": {watermark: true, logoName: "UD.png", logoMedia: "image/png", template: backgroundTemplate},
	"BASE":       {},
	"CG-DRAFT":   {watermark: true, logoName: "cg-draft.png", logoMedia: "image/png", template: cgTemplate},
	"CG-FINAL":   {logoName: "cg-final.png", logoMedia: "image/png", template: cgTemplate},
	"BG-DRAFT":   {watermark: true, logoName: "bg-draft.png", logoMedia: "image/png", template: cgTemplate},
	"BG-FINAL":   {logoName: "bg-final.png", logoMedia: "image/png", template: cgTemplate},
}

var regularStatuses = map[string]struct{}{
	"MO": {}, "ED": {}, "WD": {}, "FPWD": {}, "LC": {}, "LD": {}, "LS": {},
	"CR": {}, "CRD": {}, "PR": {}, "PER": {}, "REC": {}, "RSCND": {}, "OBSL": {}, "SPSD": {},
	"NOTE": {}, "DNOTE": {}, "STMT": {}, "DRY": {}, "CRY": {}, "CRYD": {},
}

// lookupStatus finds styling for the status, case-insensitively. The second
// return is false for statuses unknown to both tables.
func lookupStatus(status string) (statusStyle, bool) {
	key := strings.ToUpper(strings.TrimSpace(status))
	if st, ok := statusStyles[key]; ok {
		return st, true
	}
	if _, ok := regularStatuses[key]; ok {
		return statusStyle{logoName: key + ".svg", logoMedia: "image/svg+xml", template: backgroundTemplate}, true
	}
	return statusStyle{}, false
}

// ResolveStyles rewrites the document's W3C stylesheet reference to the
// shared base stylesheet and derives status specific styling resources: the
// status logo, the draft watermark when called for and a generated
// stylesheet wiring them in. Unknown statuses degrade to base styling only.
// Documents without a W3C stylesheet link are left untouched.
func ResolveStyles(doc *goquery.Document, meta *Meta, log *zap.Logger) []ResourceRef {
	log = log.Named("styles")

	rewritten := false
	doc.Find("link[rel='stylesheet']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || u.Hostname() != trHost {
			return true
		}
		s.SetAttr("href", StyleBaseRel)
		rewritten = true
		return false
	})
	if !rewritten {
		log.Debug("No W3C stylesheet link found, leaving document styling alone")
		return nil
	}

	refs := []ResourceRef{{
		RelPath:   StyleBaseRel,
		MediaType: "text/css",
		URL:       styleRootURL + StyleBaseRel,
	}}

	st, known := lookupStatus(meta.SpecStatus)
	if !known {
		log.Warn("Unknown specification status, falling back to base styling",
			zap.String("status", meta.SpecStatus))
		return refs
	}

	var generated string
	if len(st.logoName) > 0 {
		generated = fmt.Sprintf(st.template, st.logoName)
	}
	if st.watermark {
		generated += watermarkCSS
	}
	if len(generated) == 0 {
		// statuses like BASE style themselves with the base stylesheet alone
		return refs
	}

	// The generated stylesheet is the source of truth for which images the
	// styling needs - scan it instead of maintaining a parallel list.
	for _, ref := range css.ExtractReferences([]byte(generated), log) {
		rel := path.Join(styleDir, ref.URL)
		media := "image/svg+xml"
		if strings.HasSuffix(ref.URL, ".png") {
			media = "image/png"
		}
		if rel == path.Join(styleDir, "logos", st.logoName) {
			media = st.logoMedia
		}
		refs = append(refs, ResourceRef{
			RelPath:   rel,
			MediaType: media,
			URL:       styleRootURL + rel,
		})
	}

	refs = append(refs, ResourceRef{
		RelPath:   StyleEpubRel,
		MediaType: "text/css",
		Data:      []byte(generated),
	})

	doc.Find("head").AppendHtml(fmt.Sprintf(`<link rel="stylesheet" href="%s"/>`, StyleEpubRel))

	log.Debug("Resolved status styling",
		zap.String("status", meta.SpecStatus),
		zap.String("logo", st.logoName),
		zap.Bool("watermark", st.watermark))
	return refs
}
