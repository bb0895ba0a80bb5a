package convert

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"r2epub/config"
	"r2epub/epub"
	"r2epub/fetch"
	"r2epub/respec"
	"r2epub/state"
	"r2epub/tr"
	"r2epub/utils/images"
)

const xhtmlMediaType = "application/xhtml+xml"

// Manifest ids of entries every publication carries.
const (
	navID     = "nav"
	coverID   = "cover-page"
	contentID = "content"
)

// result of a single document pipeline run. The container is assembled but
// not finalized - remote content has not been downloaded yet.
type result struct {
	container *epub.Container
	meta      *tr.Meta
	toc       []tr.TOCEntry
	name      string
}

// buildDocument runs the whole pipeline for one source: fetch (directly or
// through the rendering service), metadata extraction, resource discovery,
// status driven styling, navigation and cover assembly, packaging.
func buildDocument(ctx context.Context, client *fetch.Client, renderer *respec.Client, src string, useRespec bool, opts config.ChapterOptions, log *zap.Logger) (rres *result, rerr error) {
	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r),
				zap.Duration("elapsed", time.Since(start)),
				zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else if rerr == nil {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)))
		}
	}(time.Now())

	srcURL, err := client.CheckURL(src)
	if err != nil {
		return nil, err
	}

	var doc *goquery.Document
	if useRespec {
		doc, err = renderer.Document(ctx, src, opts)
	} else {
		doc, err = client.Document(ctx, src)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to fetch document (%s): %w", src, err)
	}

	meta, err := tr.ParseMeta(doc, log)
	if err != nil {
		return nil, fmt.Errorf("unable to extract document metadata (%s): %w", src, err)
	}
	// command line and chapter overrides win over what the document carries
	if len(opts.SpecStatus) > 0 {
		meta.SpecStatus = opts.SpecStatus
	}
	if len(opts.PublishDate) > 0 {
		meta.PublishDate = opts.PublishDate
	}

	name := meta.ShortName
	if len(name) == 0 {
		name = slug.Make(meta.Title)
	}
	if len(name) == 0 {
		name = "report"
	}

	env := state.EnvFromContext(ctx)
	if env.Rpt != nil {
		if snapshot, err := doc.Html(); err == nil {
			env.Rpt.StoreData(fmt.Sprintf("source-%s.html", name), []byte(snapshot))
		}
	}

	pkg := epub.NewPackage(src, meta.Title)
	pkg.SetLanguage(documentLanguage(doc))
	pkg.AddCreators(meta.Editors)
	pkg.AddDates(meta.PublishDate)

	// Discovery runs before styling so that link rewriting cannot change
	// what is collected.
	resources, err := tr.CollectResources(ctx, doc, srcURL, client, log)
	if err != nil {
		return nil, err
	}
	styles := tr.ResolveStyles(doc, meta, log)
	toc := tr.ExtractTOC(doc, epub.ContentPath, opts.TOCDepth, log)

	navData, err := epub.BuildNav(meta.Title, toc)
	if err != nil {
		return nil, fmt.Errorf("unable to build navigation document: %w", err)
	}
	coverData, err := epub.BuildCoverPage(meta.Title, meta.Editors, meta.PublishDate)
	if err != nil {
		return nil, fmt.Errorf("unable to build cover page: %w", err)
	}
	content, err := tr.Serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize content document: %w", err)
	}

	refs := make([]tr.ResourceRef, 0, len(resources)+len(styles)+4)
	refs = append(refs,
		tr.ResourceRef{RelPath: epub.NavPath, MediaType: xhtmlMediaType, ID: navID, Properties: "nav", Data: navData},
		tr.ResourceRef{RelPath: epub.CoverPath, MediaType: xhtmlMediaType, ID: coverID, Data: coverData},
		tr.ResourceRef{RelPath: epub.ContentPath, MediaType: xhtmlMediaType, ID: contentID, Data: content},
	)

	if env.Cfg.Document.Images.Cover.Generate {
		cover, err := generateCoverImage(env, meta)
		if err != nil {
			return nil, err
		}
		refs = append(refs, cover)
	}

	refs = append(refs, resources...)
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		seen[ref.RelPath] = struct{}{}
	}
	for _, ref := range styles {
		if _, dup := seen[ref.RelPath]; dup {
			log.Debug("Dropping duplicate styling resource", zap.String("path", ref.RelPath))
			continue
		}
		refs = append(refs, ref)
	}

	container := epub.NewContainer(name, pkg)
	for _, ref := range refs {
		if _, err := pkg.AddManifestItem(ref); err != nil {
			return nil, err
		}
		if err := container.Add(ref); err != nil {
			return nil, err
		}
	}
	for _, idref := range []string{coverID, navID, contentID} {
		if err := pkg.AddSpineItem(idref); err != nil {
			return nil, err
		}
	}

	return &result{container: container, meta: meta, toc: toc, name: name}, nil
}

func generateCoverImage(env *state.LocalEnv, meta *tr.Meta) (tr.ResourceRef, error) {
	cfg := env.Cfg.Document.Images.Cover

	subtitle := strings.TrimSpace(meta.SpecStatus + " " + meta.PublishDate)
	data, err := images.GenerateCover(env.CoverTemplate, meta.Title, subtitle, cfg.Width, cfg.Height)
	if err != nil {
		return tr.ResourceRef{}, fmt.Errorf("unable to generate cover image: %w", err)
	}
	return tr.ResourceRef{
		RelPath:    "cover.png",
		MediaType:  "image/png",
		ID:         "cover-image",
		Properties: "cover-image",
		Data:       data,
	}, nil
}

// documentLanguage normalizes the document language attribute to a canonical
// BCP 47 tag, empty when missing or unparsable.
func documentLanguage(doc *goquery.Document) string {
	lang, _ := doc.Find("html").Attr("lang")
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return ""
	}
	return tag.String()
}
