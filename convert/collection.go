package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"r2epub/archive"
	"r2epub/config"
	"r2epub/epub"
	"r2epub/fetch"
	"r2epub/respec"
	"r2epub/state"
	"r2epub/tr"
)

// Entries under this prefix are identical across chapters and are kept once
// at the container root.
const sharedPrefix = "StyleSheets/"

// processCollection runs the single document pipeline for every chapter
// concurrently and merges the finished chapters into one book.
func processCollection(ctx context.Context, client *fetch.Client, renderer *respec.Client, coll *config.CollectionConfig, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	log = log.Named("collection")

	log.Info("Assembling collection", zap.String("name", coll.Name), zap.Int("chapters", len(coll.Chapters)))

	chapters := make([]*result, len(coll.Chapters))
	g, gctx := errgroup.WithContext(ctx)
	for i := range coll.Chapters {
		g.Go(func() error {
			ch := coll.Chapters[i]
			res, err := buildDocument(gctx, client, renderer, ch.URL, ch.Respec, chapterOptions(env.Opts, ch.Options), log.With(zap.Int("chapter", i)))
			if err != nil {
				return fmt.Errorf("chapter %d (%s): %w", i, ch.URL, err)
			}
			if err := res.container.Finalize(gctx, client, log); err != nil {
				return fmt.Errorf("chapter %d (%s): %w", i, ch.URL, err)
			}
			chapters[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	book, date, err := mergeChapters(coll, chapters, log)
	if err != nil {
		return err
	}
	// Everything is already materialized, nothing to download.
	if err := book.Finalize(ctx, nil, log); err != nil {
		return fmt.Errorf("unable to finalize collection container: %w", err)
	}

	values := Values{
		Name:  coll.Name,
		Title: coll.Title,
		Date:  date,
	}
	return save(ctx, book, values, dst, log)
}

// chapterOptions applies per chapter overrides on top of command line
// defaults.
func chapterOptions(defaults, overrides config.ChapterOptions) config.ChapterOptions {
	opts := defaults
	if len(overrides.SpecStatus) > 0 {
		opts.SpecStatus = overrides.SpecStatus
	}
	if len(overrides.PublishDate) > 0 {
		opts.PublishDate = overrides.PublishDate
	}
	if overrides.SectionLinks {
		opts.SectionLinks = true
	}
	if overrides.TOCDepth > 0 {
		opts.TOCDepth = overrides.TOCDepth
	}
	return opts
}

// mergeChapters builds a single container from finalized chapter containers.
// Chapter content moves into chapter_<n>/ subdirectories keeping input order,
// shared styling resources are kept once at the root, navigation and cover
// are rebuilt for the whole book. Returns the container and the latest
// chapter publication date.
func mergeChapters(coll *config.CollectionConfig, chapters []*result, log *zap.Logger) (*epub.Container, string, error) {
	var (
		editors []string
		seen    = make(map[string]struct{})
		date    string
	)
	for _, ch := range chapters {
		for _, e := range ch.meta.Editors {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			editors = append(editors, e)
		}
		// ISO dates compare correctly as strings
		if ch.meta.PublishDate > date {
			date = ch.meta.PublishDate
		}
	}

	pkg := epub.NewPackage(uuid.New().URN(), coll.Title)
	pkg.AddCreators(editors)
	pkg.AddDates(date)

	var navEntries []tr.TOCEntry
	for i, ch := range chapters {
		dir := chapterDir(i)
		navEntries = append(navEntries, tr.TOCEntry{
			Title:    ch.meta.Title,
			Href:     dir + epub.ContentPath,
			Children: prefixTOC(ch.toc, dir),
		})
	}
	navData, err := epub.BuildNav(coll.Title, navEntries)
	if err != nil {
		return nil, "", fmt.Errorf("unable to build navigation document: %w", err)
	}
	coverData, err := epub.BuildCoverPage(coll.Title, editors, date)
	if err != nil {
		return nil, "", fmt.Errorf("unable to build cover page: %w", err)
	}

	container := epub.NewContainer(coll.Name, pkg)
	for _, ref := range []tr.ResourceRef{
		{RelPath: epub.NavPath, MediaType: xhtmlMediaType, ID: navID, Properties: "nav", Data: navData},
		{RelPath: epub.CoverPath, MediaType: xhtmlMediaType, ID: coverID, Data: coverData},
	} {
		if _, err := pkg.AddManifestItem(ref); err != nil {
			return nil, "", err
		}
		if err := container.Add(ref); err != nil {
			return nil, "", err
		}
	}
	for _, idref := range []string{coverID, navID} {
		if err := pkg.AddSpineItem(idref); err != nil {
			return nil, "", err
		}
	}

	for i, ch := range chapters {
		if err := copyChapter(container, ch, i, log); err != nil {
			return nil, "", fmt.Errorf("chapter %d: %w", i, err)
		}
	}
	return container, date, nil
}

// copyChapter moves entries of one finalized chapter container into the
// merged book and appends the chapter content document to the spine.
func copyChapter(book *epub.Container, ch *result, index int, log *zap.Logger) error {
	data, err := ch.container.Bytes()
	if err != nil {
		return err
	}
	types, err := manifestIndex(data)
	if err != nil {
		return err
	}

	pkg := book.Package()
	dir := chapterDir(index)

	var spineID string
	err = archive.Walk(data, "", func(f *zip.File) error {
		name := f.Name
		switch {
		case name == "mimetype" || name == epub.PackagePath || strings.HasPrefix(name, "META-INF/"):
			// container level entries are rebuilt for the merged book
			return nil
		case name == epub.NavPath || name == epub.CoverPath:
			// so are navigation and cover
			return nil
		}

		target := dir + name
		if strings.HasPrefix(name, sharedPrefix) {
			if pkg.HasHref(name) {
				log.Debug("Skipping shared resource", zap.String("path", name), zap.Int("chapter", index))
				return nil
			}
			target = name
		}

		content, err := readZipEntry(f)
		if err != nil {
			return err
		}
		if name == epub.ContentPath {
			content = rebaseSharedLinks(content)
		}

		ref := tr.ResourceRef{
			RelPath:   target,
			MediaType: types[name],
			Data:      content,
		}
		if len(ref.MediaType) == 0 {
			ref.MediaType = "application/octet-stream"
		}

		id, err := pkg.AddManifestItem(ref)
		if err != nil {
			return err
		}
		if err := book.Add(ref); err != nil {
			return err
		}
		if name == epub.ContentPath {
			spineID = id
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(spineID) == 0 {
		return errors.New("chapter container carries no content document")
	}
	return pkg.AddSpineItem(spineID)
}

// manifestIndex reads the chapter package document and maps entry paths to
// their declared media types.
func manifestIndex(data []byte) (map[string]string, error) {
	var opf []byte
	err := archive.Walk(data, epub.PackagePath, func(f *zip.File) error {
		b, err := readZipEntry(f)
		if err != nil {
			return err
		}
		opf = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if opf == nil {
		return nil, errors.New("chapter container carries no package document")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(opf); err != nil {
		return nil, fmt.Errorf("unable to parse chapter package document: %w", err)
	}

	types := make(map[string]string)
	for _, item := range doc.FindElements("//manifest/item") {
		types[item.SelectAttrValue("href", "")] = item.SelectAttrValue("media-type", "")
	}
	return types, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open %q: %w", f.Name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read %q: %w", f.Name, err)
	}
	return data, nil
}

// rebaseSharedLinks points references to shared root level styling from
// inside a chapter subdirectory one level up.
func rebaseSharedLinks(content []byte) []byte {
	return bytes.ReplaceAll(content,
		[]byte(`href="`+sharedPrefix),
		[]byte(`href="../`+sharedPrefix))
}

// prefixTOC rewrites chapter local anchors into the chapter subdirectory.
// External references stay untouched.
func prefixTOC(entries []tr.TOCEntry, dir string) []tr.TOCEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]tr.TOCEntry, len(entries))
	for i, e := range entries {
		href := e.Href
		if !strings.Contains(href, "://") {
			href = dir + href
		}
		out[i] = tr.TOCEntry{
			Title:    e.Title,
			Href:     href,
			Children: prefixTOC(e.Children, dir),
		}
	}
	return out
}

func chapterDir(index int) string {
	return fmt.Sprintf("chapter_%d/", index)
}
