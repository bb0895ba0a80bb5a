// Package epub assembles EPUB 3 publications: the package document model,
// the navigation and cover content documents and the OCF zip container.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"r2epub/tr"
)

// MimetypeContent is the fixed content of the container's first entry.
const MimetypeContent = "application/epub+zip"

// Fixed paths inside the container.
const (
	containerXMLPath = "META-INF/container.xml"
	PackagePath      = "package.opf"
	NavPath          = "nav.xhtml"
	CoverPath        = "cover.xhtml"
	ContentPath      = "Overview.xhtml"
)

// ErrFinalized is returned when a finished container is touched again.
var ErrFinalized = errors.New("container already finalized")

// Fetcher retrieves the bytes of resources registered by URL. Resource
// fetching happens only at finalization time, never earlier.
type Fetcher interface {
	Bytes(ctx context.Context, url string) ([]byte, error)
}

// Container builds one OCF archive. Resources are registered while the
// pipeline runs; Finalize fetches outstanding resource bytes behind a single
// barrier and writes the archive exactly once.
type Container struct {
	name  string
	pkg   *Package
	refs  []tr.ResourceRef
	paths map[string]struct{}
	buf   bytes.Buffer
	done  bool
}

// NewContainer creates an empty container. The name is the short name the
// suggested output file name derives from.
func NewContainer(name string, pkg *Package) *Container {
	return &Container{
		name:  name,
		pkg:   pkg,
		paths: make(map[string]struct{}),
	}
}

// Name returns the suggested output file name.
func (c *Container) Name() string {
	return c.name + ".epub"
}

// Package returns the package model this container serializes on Finalize.
func (c *Container) Package() *Package {
	return c.pkg
}

// Add registers one resource for inclusion.
func (c *Container) Add(ref tr.ResourceRef) error {
	if c.done {
		return ErrFinalized
	}
	if err := ref.Valid(); err != nil {
		return err
	}
	if _, dup := c.paths[ref.RelPath]; dup {
		return fmt.Errorf("duplicate container entry %q", ref.RelPath)
	}
	c.paths[ref.RelPath] = struct{}{}
	c.refs = append(c.refs, ref)
	return nil
}

// Finalize fetches every resource still addressed by URL, serializes the
// package document and writes the archive. The mimetype marker goes first
// and uncompressed, the container descriptor second. A container can be
// finalized only once.
func (c *Container) Finalize(ctx context.Context, f Fetcher, log *zap.Logger) error {
	if c.done {
		return ErrFinalized
	}

	payload := make([][]byte, len(c.refs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range c.refs {
		if c.refs[i].Data != nil {
			payload[i] = c.refs[i].Data
			continue
		}
		if f == nil {
			return fmt.Errorf("resource %q needs fetching but no fetcher is available", c.refs[i].RelPath)
		}
		g.Go(func() error {
			data, err := f.Bytes(gctx, c.refs[i].URL)
			if err != nil {
				return fmt.Errorf("unable to fetch %q: %w", c.refs[i].URL, err)
			}
			payload[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	opf, err := c.pkg.Serialize()
	if err != nil {
		return fmt.Errorf("unable to serialize package document: %w", err)
	}

	c.buf.Reset()
	zw := zip.NewWriter(&c.buf)

	if err := writeMimetype(zw); err != nil {
		return fmt.Errorf("unable to write mimetype: %w", err)
	}
	if err := writeContainerXML(zw); err != nil {
		return fmt.Errorf("unable to write container descriptor: %w", err)
	}
	if err := writeDataToZip(zw, PackagePath, opf); err != nil {
		return fmt.Errorf("unable to write package document: %w", err)
	}
	for i := range c.refs {
		if err := writeDataToZip(zw, c.refs[i].RelPath, payload[i]); err != nil {
			return fmt.Errorf("unable to write %q: %w", c.refs[i].RelPath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close container: %w", err)
	}

	c.done = true
	log.Debug("Finalized container",
		zap.String("name", c.Name()),
		zap.Int("entries", len(c.refs)+3))
	return nil
}

// Bytes returns the finished archive content.
func (c *Container) Bytes() ([]byte, error) {
	if !c.done {
		return nil, errors.New("container not finalized")
	}
	return c.buf.Bytes(), nil
}

func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, MimetypeContent)
	return err
}

func writeContainerXML(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfiles := container.CreateElement("rootfiles")
	rootfile := rootfiles.CreateElement("rootfile")
	rootfile.CreateAttr("full-path", PackagePath)
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	data, err := doc.WriteToBytes()
	if err != nil {
		return err
	}
	return writeDataToZip(zw, containerXMLPath, data)
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
