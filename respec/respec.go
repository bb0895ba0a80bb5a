// Package respec talks to the spec-generator service that renders ReSpec
// sources into static HTML before conversion.
package respec

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"r2epub/config"
	"r2epub/fetch"
)

// Client requests server side rendering of ReSpec sources.
type Client struct {
	serviceURL string
	fetcher    *fetch.Client
	log        *zap.Logger
}

// NewClient wires the rendering service configuration to a fetch client.
func NewClient(cfg config.RespecConfig, fetcher *fetch.Client, log *zap.Logger) *Client {
	return &Client{
		serviceURL: cfg.ServiceURL,
		fetcher:    fetcher,
		log:        log.Named("respec"),
	}
}

// SourceURL attaches rendering options to the source address the way ReSpec
// expects them, as query parameters of the document itself.
func SourceURL(src string, opts config.ChapterOptions) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("invalid source URL %q: %w", src, err)
	}

	q := u.Query()
	if len(opts.SpecStatus) > 0 {
		q.Set("specStatus", opts.SpecStatus)
	}
	if len(opts.PublishDate) > 0 {
		q.Set("publishDate", opts.PublishDate)
	}
	if opts.SectionLinks {
		q.Set("addSectionLinks", "true")
	}
	if opts.TOCDepth > 0 {
		q.Set("maxTocLevel", strconv.Itoa(opts.TOCDepth))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Document renders the source through the service and parses the result.
func (c *Client) Document(ctx context.Context, src string, opts config.ChapterOptions) (*goquery.Document, error) {
	withOpts, err := SourceURL(src, opts)
	if err != nil {
		return nil, err
	}

	rendered := c.serviceURL + url.QueryEscape(withOpts)
	c.log.Debug("Requesting server side rendering",
		zap.String("source", src), zap.String("request", rendered))

	doc, err := c.fetcher.Document(ctx, rendered)
	if err != nil {
		return nil, fmt.Errorf("spec-generator request failed: %w", err)
	}
	return doc, nil
}
