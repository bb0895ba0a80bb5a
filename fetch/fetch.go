// Package fetch retrieves remote documents and resources applying URL safety
// policy to everything it touches.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"r2epub/config"
)

// ErrInvalidURL is returned for malformed URLs, non HTTP(S) schemes and
// privileged ports outside of the allowed list.
var ErrInvalidURL = errors.New("invalid or unsafe URL")

// Media types we cannot rely on sniffing or server headers for - text based
// formats and fonts common in W3C publications.
var mediaTypesByExt = map[string]string{
	".html":  "text/html",
	".xhtml": "application/xhtml+xml",
	".css":   "text/css",
	".js":    "text/javascript",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".json":  "application/json",
	".txt":   "text/plain",
	".pdf":   "application/pdf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
}

const fallbackMediaType = "application/octet-stream"

// Client issues safe HTTP(S) requests on behalf of the conversion pipeline.
type Client struct {
	hc        *http.Client
	userAgent string
	allowed   map[int]struct{}
	log       *zap.Logger
}

// NewClient creates fetcher following supplied configuration. When the
// allowed privileged ports list is empty standard web ports are used.
func NewClient(cfg config.FetchConfig, log *zap.Logger) *Client {
	ports := cfg.AllowedLowPorts
	if len(ports) == 0 {
		ports = []int{80, 443}
	}
	allowed := make(map[int]struct{}, len(ports))
	for _, p := range ports {
		allowed[p] = struct{}{}
	}

	return &Client{
		hc:        &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		userAgent: cfg.UserAgent,
		allowed:   allowed,
		log:       log.Named("fetch"),
	}
}

// CheckURL parses raw URL and applies safety policy: only absolute HTTP(S)
// URLs are accepted and ports at or below 1024 must be explicitly allowed.
func (c *Client) CheckURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: scheme %q is not supported", ErrInvalidURL, u.Scheme)
	}
	if len(u.Hostname()) == 0 {
		return nil, fmt.Errorf("%w: no host in %q", ErrInvalidURL, raw)
	}

	port := 80
	if u.Scheme == "https" {
		port = 443
	}
	if len(u.Port()) > 0 {
		if port, err = strconv.Atoi(u.Port()); err != nil {
			return nil, fmt.Errorf("%w: bad port in %q", ErrInvalidURL, raw)
		}
	}
	if port <= 1024 {
		if _, ok := c.allowed[port]; !ok {
			return nil, fmt.Errorf("%w: port %d is not allowed", ErrInvalidURL, port)
		}
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	if _, err := c.CheckURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare request for %q: %w", rawURL, err)
	}
	if len(c.userAgent) > 0 {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %q: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unable to fetch %q: %s", rawURL, resp.Status)
	}
	return resp, nil
}

// Bytes downloads content of the URL.
func (c *Client) Bytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read %q: %w", rawURL, err)
	}
	c.log.Debug("Downloaded", zap.String("url", rawURL), zap.Int("size", len(data)))
	return data, nil
}

// MediaType determines media type of the URL content without downloading the
// whole body when possible. Server supplied type wins, then well known
// extensions, then content sniffing.
func (c *Client) MediaType(ctx context.Context, rawURL string) (string, error) {
	u, err := c.CheckURL(rawURL)
	if err != nil {
		return "", err
	}

	if resp, err := c.do(ctx, http.MethodHead, rawURL); err == nil {
		resp.Body.Close()
		if mt := parseMediaType(resp.Header.Get("Content-Type")); len(mt) > 0 {
			return mt, nil
		}
	}

	if mt, ok := mediaTypesByExt[strings.ToLower(path.Ext(u.Path))]; ok {
		return mt, nil
	}

	// Server was not helpful - have to look at the bytes.
	data, err := c.Bytes(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if t, err := filetype.Match(data); err == nil && t != filetype.Unknown {
		return t.MIME.Value, nil
	}
	c.log.Debug("Unable to detect media type", zap.String("url", rawURL))
	return fallbackMediaType, nil
}

// Document downloads and parses HTML document handling declared character
// encodings.
func (c *Client) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("unable to decode %q: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %q: %w", rawURL, err)
	}
	return doc, nil
}

func parseMediaType(header string) string {
	if len(header) == 0 {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || mt == fallbackMediaType {
		return ""
	}
	return mt
}
