package tr

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MediaTyper answers media type lookups for absolute URLs. Failures are
// fatal to the enclosing run.
type MediaTyper interface {
	MediaType(ctx context.Context, url string) (string, error)
}

// collectorTargets is the fixed set of element/attribute pairs scanned for
// relatively addressed resources.
var collectorTargets = []struct {
	selector string
	attr     string
}{
	{"img", "src"},
	{"a", "href"},
	{"link[rel='stylesheet']", "href"},
	{"object", "data"},
}

// CollectResources scans the document for relatively addressed resources,
// resolves them against the source URL and determines their media types. All
// lookups for one document are issued together and awaited at a single
// barrier; results keep document order regardless of completion order.
func CollectResources(ctx context.Context, doc *goquery.Document, source *url.URL, mt MediaTyper, log *zap.Logger) ([]ResourceRef, error) {
	var (
		relPaths []string
		absURLs  []string
		seen     = make(map[string]struct{})
	)

	for _, target := range collectorTargets {
		doc.Find(target.selector).Each(func(_ int, s *goquery.Selection) {
			val, ok := s.Attr(target.attr)
			if !ok {
				return
			}
			val = strings.TrimSpace(val)
			if len(val) == 0 || strings.HasPrefix(val, "#") {
				return
			}

			ref, err := url.Parse(val)
			if err != nil {
				log.Debug("Skipping unparseable reference", zap.String("value", val))
				return
			}
			if ref.IsAbs() {
				// external links stay external
				return
			}

			ref.Fragment = ""
			ref.RawFragment = ""
			rel := ref.String()
			if len(rel) == 0 {
				return
			}
			if _, dup := seen[rel]; dup {
				return
			}
			seen[rel] = struct{}{}
			relPaths = append(relPaths, rel)
			absURLs = append(absURLs, source.ResolveReference(ref).String())
		})
	}

	if len(relPaths) == 0 {
		return nil, nil
	}
	log.Debug("Collected resource references", zap.Int("count", len(relPaths)))

	// One barrier for the whole batch, results indexed by request.
	mediaTypes := make([]string, len(relPaths))
	g, gctx := errgroup.WithContext(ctx)
	for i := range relPaths {
		g.Go(func() error {
			t, err := mt.MediaType(gctx, absURLs[i])
			if err != nil {
				return fmt.Errorf("unable to determine media type of %q: %w", absURLs[i], err)
			}
			mediaTypes[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := make([]ResourceRef, len(relPaths))
	for i := range relPaths {
		refs[i] = ResourceRef{
			RelPath:   relPaths[i],
			MediaType: mediaTypes[i],
			URL:       absURLs[i],
		}
	}
	return refs, nil
}
