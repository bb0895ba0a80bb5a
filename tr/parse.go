package tr

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// respecConfig mirrors the fields we consume from the configuration object
// ReSpec embeds into generated documents.
type respecConfig struct {
	ShortName      string `json:"shortName"`
	SpecStatus     string `json:"specStatus"`
	PublishISODate string `json:"publishISODate"`
	PublishDate    string `json:"publishDate"`
	Editors        []struct {
		Name string `json:"name"`
	} `json:"editors"`
	FormerEditors []struct {
		Name string `json:"name"`
	} `json:"formerEditors"`
}

// ParseMeta locates the configuration script ReSpec leaves in its output and
// extracts document metadata from it. Absent or unparseable configuration is
// fatal - documents not produced by ReSpec are not supported.
func ParseMeta(doc *goquery.Document, log *zap.Logger) (*Meta, error) {
	script := doc.Find("script#initialUserConfig").First()
	if script.Length() == 0 {
		return nil, ErrMissingConfig
	}

	var cfg respecConfig
	if err := json.Unmarshal([]byte(script.Text()), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, err)
	}

	meta := &Meta{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		ShortName:   strings.TrimSpace(cfg.ShortName),
		SpecStatus:  strings.TrimSpace(cfg.SpecStatus),
		PublishDate: normalizeDate(cfg.PublishISODate, cfg.PublishDate),
	}
	if len(meta.Title) == 0 {
		meta.Title = doc.Find("h1").First().Text()
		meta.Title = strings.TrimSpace(meta.Title)
	}

	seen := make(map[string]struct{})
	addEditor := func(name string) {
		name = strings.TrimSpace(name)
		if len(name) == 0 {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		meta.Editors = append(meta.Editors, name)
	}
	for _, e := range cfg.Editors {
		addEditor(e.Name)
	}
	for _, e := range cfg.FormerEditors {
		addEditor(e.Name)
	}

	log.Debug("Parsed document metadata",
		zap.String("shortName", meta.ShortName),
		zap.String("status", meta.SpecStatus),
		zap.String("date", meta.PublishDate),
		zap.Int("editors", len(meta.Editors)))
	return meta, nil
}

// normalizeDate picks the first usable date and brings it to yyyy-mm-dd.
func normalizeDate(candidates ...string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len(c) == 0 {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02T15:04:05.000Z"} {
			if t, err := time.Parse(layout, c); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return ""
}
