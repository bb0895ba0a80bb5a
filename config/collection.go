package config

import (
	"bytes"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

type (
	// ChapterOptions carries per chapter conversion overrides, mirroring
	// what could be requested for a single document.
	ChapterOptions struct {
		SpecStatus   string `yaml:"spec_status,omitempty"`
		PublishDate  string `yaml:"publish_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
		SectionLinks bool   `yaml:"section_links,omitempty"`
		TOCDepth     int    `yaml:"toc_depth,omitempty" validate:"min=0,max=6"`
	}

	ChapterConfig struct {
		URL string `yaml:"url" validate:"required,url"`
		// Run source through ReSpec processing service before conversion.
		Respec  bool           `yaml:"respec,omitempty"`
		Options ChapterOptions `yaml:"options,omitempty"`
	}

	// CollectionConfig describes a book assembled from several documents.
	CollectionConfig struct {
		Name     string          `yaml:"name" validate:"required"`
		Title    string          `yaml:"title" validate:"required"`
		Chapters []ChapterConfig `yaml:"chapters" validate:"required,min=1,dive"`
	}
)

// LoadCollection reads book collection description from the file at the given
// path and validates it. Since YAML is a superset of JSON both formats are
// accepted.
func LoadCollection(path string) (*CollectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection file: %w", err)
	}
	return ParseCollection(data)
}

// ParseCollection decodes and validates book collection description.
func ParseCollection(data []byte) (*CollectionConfig, error) {
	var col CollectionConfig

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&col); err != nil {
		return nil, fmt.Errorf("failed to decode collection data: %w", err)
	}
	if err := gencfg.Validate(&col); err != nil {
		return nil, fmt.Errorf("failed to validate collection: %w", err)
	}
	return &col, nil
}
