// Package tr processes W3C technical report documents - extracts embedded
// ReSpec metadata, discovers referenced resources, applies status driven
// styling and serializes the result for packaging.
package tr

import (
	"errors"
	"fmt"
)

// ErrMissingConfig is returned when a document does not carry the embedded
// ReSpec configuration this pipeline relies on.
var ErrMissingConfig = errors.New("embedded ReSpec configuration not found")

// ResourceRef describes one entry destined for the publication container.
// Exactly one of URL or Data is set: URL means content is fetched when the
// container is written, Data means content is already materialized.
type ResourceRef struct {
	// RelPath is the path inside the container, unique per container.
	RelPath   string
	MediaType string
	URL       string
	Data      []byte
	// ID overrides the generated manifest id when set.
	ID string
	// Properties carries the manifest properties attribute when set.
	Properties string
}

// Valid verifies the one-of content invariant.
func (r ResourceRef) Valid() error {
	if len(r.RelPath) == 0 {
		return fmt.Errorf("resource without relative path")
	}
	hasURL, hasData := len(r.URL) > 0, r.Data != nil
	if hasURL == hasData {
		return fmt.Errorf("resource %q must have exactly one of URL or data", r.RelPath)
	}
	return nil
}

// Meta is the document metadata extracted from the embedded ReSpec
// configuration and the document itself.
type Meta struct {
	Title       string
	ShortName   string
	SpecStatus  string
	PublishDate string // ISO date (yyyy-mm-dd), may be empty
	Editors     []string
}

// TOCEntry is one node of the extracted table of contents.
type TOCEntry struct {
	Title    string
	Href     string
	Children []TOCEntry
}
