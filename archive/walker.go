// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
)

// WalkFunc is the type of the function called for each file entry visited
// by Walk. The file argument is the zip.File structure for an entry which
// satisfies the match condition. If an error is returned, processing stops.
type WalkFunc func(file *zip.File) error

// Walk walks all file entries of the in-memory archive whose names carry
// the given prefix, calling walkFn for each in archive order. Entries with
// path traversal components ("..") or absolute paths fail the walk to
// prevent Zip Slip attacks.
func Walk(data []byte, prefix string, walkFn WalkFunc) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !IsSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, prefix) {
			if err := walkFn(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func IsSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
