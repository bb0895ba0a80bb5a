package epub

import (
	"fmt"
	"os"

	fixzip "github.com/hidez8891/zip"
)

// CopyWithoutDataDescriptors rewrites the archive entry by entry with the
// data descriptor flag cleared. The standard zip writer always streams
// entries with data descriptors and some strict EPUB readers reject such
// archives.
func CopyWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor

		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}
