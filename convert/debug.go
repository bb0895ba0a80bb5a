package convert

import (
	"archive/zip"
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"r2epub/archive"
	"r2epub/utils/debug"
)

// containerLayout returns a readable listing of the finished archive. It
// exists solely for manual inspection during debugging.
func containerLayout(data []byte) string {
	tw := debug.NewTreeWriter()

	var names []string
	sizes := make(map[string]uint64)
	if err := archive.Walk(data, "", func(f *zip.File) error {
		names = append(names, f.Name)
		sizes[f.Name] = f.UncompressedSize64
		return nil
	}); err != nil {
		tw.Line(0, "Unreadable container: %v", err)
		return tw.String()
	}

	tw.Line(0, "Container entries: %d", len(names))
	for i, name := range names {
		tw.Line(1, "Entry[%d] %q size[%d]", i, name, sizes[name])
	}

	tw.Line(0, "By path:")
	keys := slices.Collect(maps.Keys(sizes))
	sort.Sort(natural.StringSlice(keys))
	for _, k := range keys {
		tw.Line(1, "%s", k)
	}
	return tw.String()
}

// valuesSummary renders the metadata the output name was derived from,
// quoting values so stray whitespace from the source document is visible.
func valuesSummary(values Values) string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Publication metadata:")
	tw.TextBlock(1, "name", values.Name)
	tw.TextBlock(1, "title", values.Title)
	tw.TextBlock(1, "status", values.Status)
	tw.TextBlock(1, "date", values.Date)
	tw.TextBlock(1, "source", values.Source)
	return tw.String()
}
