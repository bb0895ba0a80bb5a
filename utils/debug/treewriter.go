package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented text for debug report artifacts.
type TreeWriter struct {
	b      strings.Builder
	indent string
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{indent: "  "}
}

func (tw *TreeWriter) String() string {
	return tw.b.String()
}

// Line writes one formatted line at the requested depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(&tw.b, format, args...)
	tw.b.WriteByte('\n')
}

// TextBlock writes a labeled value, quoted so control characters and stray
// whitespace stay visible in the report.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.b.WriteString(label)
	tw.b.WriteString(": ")
	if value != "" {
		value = strconv.Quote(value)
	}
	tw.b.WriteString(value)
	tw.b.WriteByte('\n')
}

func (tw *TreeWriter) pad(depth int) {
	for range depth {
		tw.b.WriteString(tw.indent)
	}
}
