package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCollection(t *testing.T) {
	data := []byte(`name: epub-books
title: Books on EPUB
chapters:
  - url: https://www.w3.org/TR/epub-33/
    respec: false
  - url: https://www.w3.org/TR/epub-rs-33/
    respec: true
    options:
      spec_status: REC
      publish_date: "2023-05-25"
      section_links: true
      toc_depth: 2
`)

	col, err := ParseCollection(data)
	if err != nil {
		t.Fatalf("ParseCollection() error = %v", err)
	}

	if col.Name != "epub-books" {
		t.Errorf("Name = %q, want %q", col.Name, "epub-books")
	}
	if col.Title != "Books on EPUB" {
		t.Errorf("Title = %q, want %q", col.Title, "Books on EPUB")
	}
	if len(col.Chapters) != 2 {
		t.Fatalf("Chapters length = %d, want 2", len(col.Chapters))
	}
	if col.Chapters[0].Respec {
		t.Error("Chapters[0].Respec should be false")
	}
	if !col.Chapters[1].Respec {
		t.Error("Chapters[1].Respec should be true")
	}
	if col.Chapters[1].Options.SpecStatus != "REC" {
		t.Errorf("SpecStatus = %q, want REC", col.Chapters[1].Options.SpecStatus)
	}
	if col.Chapters[1].Options.PublishDate != "2023-05-25" {
		t.Errorf("PublishDate = %q, want 2023-05-25", col.Chapters[1].Options.PublishDate)
	}
	if col.Chapters[1].Options.TOCDepth != 2 {
		t.Errorf("TOCDepth = %d, want 2", col.Chapters[1].Options.TOCDepth)
	}
}

func TestParseCollection_JSON(t *testing.T) {
	// YAML is a superset of JSON, old json book descriptions must keep working
	data := []byte(`{
  "name": "epub-books",
  "title": "Books on EPUB",
  "chapters": [
    {"url": "https://www.w3.org/TR/epub-33/", "respec": false},
    {"url": "https://www.w3.org/TR/epub-a11y-11/", "respec": true, "options": {"spec_status": "REC"}}
  ]
}`)

	col, err := ParseCollection(data)
	if err != nil {
		t.Fatalf("ParseCollection() on JSON error = %v", err)
	}
	if len(col.Chapters) != 2 {
		t.Errorf("Chapters length = %d, want 2", len(col.Chapters))
	}
}

func TestParseCollection_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing title", "name: a\nchapters:\n  - url: https://www.w3.org/TR/x/\n"},
		{"missing name", "title: a\nchapters:\n  - url: https://www.w3.org/TR/x/\n"},
		{"no chapters", "name: a\ntitle: b\nchapters: []\n"},
		{"bad url", "name: a\ntitle: b\nchapters:\n  - url: not-an-url\n"},
		{"bad date", "name: a\ntitle: b\nchapters:\n  - url: https://www.w3.org/TR/x/\n    options:\n      publish_date: 05/25/2023\n"},
		{"unknown field", "name: a\ntitle: b\nwhatever: c\nchapters:\n  - url: https://www.w3.org/TR/x/\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCollection([]byte(tt.data)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadCollection(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "book.yaml")

	data := `name: test-book
title: Test Book
chapters:
  - url: https://www.w3.org/TR/test/
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write collection file: %v", err)
	}

	col, err := LoadCollection(path)
	if err != nil {
		t.Fatalf("LoadCollection() error = %v", err)
	}
	if col.Name != "test-book" {
		t.Errorf("Name = %q, want %q", col.Name, "test-book")
	}
}

func TestLoadCollection_NonExistentFile(t *testing.T) {
	if _, err := LoadCollection("/nonexistent/book.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}
