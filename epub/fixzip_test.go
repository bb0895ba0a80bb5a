package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

const flagDataDescriptor = 0x8

func writeStreamedArchive(t *testing.T, path string) []string {
	t.Helper()

	entries := []struct {
		name   string
		data   string
		method uint16
	}{
		{"mimetype", MimetypeContent, zip.Store},
		{"META-INF/container.xml", "<container/>", zip.Deflate},
		{"package.opf", "<package/>", zip.Deflate},
		{"Overview.xhtml", "<html/>", zip.Deflate},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		if err != nil {
			t.Fatalf("create %q: %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.data)); err != nil {
			t.Fatalf("write %q: %v", e.name, err)
		}
		names = append(names, e.name)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write archive file: %v", err)
	}
	return names
}

func TestCopyWithoutDataDescriptors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "streamed.epub")
	dst := filepath.Join(dir, "fixed.epub")
	names := writeStreamedArchive(t, src)

	before, err := zip.OpenReader(src)
	if err != nil {
		t.Fatalf("open source archive: %v", err)
	}
	defer before.Close()
	streamed := false
	for _, f := range before.File {
		if f.Flags&flagDataDescriptor != 0 {
			streamed = true
			break
		}
	}
	if !streamed {
		t.Fatal("source archive carries no data descriptors, nothing to verify")
	}

	if err := CopyWithoutDataDescriptors(src, dst); err != nil {
		t.Fatalf("CopyWithoutDataDescriptors() error = %v", err)
	}

	after, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatalf("open fixed archive: %v", err)
	}
	defer after.Close()

	if len(after.File) != len(names) {
		t.Fatalf("expected %d entries, got %d", len(names), len(after.File))
	}
	for i, f := range after.File {
		if f.Name != names[i] {
			t.Errorf("entry[%d] = %q, want %q", i, f.Name, names[i])
		}
		if f.Flags&flagDataDescriptor != 0 {
			t.Errorf("entry %q still carries the data descriptor flag", f.Name)
		}
	}
	if after.File[0].Method != zip.Store {
		t.Error("mimetype entry lost its stored method")
	}

	r, err := after.File[0].Open()
	if err != nil {
		t.Fatalf("open mimetype: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read mimetype: %v", err)
	}
	if string(data) != MimetypeContent {
		t.Errorf("mimetype content = %q, want %q", data, MimetypeContent)
	}
}

func TestCopyWithoutDataDescriptors_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyWithoutDataDescriptors(filepath.Join(dir, "absent.epub"), filepath.Join(dir, "out.epub"))
	if err == nil {
		t.Fatal("expected error for missing source archive")
	}
}
