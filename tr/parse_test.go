package tr_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"r2epub/tr"
)

func docFromString(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to parse test document: %v", err)
	}
	return doc
}

func TestParseMeta(t *testing.T) {
	doc := docFromString(t, `<!DOCTYPE html>
<html>
<head>
<title>TTML Profiles for Internet Media Subtitles and Captions 1.2</title>
<script id="initialUserConfig" type="application/json">
{
  "shortName": "ttml-imsc1.2",
  "specStatus": "REC",
  "publishISODate": "2020-08-04T00:00:00.000Z",
  "editors": [{"name": "Pierre-Anthony Lemieux"}],
  "formerEditors": [{"name": "Glenn Adams"}]
}
</script>
</head>
<body><h1>Ignored</h1></body>
</html>`)

	meta, err := tr.ParseMeta(doc, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Title != "TTML Profiles for Internet Media Subtitles and Captions 1.2" {
		t.Errorf("unexpected title: %q", meta.Title)
	}
	if meta.ShortName != "ttml-imsc1.2" {
		t.Errorf("expected short name 'ttml-imsc1.2', got %q", meta.ShortName)
	}
	if meta.SpecStatus != "REC" {
		t.Errorf("expected status 'REC', got %q", meta.SpecStatus)
	}
	if meta.PublishDate != "2020-08-04" {
		t.Errorf("expected publish date '2020-08-04', got %q", meta.PublishDate)
	}
	want := []string{"Pierre-Anthony Lemieux", "Glenn Adams"}
	if len(meta.Editors) != len(want) {
		t.Fatalf("expected %d editors, got %d: %v", len(want), len(meta.Editors), meta.Editors)
	}
	for i := range want {
		if meta.Editors[i] != want[i] {
			t.Errorf("editor %d: expected %q, got %q", i, want[i], meta.Editors[i])
		}
	}
}

func TestParseMeta_MissingConfig(t *testing.T) {
	doc := docFromString(t, `<html><head><title>No config here</title></head><body></body></html>`)

	_, err := tr.ParseMeta(doc, zap.NewNop())
	if err == nil {
		t.Fatal("expected an error for a document without ReSpec configuration")
	}
	if !errors.Is(err, tr.ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}
}

func TestParseMeta_MalformedConfig(t *testing.T) {
	doc := docFromString(t, `<html><head>
<script id="initialUserConfig">{not json at all</script>
</head><body></body></html>`)

	_, err := tr.ParseMeta(doc, zap.NewNop())
	if !errors.Is(err, tr.ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig for malformed JSON, got %v", err)
	}
}

func TestParseMeta_TitleFallback(t *testing.T) {
	doc := docFromString(t, `<html><head>
<script id="initialUserConfig">{"shortName": "x", "specStatus": "WD"}</script>
</head><body><h1>  Heading   Title </h1></body></html>`)

	meta, err := tr.ParseMeta(doc, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Title != "Heading   Title" {
		t.Errorf("expected title from h1, got %q", meta.Title)
	}
}

func TestParseMeta_EditorDedup(t *testing.T) {
	doc := docFromString(t, `<html><head>
<script id="initialUserConfig">
{"shortName": "x", "specStatus": "WD",
 "editors": [{"name": "Alice"}, {"name": "Bob"}],
 "formerEditors": [{"name": "Bob"}, {"name": "Carol"}]}
</script>
</head><body></body></html>`)

	meta, err := tr.ParseMeta(doc, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Alice", "Bob", "Carol"}
	if len(meta.Editors) != len(want) {
		t.Fatalf("expected editors %v, got %v", want, meta.Editors)
	}
	for i := range want {
		if meta.Editors[i] != want[i] {
			t.Errorf("editor %d: expected %q, got %q", i, want[i], meta.Editors[i])
		}
	}
}

func TestParseMeta_DateNormalization(t *testing.T) {
	cases := []struct {
		name    string
		isoDate string
		date    string
		want    string
	}{
		{"iso with time", "2021-06-01T00:00:00.000Z", "", "2021-06-01"},
		{"plain date", "", "2021-01-01", "2021-01-01"},
		{"iso preferred", "2021-06-01T00:00:00.000Z", "2020-01-01", "2021-06-01"},
		{"rfc3339", "2019-03-05T10:20:30Z", "", "2019-03-05"},
		{"unusable", "yesterday", "", ""},
		{"absent", "", "", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc := docFromString(t, fmt.Sprintf(`<html><head>
<script id="initialUserConfig">{"shortName": "x", "specStatus": "WD", "publishISODate": %q, "publishDate": %q}</script>
</head><body></body></html>`, c.isoDate, c.date))

			meta, err := tr.ParseMeta(doc, zap.NewNop())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if meta.PublishDate != c.want {
				t.Errorf("expected date %q, got %q", c.want, meta.PublishDate)
			}
		})
	}
}
