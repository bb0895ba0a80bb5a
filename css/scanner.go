// Package css extracts external resource references from stylesheets.
package css

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Reference is a single external reference found in a stylesheet.
type Reference struct {
	URL     string // URL as it appears in CSS
	Context string // "import" or the declaration property ("background", "src", ...)
}

// ExtractReferences scans stylesheet text and returns every @import target
// and url() value in document order, deduplicated. The streaming parser
// visits rules nested in @media and @font-face blocks as well.
func ExtractReferences(data []byte, log *zap.Logger) []Reference {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("css")

	var (
		refs []Reference
		seen = make(map[string]struct{})
	)
	add := func(url, context string) {
		url = strings.TrimSpace(url)
		if len(url) == 0 {
			return
		}
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		refs = append(refs, Reference{URL: url, Context: context})
		log.Debug("Found stylesheet reference", zap.String("url", url), zap.String("context", context))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	for {
		gt, _, tok := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or unrecoverable error
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				log.Debug("Stylesheet parse stopped", zap.Error(err))
			}
			return refs

		case css.AtRuleGrammar:
			// Simple @-rule without block
			if string(tok) == "@import" {
				if url := importURL(parser.Values()); len(url) > 0 {
					add(url, "import")
				}
			}

		case css.DeclarationGrammar:
			prop := string(tok)
			for _, t := range parser.Values() {
				if t.TokenType == css.URLToken {
					add(unwrapURL(string(t.Data)), prop)
				}
			}
		}
	}
}

// importURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func importURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			return unwrapURL(string(t.Data))
		}
	}
	return ""
}

// unwrapURL strips the url( prefix, the closing paren and optional quotes
// from an URLToken.
func unwrapURL(s string) string {
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, ")")
	return unquote(strings.TrimSpace(s))
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
