package tr

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ExtractTOC builds the table of contents for the document. ReSpec output
// carries its own generated nav#toc list which is the authoritative
// structure; documents without one fall back to the heading hierarchy.
// Anchors are rewritten to point into contentPath. maxDepth of 0 means
// unlimited.
func ExtractTOC(doc *goquery.Document, contentPath string, maxDepth int, log *zap.Logger) []TOCEntry {
	if nav := doc.Find("nav#toc").First(); nav.Length() > 0 {
		if list := nav.ChildrenFiltered("ol, ul").First(); list.Length() > 0 {
			if entries := parseTOCList(list, contentPath, maxDepth, 1); len(entries) > 0 {
				return entries
			}
		}
		if list := nav.Find("ol, ul").First(); list.Length() > 0 {
			if entries := parseTOCList(list, contentPath, maxDepth, 1); len(entries) > 0 {
				return entries
			}
		}
	}
	log.Debug("No usable nav#toc, walking headings", zap.String("content", contentPath))
	return headingTOC(doc, contentPath, maxDepth)
}

func parseTOCList(list *goquery.Selection, contentPath string, maxDepth, depth int) []TOCEntry {
	if maxDepth > 0 && depth > maxDepth {
		return nil
	}

	var entries []TOCEntry
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		a := li.ChildrenFiltered("a").First()
		if a.Length() == 0 {
			a = li.Find("a").First()
		}
		if a.Length() == 0 {
			return
		}

		title := collapseSpace(a.Text())
		if len(title) == 0 {
			return
		}
		href, _ := a.Attr("href")

		entry := TOCEntry{Title: title, Href: rewriteAnchor(href, contentPath)}
		if sub := li.ChildrenFiltered("ol, ul").First(); sub.Length() > 0 {
			entry.Children = parseTOCList(sub, contentPath, maxDepth, depth+1)
		}
		entries = append(entries, entry)
	})
	return entries
}

// headingTOC assembles entries from h2..h6 headings carrying (or nested in
// an element carrying) an id.
func headingTOC(doc *goquery.Document, contentPath string, maxDepth int) []TOCEntry {
	maxLevel := 6
	if maxDepth > 0 && 1+maxDepth < maxLevel {
		maxLevel = 1 + maxDepth
	}

	var (
		roots []TOCEntry
		// stack[i] addresses the currently open entry for heading level i+2
		stack []*TOCEntry
	)

	doc.Find("h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level, err := strconv.Atoi(strings.TrimPrefix(goquery.NodeName(s), "h"))
		if err != nil || level > maxLevel {
			return
		}
		title := collapseSpace(s.Text())
		if len(title) == 0 {
			return
		}

		id, ok := s.Attr("id")
		if !ok {
			id, _ = s.ParentsFiltered("section").First().Attr("id")
		}
		href := contentPath
		if len(id) > 0 {
			href += "#" + id
		}

		depth := level - 2
		if depth > len(stack) {
			depth = len(stack)
		}
		stack = stack[:depth]

		entry := TOCEntry{Title: title, Href: href}
		if len(stack) == 0 {
			roots = append(roots, entry)
			stack = append(stack, &roots[len(roots)-1])
			return
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, entry)
		stack = append(stack, &parent.Children[len(parent.Children)-1])
	})
	return roots
}

func rewriteAnchor(href, contentPath string) string {
	href = strings.TrimSpace(href)
	if len(href) == 0 {
		return contentPath
	}
	if strings.HasPrefix(href, "#") {
		return contentPath + href
	}
	// reference to another page of the specification, kept relative
	return href
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
