// Package corpus loads the saved HTML pages that back the search results.
// Each configured corpus directory holds one participant group's pages;
// parsing extracts a title and the visible text for indexing and prompting.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Page is one saved HTML document from a corpus directory.
type Page struct {
	// Name is the file name, e.g. "some-article.html".
	Name string
	// Dir is the base name of the corpus directory the page came from.
	Dir string
	// Title comes from <title>, falling back to the first <h1>, then Name.
	Title string
	// Text is the visible text with script/style/noscript stripped.
	Text string
}

// LoadDir parses up to limit *.html files from dirPath, sorted by file name
// so the result is stable across runs. Files that fail to parse are kept with
// their file name as title and empty text rather than dropped; a missing page
// should still be clickable in the results list.
func LoadDir(dirPath string, limit int) ([]Page, error) {
	matches, err := filepath.Glob(filepath.Join(dirPath, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", dirPath, err)
	}
	sort.Strings(matches)

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	dirName := filepath.Base(dirPath)
	pages := make([]Page, 0, len(matches))
	for _, path := range matches {
		page := parseFile(path)
		page.Dir = dirName
		pages = append(pages, page)
	}
	return pages, nil
}

func parseFile(path string) Page {
	name := filepath.Base(path)
	page := Page{Name: name, Title: name}

	f, err := os.Open(path)
	if err != nil {
		return page
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close %s: %v\n", path, err)
		}
	}()

	doc, err := html.Parse(f)
	if err != nil {
		return page
	}

	if title := extractTitle(doc); title != "" {
		page.Title = title
	}
	page.Text = extractText(doc)
	return page
}

// extractTitle returns the <title> text, falling back to the first <h1>.
func extractTitle(doc *html.Node) string {
	var title, h1 string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" {
					title = strings.TrimSpace(nodeText(n))
				}
			case "h1":
				if h1 == "" {
					h1 = strings.TrimSpace(nodeText(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	if title != "" {
		return title
	}
	return h1
}

// extractText walks the document collecting text nodes, skipping content that
// is never visible to a reader.
func extractText(doc *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return collapseWhitespace(sb.String())
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return sb.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// GroupFor assigns a participant to a corpus group based on the last digit of
// their participant ID: odd digits (or no digit at all) map to group 1, even
// digits to group 2. Groups are 1-based.
func GroupFor(participantID string) int {
	runes := []rune(participantID)
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsDigit(runes[i]) {
			d := int(runes[i] - '0')
			if d%2 == 0 {
				return 2
			}
			return 1
		}
	}
	return 1
}

// DirForGroup maps a 1-based group number onto the configured corpus
// directories, clamping out-of-range groups to the first directory.
func DirForGroup(corpusDirs []string, group int) string {
	if len(corpusDirs) == 0 {
		return ""
	}
	if group < 1 || group > len(corpusDirs) {
		return corpusDirs[0]
	}
	return corpusDirs[group-1]
}
