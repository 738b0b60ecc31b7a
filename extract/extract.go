// Package extract isolates the main content of an HTML page.
//
// The pipeline: raw HTML → tolerant parse → title → first selector match
// (else <body>, else the document) → noise removal.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultTitle is used when the page has no usable <title>.
const DefaultTitle = "Page Content"

// ParseError reports that the HTML input could not be read. Malformed markup
// is never a ParseError: the parser recovers and yields a best-effort tree.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "extract: parse HTML: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// Result is the cleaned content subtree plus the page title.
type Result struct {
	Title string
	Node  *html.Node
	// Matched names what selected Node: a selector, "body" or "document".
	Matched string
}

// HTML renders the content subtree back to markup.
func (r *Result) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, r.Node); err != nil {
		return "", fmt.Errorf("extract: render subtree: %w", err)
	}
	return buf.String(), nil
}

// Extract parses r and returns the main content subtree selected by the
// first matching selector, with noise elements removed.
func Extract(r io.Reader, selectors []Selector) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	res := &Result{Title: findTitle(doc)}

	content, matched := selectContent(doc, selectors)
	res.Matched = matched
	content.FindMatcher(noise{}).Remove()
	res.Node = content.Get(0)
	return res, nil
}

// ExtractString is Extract over an in-memory string.
func ExtractString(rawHTML string, selectors []Selector) (*Result, error) {
	return Extract(strings.NewReader(rawHTML), selectors)
}

func findTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.FindMatcher(Tag("title")).First().Text())
	if title == "" {
		return DefaultTitle
	}
	return title
}

func selectContent(doc *goquery.Document, selectors []Selector) (*goquery.Selection, string) {
	for _, sel := range selectors {
		if found := doc.FindMatcher(sel).First(); found.Length() > 0 {
			return found, sel.String()
		}
	}
	if body := doc.FindMatcher(Tag("body")).First(); body.Length() > 0 {
		return body, "body"
	}
	return doc.Selection, "document"
}

// noise matches the presentation and navigation elements stripped from
// every content subtree.
type noise struct{}

func (noise) Match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return IsNoise(n.DataAtom)
}

func (m noise) MatchAll(n *html.Node) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if m.Match(n) {
			results = append(results, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return results
}

func (m noise) Filter(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if m.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

// IsNoise reports whether a tag is excluded from converted output.
func IsNoise(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Nav, atom.Header, atom.Footer, atom.Aside:
		return true
	}
	return false
}

// Text extracts all visible text from a node subtree, space-separated.
func Text(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}
