package extract

import (
	"errors"
	"strings"
	"testing"
)

var testHTML = `<!DOCTYPE html>
<html>
<head><title>  Test Page </title><style>body{color:red}</style></head>
<body>
<header><h1>Site Name</h1></header>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<main id="content" class="page main-body" role="main">
<article>
<h1>Important Article</h1>
<script>trackPageview()</script>
<p>This is the main content of the article.</p>
<aside>Pull quote</aside>
<p>Second paragraph.</p>
</article>
</main>
<aside>
<div class="sidebar">Related links and advertisements</div>
</aside>
<footer>Copyright 2024</footer>
</body>
</html>`

func mustSelectors(t *testing.T, raw ...string) []Selector {
	t.Helper()
	sels, err := ParseSelectors(raw)
	if err != nil {
		t.Fatalf("parse selectors: %v", err)
	}
	return sels
}

func render(t *testing.T, res *Result) string {
	t.Helper()
	out, err := res.HTML()
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestExtract_Title(t *testing.T) {
	res, err := ExtractString(testHTML, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "Test Page" {
		t.Errorf("Title: got %q, want %q", res.Title, "Test Page")
	}
}

func TestExtract_DefaultTitle(t *testing.T) {
	for _, doc := range []string{
		`<html><body><p>x</p></body></html>`,
		`<html><head><title>   </title></head><body>x</body></html>`,
	} {
		res, err := ExtractString(doc, nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.Title != DefaultTitle {
			t.Errorf("Title: got %q, want %q", res.Title, DefaultTitle)
		}
	}
}

func TestExtract_SelectorKinds(t *testing.T) {
	for _, sel := range []string{"main", "#content", ".main-body", "[role=main]", `[role="main"]`, "[role]"} {
		res, err := ExtractString(testHTML, mustSelectors(t, sel))
		if err != nil {
			t.Fatal(err)
		}
		if res.Node.Data != "main" {
			t.Errorf("%s: matched <%s>, want <main>", sel, res.Node.Data)
		}
	}
}

func TestExtract_SelectorOrder(t *testing.T) {
	// WHAT: The first selector that matches wins, not the first element in the document.
	// WHY: Selector order encodes priority of most specific content over whole page.
	res, err := ExtractString(testHTML, mustSelectors(t, "#missing", "article", "main"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Data != "article" {
		t.Errorf("matched <%s>, want <article>", res.Node.Data)
	}
	if res.Matched != "article" {
		t.Errorf("Matched: got %q", res.Matched)
	}
}

func TestExtract_NoiseRemovedRegardlessOfSelector(t *testing.T) {
	for _, sels := range [][]string{nil, {"main"}, {"article"}, {"body"}} {
		res, err := ExtractString(testHTML, mustSelectors(t, sels...))
		if err != nil {
			t.Fatal(err)
		}
		out := render(t, res)
		for _, bad := range []string{"<script", "<style", "<nav", "<header", "<footer", "<aside", "trackPageview", "Pull quote"} {
			if strings.Contains(out, bad) {
				t.Errorf("selectors %v: output contains %q", sels, bad)
			}
		}
		if !strings.Contains(out, "main content of the article") {
			t.Errorf("selectors %v: content missing", sels)
		}
	}
}

func TestExtract_FallbackToBody(t *testing.T) {
	res, err := ExtractString(testHTML, mustSelectors(t, "#nope", ".nothing"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Data != "body" || res.Matched != "body" {
		t.Errorf("fallback: got <%s> matched=%q", res.Node.Data, res.Matched)
	}
	out := render(t, res)
	if strings.Contains(out, "Copyright") || strings.Contains(out, "Related links") {
		t.Error("body fallback should still strip footer and aside")
	}
}

func TestExtract_Malformed(t *testing.T) {
	// WHAT: Broken markup still yields a document with content.
	// WHY: Origin HTML is untrusted and often imperfect; extraction must not fail.
	res, err := ExtractString(`<div><p>Unclosed <b>bold<main>Hi</div></p><title>T`, mustSelectors(t, "main"))
	if err != nil {
		t.Fatalf("malformed HTML should not fail: %v", err)
	}
	if !strings.Contains(Text(res.Node), "Hi") {
		t.Errorf("expected content, got %q", Text(res.Node))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestExtract_ReadError(t *testing.T) {
	_, err := Extract(failingReader{}, nil)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestExtract_MinimalPage(t *testing.T) {
	res, err := ExtractString(`<html><title>T</title><body><main>Hi</main></body></html>`, mustSelectors(t, "body"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "T" {
		t.Errorf("Title: got %q", res.Title)
	}
	if Text(res.Node) != "Hi" {
		t.Errorf("Text: got %q", Text(res.Node))
	}
}
