package render

import (
	"strings"
	"testing"

	"github.com/hazyhaar/mdgate/extract"
)

func TestRender_StylePolicy(t *testing.T) {
	r := New()
	md, err := r.Render(`<main>
<h2>Section</h2>
<p>Some <em>soft</em> and <strong>loud</strong> words with a <a href="https://example.com/x">link</a>.</p>
<ul><li>one</li><li>two</li></ul>
<pre><code class="language-go">func main() {
    println("hi")
}</code></pre>
</main>`, "")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"## Section",
		"*soft*",
		"**loud**",
		"[link](https://example.com/x)",
		"- one\n- two",
		"```go\nfunc main() {\n    println(\"hi\")\n}\n```",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("output missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Section\n---") || strings.Contains(md, "Section\n===") {
		t.Error("headings must be ATX style")
	}
}

func TestRender_RelativeLinksUseBaseURL(t *testing.T) {
	md, err := New().Render(`<p><a href="/docs/start">Start</a></p>`, "https://site.example")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "[Start](https://site.example/docs/start)") {
		t.Errorf("expected absolute link, got %q", md)
	}
}

func TestRender_SanitizeDropsActiveContent(t *testing.T) {
	markup := `<div><p onclick="steal()">Hello</p><iframe src="https://evil.example"></iframe><script>alert(1)</script></div>`

	md, err := New().Render(markup, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "Hello") {
		t.Errorf("content lost: %q", md)
	}
	for _, bad := range []string{"steal", "alert", "iframe"} {
		if strings.Contains(md, bad) {
			t.Errorf("sanitised output contains %q: %q", bad, md)
		}
	}
}

func TestRender_UnsupportedElementsDegradeToText(t *testing.T) {
	md, err := New(WithSanitize(false)).Render(`<custom-widget><blink>Plain words</blink></custom-widget>`, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "Plain words") {
		t.Errorf("expected text content, got %q", md)
	}
}

func TestRender_Empty(t *testing.T) {
	md, err := New().Render("", "")
	if err != nil {
		t.Fatal(err)
	}
	if md != "" {
		t.Errorf("expected empty output, got %q", md)
	}
}

func TestRenderNode(t *testing.T) {
	res, err := extract.ExtractString(`<html><title>T</title><body><nav>menu</nav><main>Hi</main></body></html>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	md, err := New().RenderNode(res, "")
	if err != nil {
		t.Fatal(err)
	}
	if md != "Hi" {
		t.Errorf("got %q, want %q", md, "Hi")
	}
}

func TestCompose(t *testing.T) {
	if got := Compose("T", "Hi", ""); got != "# T\n\nHi" {
		t.Errorf("got %q", got)
	}
	got := Compose("T", "Hi", "Served by mdgate")
	want := "# T\n\nHi\n\n---\n\nServed by mdgate\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
