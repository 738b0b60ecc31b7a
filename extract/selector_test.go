package extract

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		raw  string
		want Selector
	}{
		{"main", Selector{Kind: ByTagName, Name: "main"}},
		{"  ARTICLE ", Selector{Kind: ByTagName, Name: "article"}},
		{"#main-content", Selector{Kind: ByID, Name: "main-content"}},
		{".post_body", Selector{Kind: ByClass, Name: "post_body"}},
		{"[role=main]", Selector{Kind: ByAttribute, Name: "role", Value: "main", HasValue: true}},
		{`[data-x="a b"]`, Selector{Kind: ByAttribute, Name: "data-x", Value: "a b", HasValue: true}},
		{`[data-x='']`, Selector{Kind: ByAttribute, Name: "data-x", Value: "", HasValue: true}},
		{"[data-article]", Selector{Kind: ByAttribute, Name: "data-article"}},
	}
	for _, tt := range tests {
		got, err := ParseSelector(tt.raw)
		if err != nil {
			t.Errorf("ParseSelector(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSelector(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestParseSelector_Invalid(t *testing.T) {
	for _, raw := range []string{
		"", "#", ".", "div.content", "main article", "div > p", "a:hover",
		"[role=main", "[=x]", `[a="x']`, "[a~=x]", "#a.b",
	} {
		_, err := ParseSelector(raw)
		if err == nil {
			t.Errorf("ParseSelector(%q): expected error", raw)
			continue
		}
		var se *SelectorError
		if !errors.As(err, &se) || !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("ParseSelector(%q): want SelectorError wrapping ErrInvalidSelector, got %v", raw, err)
		}
	}
}

func TestParseSelectors_SkipsInvalid(t *testing.T) {
	sels, err := ParseSelectors([]string{"div > p", "main", "a:hover", "#x"})
	if len(sels) != 2 || sels[0].String() != "main" || sels[1].String() != "#x" {
		t.Fatalf("selectors: got %v", sels)
	}
	if err == nil {
		t.Fatal("expected joined error for skipped selectors")
	}
	if !strings.Contains(err.Error(), "div > p") || !strings.Contains(err.Error(), "a:hover") {
		t.Errorf("error should name skipped selectors: %v", err)
	}
}

func TestSelector_String_RoundTrip(t *testing.T) {
	for _, raw := range []string{"main", "#id", ".cls", "[role]", `[role="main"]`} {
		s, err := ParseSelector(raw)
		if err != nil {
			t.Fatal(err)
		}
		again, err := ParseSelector(s.String())
		if err != nil || again != s {
			t.Errorf("%q: round trip gave %+v (%v)", raw, again, err)
		}
	}
}

func TestSelector_Match(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div id="a" class="x y" data-k="v"></div>`))
	if err != nil {
		t.Fatal(err)
	}
	div := Tag("div").MatchAll(doc)
	if len(div) != 1 {
		t.Fatalf("expected one div, got %d", len(div))
	}
	n := div[0]

	cases := map[string]bool{
		"div": true, "span": false,
		"#a": true, "#b": false,
		".x": true, ".y": true, ".z": false,
		"[data-k]": true, "[data-k=v]": true, "[data-k=w]": false, "[missing]": false,
	}
	for raw, want := range cases {
		s, err := ParseSelector(raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := s.Match(n); got != want {
			t.Errorf("%s.Match = %v, want %v", raw, got, want)
		}
	}
	if Tag("div").Match(n.FirstChild) {
		t.Error("nil child must not match")
	}
}
