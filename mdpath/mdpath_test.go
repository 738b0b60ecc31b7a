package mdpath

import "testing"

func TestToArtifact(t *testing.T) {
	tests := []struct {
		pattern Pattern
		path    string
		want    string
	}{
		{PatternIndex, "/", "/md/index.md"},
		{PatternIndex, "", "/md/index.md"},
		{PatternIndex, "//", "/md/index.md"},
		{PatternIndex, "/about", "/md/about/index.md"},
		{PatternIndex, "/about/", "/md/about/index.md"},
		{PatternIndex, "/blog/post-1", "/md/blog/post-1/index.md"},
		{PatternDirect, "/", "/md/index.md"},
		{PatternDirect, "/about", "/md/about.md"},
		{PatternDirect, "/about/", "/md/about.md"},
		{PatternIndex, "/md/about/index.md", "/md/about/index.md"},
		{PatternDirect, "/md/x.md", "/md/x.md"},
		// "/mdx" is not under "/md/".
		{PatternIndex, "/mdx", "/md/mdx/index.md"},
	}
	for _, tt := range tests {
		m := New("/md", tt.pattern)
		if got := m.ToArtifact(tt.path); got != tt.want {
			t.Errorf("[%s] ToArtifact(%q) = %q, want %q", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestToArtifact_Idempotent(t *testing.T) {
	for _, p := range []Pattern{PatternIndex, PatternDirect} {
		m := New("/ai", p)
		for _, path := range []string{"/", "/a", "/a/b/", "/ai/x.md", "/deep/nested/page"} {
			once := m.ToArtifact(path)
			twice := m.ToArtifact(once)
			if once != twice {
				t.Errorf("[%s] not idempotent for %q: %q then %q", p, path, once, twice)
			}
		}
	}
}

func TestToArtifact_TrailingSlashEquivalence(t *testing.T) {
	m := New("/md", PatternIndex)
	if m.ToArtifact("/about/") != m.ToArtifact("/about") {
		t.Error("/about/ and /about must map to the same artifact")
	}
}

func TestIsArtifact(t *testing.T) {
	m := New("/md", PatternIndex)
	if !m.IsArtifact("/md/index.md") {
		t.Error("expected /md/index.md under prefix")
	}
	if m.IsArtifact("/md") {
		t.Error("/md itself is not under /md/")
	}
	if m.IsArtifact("/mdx/a") {
		t.Error("/mdx/a is not under /md/")
	}
}

func TestParsePattern(t *testing.T) {
	if p, err := ParsePattern("index"); err != nil || p != PatternIndex {
		t.Errorf("index: %v %v", p, err)
	}
	if p, err := ParsePattern("direct"); err != nil || p != PatternDirect {
		t.Errorf("direct: %v %v", p, err)
	}
	if _, err := ParsePattern("hugo"); err == nil {
		t.Error("expected error for unknown pattern")
	}
}
