// Package mdpath maps page paths to the location of their pre-generated
// Markdown artifacts.
//
//	/          -> {prefix}/index.md
//	/about     -> {prefix}/about/index.md   (index)
//	/about     -> {prefix}/about.md         (direct)
//	/about/    -> same as /about
package mdpath

import (
	"fmt"
	"strings"
)

// Pattern selects the artifact file naming scheme.
type Pattern string

const (
	// PatternIndex maps /about to {prefix}/about/index.md (Hugo style).
	PatternIndex Pattern = "index"
	// PatternDirect maps /about to {prefix}/about.md.
	PatternDirect Pattern = "direct"
)

// ParsePattern validates a pattern name.
func ParsePattern(s string) (Pattern, error) {
	switch Pattern(s) {
	case PatternIndex, PatternDirect:
		return Pattern(s), nil
	}
	return "", fmt.Errorf("mdpath: unknown file pattern %q (use index or direct)", s)
}

// Mapper is a pure function of the request path and its static settings.
type Mapper struct {
	prefix  string
	pattern Pattern
}

// New creates a Mapper. The prefix must not carry a trailing slash.
func New(prefix string, pattern Pattern) Mapper {
	return Mapper{prefix: prefix, pattern: pattern}
}

// Prefix returns the artifact tree prefix.
func (m Mapper) Prefix() string { return m.prefix }

// IsArtifact reports whether path already lies under the artifact tree.
func (m Mapper) IsArtifact(path string) bool {
	return strings.HasPrefix(path, m.prefix+"/")
}

// ToArtifact returns the artifact path for a request path. The query string
// must already be stripped. Paths under the prefix are returned unchanged.
func (m Mapper) ToArtifact(path string) string {
	if m.IsArtifact(path) {
		return path
	}

	clean := strings.TrimSuffix(path, "/")
	if clean == "" || clean == "/" {
		return m.prefix + "/index.md"
	}
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}

	if m.pattern == PatternDirect {
		return m.prefix + clean + ".md"
	}
	return m.prefix + clean + "/index.md"
}
