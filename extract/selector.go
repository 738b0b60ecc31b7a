package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// ErrInvalidSelector is wrapped by every SelectorError.
var ErrInvalidSelector = errors.New("extract: invalid selector")

// SelectorError reports a selector string that cannot be parsed. Callers
// skip the selector and try the next one.
type SelectorError struct {
	Selector string
	Reason   string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("extract: invalid selector %q: %s", e.Selector, e.Reason)
}

func (e *SelectorError) Unwrap() error { return ErrInvalidSelector }

// Kind tags the Selector variant.
type Kind int

const (
	ByTagName Kind = iota + 1
	ByID
	ByClass
	ByAttribute
)

func (k Kind) String() string {
	switch k {
	case ByTagName:
		return "tag"
	case ByID:
		return "id"
	case ByClass:
		return "class"
	case ByAttribute:
		return "attribute"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Selector locates a content subtree. It is one of:
//   - ByTagName:   "main", "article"
//   - ByID:        "#content"
//   - ByClass:     ".post-body"
//   - ByAttribute: "[role=main]", `[data-content="body"]`, "[data-article]"
//
// Selector implements goquery.Matcher.
type Selector struct {
	Kind  Kind
	Name  string // tag, id, class or attribute name
	Value string // attribute value when HasValue
	// HasValue distinguishes [attr=""] from the presence test [attr].
	HasValue bool
}

// Tag, ID, Class and Attr build selectors without going through the parser.
func Tag(name string) Selector { return Selector{Kind: ByTagName, Name: strings.ToLower(name)} }

func ID(id string) Selector { return Selector{Kind: ByID, Name: id} }

func Class(class string) Selector { return Selector{Kind: ByClass, Name: class} }

func Attr(name, value string) Selector {
	return Selector{Kind: ByAttribute, Name: strings.ToLower(name), Value: value, HasValue: true}
}

// String returns the canonical selector text.
func (s Selector) String() string {
	switch s.Kind {
	case ByTagName:
		return s.Name
	case ByID:
		return "#" + s.Name
	case ByClass:
		return "." + s.Name
	case ByAttribute:
		if !s.HasValue {
			return "[" + s.Name + "]"
		}
		return fmt.Sprintf("[%s=%q]", s.Name, s.Value)
	}
	return ""
}

// ParseSelector parses one selector string into its tagged variant.
// Compound selectors, combinators and pseudo-classes are rejected.
func ParseSelector(raw string) (Selector, error) {
	sel := strings.TrimSpace(raw)
	if sel == "" {
		return Selector{}, &SelectorError{Selector: raw, Reason: "empty"}
	}

	switch sel[0] {
	case '#':
		name := sel[1:]
		if !isIdent(name) {
			return Selector{}, &SelectorError{Selector: raw, Reason: "bad id"}
		}
		return ID(name), nil

	case '.':
		name := sel[1:]
		if !isIdent(name) {
			return Selector{}, &SelectorError{Selector: raw, Reason: "bad class"}
		}
		return Class(name), nil

	case '[':
		if !strings.HasSuffix(sel, "]") {
			return Selector{}, &SelectorError{Selector: raw, Reason: "unterminated attribute"}
		}
		inner := sel[1 : len(sel)-1]
		key, val, hasVal := strings.Cut(inner, "=")
		key = strings.TrimSpace(key)
		if !isIdent(key) {
			return Selector{}, &SelectorError{Selector: raw, Reason: "bad attribute name"}
		}
		if !hasVal {
			return Selector{Kind: ByAttribute, Name: strings.ToLower(key)}, nil
		}
		val, err := unquote(strings.TrimSpace(val))
		if err != nil {
			return Selector{}, &SelectorError{Selector: raw, Reason: err.Error()}
		}
		return Attr(key, val), nil
	}

	if !isIdent(sel) {
		return Selector{}, &SelectorError{Selector: raw, Reason: "unsupported syntax"}
	}
	return Tag(sel), nil
}

// ParseSelectors parses raw selectors in order. Invalid entries are
// skipped; the returned error joins one SelectorError per skipped entry.
func ParseSelectors(raw []string) ([]Selector, error) {
	out := make([]Selector, 0, len(raw))
	var errs []error
	for _, r := range raw {
		s, err := ParseSelector(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}

func unquote(v string) (string, error) {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') {
		if v[len(v)-1] != v[0] {
			return "", errors.New("unbalanced quotes")
		}
		return v[1 : len(v)-1], nil
	}
	if strings.ContainsAny(v, `"' []`) {
		return "", errors.New("bad attribute value")
	}
	return v, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// Match reports whether n matches the selector.
func (s Selector) Match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch s.Kind {
	case ByTagName:
		return n.Data == s.Name
	case ByID:
		v, ok := getAttr(n, "id")
		return ok && v == s.Name
	case ByClass:
		v, _ := getAttr(n, "class")
		for _, c := range strings.Fields(v) {
			if c == s.Name {
				return true
			}
		}
		return false
	case ByAttribute:
		v, ok := getAttr(n, s.Name)
		if !ok {
			return false
		}
		return !s.HasValue || v == s.Value
	}
	return false
}

// MatchAll returns n and its descendants that match, in document order.
func (s Selector) MatchAll(n *html.Node) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if s.Match(n) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return results
}

// Filter returns the nodes that match.
func (s Selector) Filter(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if s.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
