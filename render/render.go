// Package render converts cleaned HTML content to Markdown under one fixed
// style policy: ATX headings, fenced code blocks, "-" bullets, "*" emphasis,
// "**" strong and inline links.
package render

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/mdgate/extract"
)

// Renderer is safe for concurrent use.
type Renderer struct {
	conv     *converter.Converter
	policy   *bluemonday.Policy
	sanitize bool
	logger   *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSanitize runs markup through a UGC sanitising policy before
// conversion. Enabled by default.
func WithSanitize(enabled bool) Option {
	return func(r *Renderer) { r.sanitize = enabled }
}

// WithLogger sets the logger used to report conversion fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New creates a Renderer with the fixed Markdown style policy.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(
					commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
					commonmark.WithCodeBlockFence("```"),
					commonmark.WithBulletListMarker("-"),
					commonmark.WithEmDelimiter("*"),
					commonmark.WithStrongDelimiter("**"),
				),
				table.NewTablePlugin(),
			),
		),
		policy:   newPolicy(),
		sanitize: true,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var codeLanguageRe = regexp.MustCompile(`^language-[\w+#.-]+$`)

// newPolicy keeps content markup and the language class on code blocks,
// which the converter uses for the fence info string.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("main", "article", "section", "figure", "figcaption", "details", "summary")
	p.AllowAttrs("class").Matching(codeLanguageRe).OnElements("code", "pre")
	return p
}

// Render converts markup to Markdown. Relative links are resolved against
// baseURL when it is set. Conversion errors degrade to the plain text of
// the markup; Render never panics on well-formed input.
func (r *Renderer) Render(markup, baseURL string) (md string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("render: converter panic, degrading to text", "panic", rec)
			md, err = textOf(markup), nil
		}
	}()

	if r.sanitize {
		markup = r.policy.Sanitize(markup)
	}

	var out string
	var convErr error
	if baseURL != "" {
		out, convErr = r.conv.ConvertString(markup, converter.WithDomain(baseURL))
	} else {
		out, convErr = r.conv.ConvertString(markup)
	}
	if convErr != nil {
		r.logger.Warn("render: conversion failed, degrading to text", "error", convErr)
		return textOf(markup), nil
	}
	return strings.TrimSpace(out), nil
}

// RenderNode renders an extracted subtree.
func (r *Renderer) RenderNode(res *extract.Result, baseURL string) (string, error) {
	markup, err := res.HTML()
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return r.Render(markup, baseURL)
}

// Compose builds the final document: "# {title}\n\n{body}", followed by the
// attribution line under a rule when one is configured.
func Compose(title, body, attribution string) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")
	sb.WriteString(body)
	if attribution != "" {
		sb.WriteString("\n\n---\n\n")
		sb.WriteString(attribution)
		sb.WriteString("\n")
	}
	return sb.String()
}

func textOf(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return extract.Text(doc)
}
