// Package pipeline negotiates content for AI agents at the edge.
//
// Ordinary requests are forwarded to the origin untouched. Requests from a
// recognised AI agent are answered with Markdown instead: a pre-generated
// artifact when one exists, otherwise a live conversion of the origin's
// HTML. Every failure on the agent path falls back to plain pass-through.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/mdgate/agent"
	"github.com/hazyhaar/mdgate/extract"
	"github.com/hazyhaar/mdgate/horosafe"
	"github.com/hazyhaar/mdgate/kit"
	"github.com/hazyhaar/mdgate/mdpath"
	"github.com/hazyhaar/mdgate/origin"
	"github.com/hazyhaar/mdgate/render"
	"github.com/hazyhaar/mdgate/shield"
)

// Response headers stamped on Markdown responses.
const (
	HeaderAIAgent      = "X-AI-Agent"
	HeaderOriginalPath = "X-Original-Path"
	HeaderMarkdownPath = "X-Markdown-Path"
	HeaderRobotsTag    = "X-Robots-Tag"

	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	RobotsNoIndex       = "noindex, nofollow"

	AgentDetected  = "detected"
	AgentConverted = "detected-converted"
)

// Outcome values of the per-request log line.
const (
	OutcomePassthrough = "passthrough"
	OutcomeArtifact    = "artifact"
	OutcomeConverted   = "converted"
	OutcomeFallback    = "fallback"
	OutcomeError       = "error"
)

// Origin is the upstream site: it forwards the inbound request unchanged
// and can fetch derived paths.
type Origin interface {
	origin.Fetcher
	Forward(ctx context.Context, r *http.Request) (*http.Response, error)
}

// Config wires the pipeline. Classifier, Origin and Renderer are required.
type Config struct {
	Classifier *agent.Classifier
	Mapper     mdpath.Mapper
	Origin     Origin
	// Artifacts resolves Markdown artifacts. Nil: Origin.
	Artifacts origin.Fetcher
	Renderer  *render.Renderer
	Selectors []extract.Selector
	// Attribution is appended to converted documents when non-empty.
	Attribution string
	// MaxBodyBytes bounds buffered agent request bodies and origin HTML.
	MaxBodyBytes int64
}

// Handler is the request pipeline. It is stateless between requests.
type Handler struct {
	classifier  *agent.Classifier
	mapper      mdpath.Mapper
	origin      Origin
	artifacts   origin.Fetcher
	renderer    *render.Renderer
	selectors   []extract.Selector
	attribution string
	maxBody     int64
}

// New creates a Handler from cfg.
func New(cfg Config) (*Handler, error) {
	if cfg.Classifier == nil || cfg.Origin == nil || cfg.Renderer == nil {
		return nil, errors.New("pipeline: classifier, origin and renderer are required")
	}
	if cfg.Mapper.Prefix() == "" {
		return nil, errors.New("pipeline: mapper has no prefix")
	}
	h := &Handler{
		classifier:  cfg.Classifier,
		mapper:      cfg.Mapper,
		origin:      cfg.Origin,
		artifacts:   cfg.Artifacts,
		renderer:    cfg.Renderer,
		selectors:   cfg.Selectors,
		attribution: cfg.Attribution,
		maxBody:     cfg.MaxBodyBytes,
	}
	if h.artifacts == nil {
		h.artifacts = cfg.Origin
	}
	if h.maxBody <= 0 {
		h.maxBody = horosafe.MaxResponseBody
	}
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := shield.GetLogger(r.Context())
	done := func(outcome string, status int, attrs ...any) {
		attrs = append(attrs,
			"outcome", outcome,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		level := slog.LevelInfo
		if outcome == OutcomeError {
			level = slog.LevelError
		}
		log.Log(r.Context(), level, "pipeline: request", attrs...)
	}

	pattern, isAgent := h.classifier.Match(r.UserAgent())
	if !isAgent || h.mapper.IsArtifact(r.URL.Path) {
		h.passthrough(w, r, OutcomePassthrough, done)
		return
	}

	r = r.WithContext(kit.WithAgent(r.Context(), pattern))
	log = log.With("agent", pattern)

	if err := bufferBody(r, h.maxBody); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			h.passthrough(w, r, OutcomePassthrough, done, "reason", "request body too large")
			return
		}
		shield.WriteUnavailable(w)
		done(OutcomeError, http.StatusServiceUnavailable, "error", err)
		return
	}

	mdPath := h.mapper.ToArtifact(r.URL.Path)
	log = log.With("markdown_path", mdPath)

	if status, ok := h.serveArtifact(w, r, mdPath, log); ok {
		done(OutcomeArtifact, status)
		return
	}
	if r.Context().Err() != nil {
		done(OutcomeError, 0, "error", r.Context().Err())
		return
	}

	resp, err := h.origin.Forward(r.Context(), r)
	if err != nil {
		h.fallback(w, r, done, "origin fetch", err)
		return
	}
	if !origin.OK(resp) || !origin.IsHTML(resp) {
		// The origin's answer to the original request is the pass-through
		// response; relay it rather than fetching it a second time.
		status := resp.StatusCode
		if err := origin.Relay(w, resp); err != nil {
			done(OutcomePassthrough, status, "relay_error", err)
			return
		}
		done(OutcomePassthrough, status)
		return
	}

	md, err := h.convert(resp, requestOrigin(r))
	if err != nil {
		h.fallback(w, r, done, "convert", err)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", ContentTypeMarkdown)
	hdr.Set(HeaderAIAgent, AgentConverted)
	hdr.Set(HeaderOriginalPath, r.URL.EscapedPath())
	hdr.Set(HeaderRobotsTag, RobotsNoIndex)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, md)
	done(OutcomeConverted, http.StatusOK, "bytes", len(md))
}

// serveArtifact writes the artifact response on a hit. Misses and errors
// write nothing.
func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, mdPath string, log *slog.Logger) (int, bool) {
	resp, err := h.artifacts.Fetch(r.Context(), r, mdPath)
	if err != nil {
		log.Debug("pipeline: artifact fetch failed", "error", err)
		return 0, false
	}
	if !origin.OK(resp) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		log.Debug("pipeline: artifact miss", "artifact_status", resp.StatusCode)
		return 0, false
	}
	defer resp.Body.Close()

	hdr := w.Header()
	origin.CopyHeader(hdr, resp.Header)
	hdr.Set("Content-Type", ContentTypeMarkdown)
	hdr.Set(HeaderAIAgent, AgentDetected)
	hdr.Set(HeaderOriginalPath, r.URL.EscapedPath())
	hdr.Set(HeaderMarkdownPath, escapePath(mdPath))
	hdr.Set(HeaderRobotsTag, RobotsNoIndex)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug("pipeline: artifact body interrupted", "error", err)
	}
	return resp.StatusCode, true
}

// convert reads the origin HTML and produces the final Markdown document.
func (h *Handler) convert(resp *http.Response, baseURL string) (string, error) {
	body, err := origin.ReadBody(resp, h.maxBody)
	if err != nil {
		return "", err
	}
	res, err := extract.Extract(bytes.NewReader(body), h.selectors)
	if err != nil {
		return "", err
	}
	md, err := h.renderer.RenderNode(res, baseURL)
	if err != nil {
		return "", err
	}
	return render.Compose(res.Title, md, h.attribution), nil
}

func (h *Handler) fallback(w http.ResponseWriter, r *http.Request, done logFunc, stage string, err error) {
	if r.Context().Err() != nil {
		done(OutcomeError, 0, "stage", stage, "error", err)
		return
	}
	h.passthrough(w, r, OutcomeFallback, done, "stage", stage, "error", err)
}

type logFunc func(outcome string, status int, attrs ...any)

// passthrough forwards the original request and relays the origin's
// response verbatim. Only a failed fetch produces the 503.
func (h *Handler) passthrough(w http.ResponseWriter, r *http.Request, outcome string, done logFunc, attrs ...any) {
	resp, err := h.origin.Forward(r.Context(), r)
	if err != nil {
		shield.WriteUnavailable(w)
		done(OutcomeError, http.StatusServiceUnavailable, append(attrs, "passthrough_error", err)...)
		return
	}
	status := resp.StatusCode
	if err := origin.Relay(w, resp); err != nil {
		attrs = append(attrs, "relay_error", err)
	}
	done(outcome, status, attrs...)
}

var errBodyTooLarge = errors.New("pipeline: request body too large to buffer")

// bufferBody reads an agent request's body into memory so that it can be
// sent to the origin more than once. A body larger than max is left
// streaming, already-read bytes first, and errBodyTooLarge is returned.
func bufferBody(r *http.Request, max int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return nil
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, max+1))
	if err != nil {
		return fmt.Errorf("pipeline: read request body: %w", err)
	}
	if int64(len(buf)) > max {
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
		return errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(buf))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	r.ContentLength = int64(len(buf))
	return nil
}

// requestOrigin returns the public scheme://host of r, honouring the
// forwarding headers set by a fronting proxy. Relative links in converted
// pages resolve against it.
func requestOrigin(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		if proto := firstValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
			scheme = proto
		} else {
			scheme = "http"
		}
	}
	host := r.Host
	if h := firstValue(r.Header.Get("X-Forwarded-Host")); h != "" {
		host = h
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}

func firstValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// escapePath percent-encodes p the way it appears on the wire.
func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
