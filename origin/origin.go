// Package origin issues the outbound requests of the edge: pass-through
// forwards to the origin server and artifact lookups, either against the
// origin or a local directory.
package origin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves the resource at path using the method, headers and
// query of r. Implementations never read r.Body.
type Fetcher interface {
	Fetch(ctx context.Context, r *http.Request, path string) (*http.Response, error)
}

// NetworkError wraps a failed outbound fetch.
type NetworkError struct {
	Op  string // "forward" or "fetch"
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("origin: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Config configures the origin client.
type Config struct {
	// BaseURL is the origin server, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// Timeout bounds the wait for response headers. Default: 10s.
	Timeout time.Duration
	// PreserveHost forwards the inbound Host header instead of the origin's.
	PreserveHost bool
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Client forwards requests to a single origin. Redirects are relayed, not
// followed.
type Client struct {
	base         *url.URL
	client       *http.Client
	preserveHost bool
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("origin: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("origin: base url %q must be absolute http(s)", cfg.BaseURL)
	}

	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.ResponseHeaderTimeout = cfg.Timeout
		// Bodies are relayed with their original Content-Encoding.
		t.DisableCompression = true
		transport = t
	}

	return &Client{
		base: base,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		preserveHost: cfg.PreserveHost,
	}, nil
}

// Forward sends r to the origin unchanged: same method, path, query,
// headers and body. The body is taken from r.GetBody when set so that a
// buffered request can be forwarded more than once.
func (c *Client) Forward(ctx context.Context, r *http.Request) (*http.Response, error) {
	body, err := requestBody(r)
	if err != nil {
		return nil, &NetworkError{Op: "forward", URL: r.URL.Path, Err: err}
	}
	out, err := c.newRequest(ctx, r, r.URL.Path, r.URL.EscapedPath(), body)
	if err != nil {
		return nil, err
	}
	out.ContentLength = r.ContentLength
	return c.do("forward", out)
}

// Fetch issues a derived request for path, keeping the method, headers and
// query of r but no body.
func (c *Client) Fetch(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	out, err := c.newRequest(ctx, r, path, "", http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.do("fetch", out)
}

func (c *Client) newRequest(ctx context.Context, r *http.Request, path, rawPath string, body io.ReadCloser) (*http.Request, error) {
	u := *c.base
	u.Path, u.RawPath = joinURLPath(c.base, path, rawPath)
	u.RawQuery = r.URL.RawQuery
	u.Fragment = ""

	out, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, &NetworkError{Op: "fetch", URL: u.String(), Err: err}
	}
	out.Header = cloneHeader(r.Header)
	if c.preserveHost {
		out.Host = r.Host
	}
	return out, nil
}

func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, URL: req.URL.String(), Err: err}
	}
	return resp, nil
}

func requestBody(r *http.Request) (io.ReadCloser, error) {
	if r.GetBody != nil {
		return r.GetBody()
	}
	if r.Body == nil {
		return http.NoBody, nil
	}
	return r.Body, nil
}

func joinURLPath(base *url.URL, path, rawPath string) (string, string) {
	if rawPath == "" {
		return singleJoiningSlash(base.Path, path), ""
	}
	return singleJoiningSlash(base.Path, path), singleJoiningSlash(base.EscapedPath(), rawPath)
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func cloneHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, f := range out.Values("Connection") {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		out.Del(name)
	}
	return out
}

// CopyHeader copies the end-to-end headers of src into dst.
func CopyHeader(dst, src http.Header) {
	for k, vv := range cloneHeader(src) {
		dst[k] = vv
	}
}

// Relay writes resp to w verbatim: status, end-to-end headers and body.
// Streaming responses (event streams and bodies of unknown length) are
// flushed after the headers and after every chunk. The response body is
// closed.
func Relay(w http.ResponseWriter, resp *http.Response) error {
	defer resp.Body.Close()
	CopyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if !streaming(resp) {
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("origin: relay body: %w", err)
		}
		return nil
	}

	rc := http.NewResponseController(w)
	if err := flush(rc); err != nil {
		return fmt.Errorf("origin: relay flush: %w", err)
	}
	buf := make([]byte, 32<<10)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("origin: relay body: %w", err)
			}
			if err := flush(rc); err != nil {
				return fmt.Errorf("origin: relay flush: %w", err)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("origin: relay body: %w", rerr)
		}
	}
}

// streaming reports whether resp must reach the client as it arrives.
func streaming(resp *http.Response) bool {
	if resp.ContentLength == -1 {
		return true
	}
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return mt == "text/event-stream"
}

// flush ignores writers that cannot flush.
func flush(rc *http.ResponseController) error {
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// OK reports whether resp carries a 2xx status.
func OK(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// IsHTML reports whether resp declares an HTML body.
func IsHTML(resp *http.Response) bool {
	return strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html")
}
