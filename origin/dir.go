package origin

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strconv"

	"github.com/hazyhaar/mdgate/horosafe"
)

// Dir serves pre-generated artifacts from a local directory. The artifact
// path, prefix included, is resolved under the root: with root /srv/site,
// "/md/about/index.md" reads /srv/site/md/about/index.md.
type Dir struct {
	root string
}

// NewDir creates a directory-backed artifact store.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Fetch returns a 200 response streaming the file, or a 404 response when
// the file is missing or the path escapes the root.
func (d *Dir) Fetch(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Op: "fetch", URL: path, Err: err}
	}

	full, err := horosafe.SafePath(d.root, path)
	if err != nil {
		return notFound(r), nil
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return notFound(r), nil
		}
		return nil, &NetworkError{Op: "fetch", URL: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return notFound(r), nil
	}

	h := make(http.Header)
	h.Set("Content-Type", "text/markdown; charset=utf-8")
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          f,
		ContentLength: info.Size(),
		Request:       r,
	}, nil
}

func notFound(r *http.Request) *http.Response {
	return &http.Response{
		Status:     "404 Not Found",
		StatusCode: http.StatusNotFound,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:       http.NoBody,
		Request:    r,
	}
}

var (
	_ Fetcher = (*Client)(nil)
	_ Fetcher = (*Dir)(nil)
)
