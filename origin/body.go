package origin

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"

	"github.com/hazyhaar/mdgate/horosafe"
)

// ReadBody reads resp's body in full, undoing any Content-Encoding, and
// transcodes it to UTF-8 according to the declared or sniffed charset. At
// most maxBytes of decoded content are accepted. The body is closed.
func ReadBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	encodings := strings.Split(resp.Header.Get("Content-Encoding"), ",")
	for i := len(encodings) - 1; i >= 0; i-- {
		dec, closer, err := decoder(encodings[i], r)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		r = dec
	}

	data, err := horosafe.LimitedReadAll(r, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("origin: read body: %w", err)
	}
	return DecodeCharset(data, resp.Header.Get("Content-Type"))
}

// decoder wraps r for one content coding. The closer is nil when the
// decoder holds no resources.
func decoder(encoding string, r io.Reader) (io.Reader, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return r, nil, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("origin: gzip: %w", err)
		}
		return zr, zr, nil
	case "deflate":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("origin: deflate: %w", err)
		}
		return zr, zr, nil
	case "br":
		return brotli.NewReader(r), nil, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("origin: zstd: %w", err)
		}
		rc := zr.IOReadCloser()
		return rc, rc, nil
	}
	return nil, nil, fmt.Errorf("origin: unsupported content-encoding %q", encoding)
}

// DecodeCharset converts body to UTF-8. contentType may carry a charset
// parameter; otherwise the encoding is sniffed from the document.
func DecodeCharset(body []byte, contentType string) ([]byte, error) {
	// Without a declared charset the sniffer only inspects the first 1KiB
	// and defaults to windows-1252; a body that is valid UTF-8 throughout
	// is kept as is.
	if _, params, err := mime.ParseMediaType(contentType); (err != nil || params["charset"] == "") && utf8.Valid(body) {
		return body, nil
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("origin: charset: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("origin: charset: %w", err)
	}
	return out, nil
}
