// Package horosafe provides the small safety primitives the edge relies on:
// path traversal guards for the artifact directory and bounded body reads
// for origin responses.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxResponseBody is the default cap for origin body reads (10 MiB).
const MaxResponseBody int64 = 10 << 20

// ErrPathTraversal is returned when a user-supplied path escapes its base.
var ErrPathTraversal = errors.New("horosafe: path traversal detected")

// ErrResponseTooLarge is returned by LimitedReadAll when the reader holds
// more than the allowed number of bytes.
var ErrResponseTooLarge = errors.New("horosafe: response too large")

// SafePath validates that joining base and userInput does not escape base.
// Any ".." path segment is rejected; dots inside a segment are allowed.
// Returns the cleaned path or ErrPathTraversal.
func SafePath(base, userInput string) (string, error) {
	for _, seg := range strings.FieldsFunc(userInput, isSeparator) {
		if seg == ".." {
			return "", ErrPathTraversal
		}
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+userInput))
	if !strings.HasPrefix(cleaned, filepath.Clean(base)+string(filepath.Separator)) &&
		cleaned != filepath.Clean(base) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// LimitedReadAll reads at most maxBytes from r. Returns an error wrapping
// ErrResponseTooLarge if the limit is exceeded.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = MaxResponseBody
	}
	lr := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrResponseTooLarge, maxBytes)
	}
	return data, nil
}
