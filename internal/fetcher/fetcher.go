// Package fetcher performs single HTTP GETs for source adapters and parses
// the tabular payloads (CSV, XLSX, JSON) that open-data portals publish.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher performs one GET per call. Retries and compliance checks are the
// caller's concern.
type Fetcher interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsDefinitiveClientError reports whether err is a 403 or 404 response: the
// resource is not going to appear on retry, so a fallback transport may be tried.
func IsDefinitiveClientError(err error) bool {
	switch StatusCode(err) {
	case http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}
